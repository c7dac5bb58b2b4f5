// Copyright 2025 the copyfx authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !windows

package copyengine

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// 🚀 NativeBackend exists only on Windows; elsewhere the probe always fails
// and the session runs on the streamed backend.
type NativeBackend struct{}

// NewNativeBackend always reports the primitive as unavailable here.
func NewNativeBackend() (*NativeBackend, error) {
	return nil, &BackendInitError{Err: errors.New("no native copy primitive on this platform")}
}

func (b *NativeBackend) Name() string { return "native" }

func (b *NativeBackend) Copy(ctx context.Context, task FileTask, cancel *Canceller, sink ProgressSink) error {
	return &BackendInitError{Err: errors.New("native backend not available")}
}
