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

package copyengine

import "context"

// 🎚️ ProgressAction is the answer a progress sink gives the backend that is
// driving the transfer.
type ProgressAction int

const (
	// ProgressContinue keeps the transfer going.
	ProgressContinue ProgressAction = iota
	// ProgressCancel aborts the transfer. The native primitive is the only
	// caller that acts on this mid-callback; the streamed loop polls the
	// canceller directly.
	ProgressCancel
	// ProgressQuiet keeps the transfer going but asks for no further
	// callbacks on this file.
	ProgressQuiet
)

// 📊 ProgressSink receives cumulative per-file byte counts during a transfer.
// Invoked synchronously on the transfer path.
type ProgressSink interface {
	OnProgress(fileBytes int64) ProgressAction
}

// ProgressSinkFunc adapts a function to the ProgressSink interface.
type ProgressSinkFunc func(fileBytes int64) ProgressAction

func (f ProgressSinkFunc) OnProgress(fileBytes int64) ProgressAction { return f(fileBytes) }

// 🚚 Backend transfers the bytes of one file. Implementations must release
// both file handles before returning on every exit path, including
// cancellation and error. A cancelled transfer returns ErrCancelled, not a
// copy error.
type Backend interface {
	Name() string
	Copy(ctx context.Context, task FileTask, cancel *Canceller, sink ProgressSink) error
}
