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

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	// 🛑 ErrCancelled signals a user-requested stop. It is an outcome, not a failure.
	ErrCancelled = errors.Base("copy cancelled")

	// ⏭️ ErrAlreadyExists is reported when the destination exists and overwrite is disabled.
	ErrAlreadyExists = errors.Base("destination already exists")
)

// 💥 SizeCalculationError means a source file could not be measured up front.
// It is the only error that fails the whole batch: the total is needed before
// the first byte moves.
type SizeCalculationError struct {
	Path string
	Err  error
}

func (e *SizeCalculationError) Error() string {
	return fmt.Sprintf("calculating size of %s: %v", e.Path, e.Err)
}

func (e *SizeCalculationError) Unwrap() error { return e.Err }

// 💥 BackendInitError means the native copy primitive could not be bound.
// Recovered automatically by falling back to the streamed backend for the
// rest of the session.
type BackendInitError struct {
	Err error
}

func (e *BackendInitError) Error() string {
	return fmt.Sprintf("initializing native copy backend: %v", e.Err)
}

func (e *BackendInitError) Unwrap() error { return e.Err }

// 💥 NativeCopyError is a per-file failure reported by the OS copy primitive.
type NativeCopyError struct {
	Path string
	Code uint64 // OS error code as reported by the primitive
	Err  error
}

func (e *NativeCopyError) Error() string {
	return fmt.Sprintf("native copy of %s failed (os error %d): %v", e.Path, e.Code, e.Err)
}

func (e *NativeCopyError) Unwrap() error { return e.Err }

// 💥 StreamCopyError is a per-file failure in the buffered read/write loop.
type StreamCopyError struct {
	Op   string // "open", "create", "read", "write", "close"
	Path string
	Err  error
}

func (e *StreamCopyError) Error() string {
	return fmt.Sprintf("streamed copy: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StreamCopyError) Unwrap() error { return e.Err }

// ⚠️ CleanupError means the reclaimer exhausted its retry budget; a partial
// file may remain on disk. Never fatal to the batch.
type CleanupError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("removing partial file %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
