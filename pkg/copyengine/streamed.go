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
	"context"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"
)

// streamBufferSize is the fixed chunk size for the manual read/write loop.
const streamBufferSize = 4 << 20 // 4 MiB

// 🚚 StreamedBackend copies a file through a fixed-size buffer. It is the
// fallback when the native primitive is unavailable or disabled, and the only
// backend on non-Windows platforms.
type StreamedBackend struct {
	bufSize int
}

// NewStreamedBackend returns a streamed backend with the standard 4 MiB
// buffer. bufSize <= 0 selects the default; tests shrink it to cross chunk
// boundaries cheaply.
func NewStreamedBackend(bufSize int) *StreamedBackend {
	if bufSize <= 0 {
		bufSize = streamBufferSize
	}
	return &StreamedBackend{bufSize: bufSize}
}

func (b *StreamedBackend) Name() string { return "streamed" }

// Copy streams task.SourcePath into task.DestPath. Cancellation is polled
// before each read and again before each write, so at most one in-flight
// chunk completes after a request. Any read/write error aborts this file
// without retry; the partial destination is the orchestrator's to reclaim.
func (b *StreamedBackend) Copy(ctx context.Context, task FileTask, cancel *Canceller, sink ProgressSink) error {
	in, err := os.Open(task.SourcePath)
	if err != nil {
		return &StreamCopyError{Op: "open", Path: task.SourcePath, Err: err}
	}
	defer in.Close()

	out, err := os.Create(task.DestPath)
	if err != nil {
		return &StreamCopyError{Op: "create", Path: task.DestPath, Err: err}
	}
	defer out.Close()

	buf := make([]byte, b.bufSize)
	quiet := false

	var copied int64
	for {
		if cancel.Requested() {
			return errors.WithStack(ErrCancelled)
		}

		n, rerr := in.Read(buf)
		if n > 0 {
			if cancel.Requested() {
				return errors.WithStack(ErrCancelled)
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return &StreamCopyError{Op: "write", Path: task.DestPath, Err: werr}
			}
			copied += int64(n)

			if !quiet {
				switch sink.OnProgress(copied) {
				case ProgressCancel:
					return errors.WithStack(ErrCancelled)
				case ProgressQuiet:
					quiet = true
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return &StreamCopyError{Op: "read", Path: task.SourcePath, Err: rerr}
		}
	}

	// Close errors on the destination are data-loss errors, not cleanup noise.
	if err := out.Close(); err != nil {
		return &StreamCopyError{Op: "close", Path: task.DestPath, Err: err}
	}

	// A zero-length source never enters the loop; report completion once so
	// the file still reaches 100%.
	if copied == 0 && !quiet {
		if sink.OnProgress(0) == ProgressCancel {
			return errors.WithStack(ErrCancelled)
		}
	}

	return nil
}
