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

//go:build windows

package copyengine

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/windows"
)

// CopyFileExW copy flags and progress-routine results.
const (
	copyFileNoBuffering               = 0x00001000
	copyFileRequestCompressedTraffic  = 0x10000000
	progressContinueWin               = 0
	progressCancelWin                 = 1
	progressQuietWin                  = 3

	// Source files above this size bypass the system cache.
	noBufferingThreshold = 10 << 20 // 10 MiB
)

var (
	modkernel32     = windows.NewLazySystemDLL("kernel32.dll")
	procCopyFileExW = modkernel32.NewProc("CopyFileExW")
)

// callbacks routes the OS progress routine back to the Go transfer in
// flight. CopyFileExW hands us an opaque lpData word; storing a registry key
// there avoids passing a Go pointer across the syscall boundary.
var callbacks struct {
	sync.Mutex
	next  uintptr
	calls map[uintptr]*nativeCall
}

type nativeCall struct {
	cancel *Canceller
	sink   ProgressSink
	quiet  bool
}

func registerCall(c *nativeCall) uintptr {
	callbacks.Lock()
	defer callbacks.Unlock()
	if callbacks.calls == nil {
		callbacks.calls = make(map[uintptr]*nativeCall)
	}
	callbacks.next++
	callbacks.calls[callbacks.next] = c
	return callbacks.next
}

func unregisterCall(key uintptr) {
	callbacks.Lock()
	defer callbacks.Unlock()
	delete(callbacks.calls, key)
}

func lookupCall(key uintptr) *nativeCall {
	callbacks.Lock()
	defer callbacks.Unlock()
	return callbacks.calls[key]
}

// progressRoutine is the single shared CopyProgressRoutine. Created once;
// windows.NewCallback allocations are permanent.
var progressRoutine = sync.OnceValue(func() uintptr {
	return windows.NewCallback(func(
		totalFileSize, totalBytesTransferred int64,
		streamSize, streamBytesTransferred int64,
		streamNumber, callbackReason uint32,
		srcFile, dstFile windows.Handle,
		lpData uintptr,
	) uintptr {
		call := lookupCall(lpData)
		if call == nil {
			return progressContinueWin
		}
		if call.cancel.Requested() {
			return progressCancelWin
		}
		if call.quiet {
			return progressContinueWin
		}
		switch call.sink.OnProgress(totalBytesTransferred) {
		case ProgressCancel:
			return progressCancelWin
		case ProgressQuiet:
			call.quiet = true
			return progressQuietWin
		default:
			return progressContinueWin
		}
	})
})

// 🚀 NativeBackend drives CopyFileExW, letting the kernel move the bytes and
// calling back into the progress sink as it goes.
type NativeBackend struct{}

// NewNativeBackend probes for the native primitive. The probe runs once per
// session: a *BackendInitError here means the whole session falls back to
// the streamed backend, with no per-file retry.
func NewNativeBackend() (*NativeBackend, error) {
	if err := procCopyFileExW.Find(); err != nil {
		return nil, &BackendInitError{Err: err}
	}
	return &NativeBackend{}, nil
}

func (b *NativeBackend) Name() string { return "native" }

// Copy transfers one file via CopyFileExW. Cancellation is honored by
// returning PROGRESS_CANCEL from the progress routine, which makes the
// primitive abort and delete its own partial destination.
func (b *NativeBackend) Copy(ctx context.Context, task FileTask, cancel *Canceller, sink ProgressSink) error {
	src, err := windows.UTF16PtrFromString(task.SourcePath)
	if err != nil {
		return &NativeCopyError{Path: task.SourcePath, Err: errors.Errorf("encoding source path: %w", err)}
	}
	dst, err := windows.UTF16PtrFromString(task.DestPath)
	if err != nil {
		return &NativeCopyError{Path: task.DestPath, Err: errors.Errorf("encoding destination path: %w", err)}
	}

	key := registerCall(&nativeCall{cancel: cancel, sink: sink})
	defer unregisterCall(key)

	ret, _, callErr := procCopyFileExW.Call(
		uintptr(unsafe.Pointer(src)),
		uintptr(unsafe.Pointer(dst)),
		progressRoutine(),
		key,
		0, // pbCancel unused; cancellation flows through the progress routine
		uintptr(copyFlags(task)),
	)
	if ret == 0 {
		if cancel.Requested() {
			return errors.WithStack(ErrCancelled)
		}
		code := uint64(0)
		if errno, ok := callErr.(windows.Errno); ok {
			code = uint64(errno)
		}
		return &NativeCopyError{Path: task.SourcePath, Code: code, Err: callErr}
	}
	return nil
}

// copyFlags selects per-file flags: skip the system cache for large files,
// ask SMB for compressed traffic when the destination is remote.
func copyFlags(task FileTask) uint32 {
	var flags uint32
	if task.Size > noBufferingThreshold {
		flags |= copyFileNoBuffering
	}
	if isNetworkPath(task.DestPath) {
		flags |= copyFileRequestCompressedTraffic
	}
	return flags
}

// isNetworkPath reports whether path is a UNC path or sits on a
// network-mapped drive.
func isNetworkPath(path string) bool {
	if strings.HasPrefix(path, `\\`) {
		return true
	}
	vol := filepath.VolumeName(path)
	if vol == "" {
		return false
	}
	root, err := windows.UTF16PtrFromString(vol + `\`)
	if err != nil {
		return false
	}
	return windows.GetDriveType(root) == windows.DRIVE_REMOTE
}
