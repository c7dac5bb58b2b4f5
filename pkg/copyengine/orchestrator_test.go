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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(t *testing.T, sizes map[string]int) (tasks []FileTask, srcDir, dstDir string) {
	t.Helper()
	srcDir = t.TempDir()
	dstDir = t.TempDir()

	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	// Stable order so tests can reason about "the second file".
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	for _, name := range names {
		src, _ := writeSource(t, srcDir, name, sizes[name])
		tasks = append(tasks, FileTask{
			SourcePath:   src,
			DestPath:     filepath.Join(dstDir, name),
			RelativePath: name,
		})
	}
	return tasks, srcDir, dstDir
}

func TestOrchestrator_CopiesBatch(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{
		"a.bin": 1000,
		"b.bin": 0,
		"c.bin": 5000,
	})

	o := New(Options{BufferSize: 512}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesCompleted)
	assert.Equal(t, int64(6000), result.BytesCopied, "bytes credited exactly once per file")
	assert.Equal(t, 0, result.FilesSkipped)
	assert.Equal(t, 0, result.FilesFailed)
	assert.False(t, result.Cancelled)

	for _, task := range tasks {
		want, rerr := os.ReadFile(task.SourcePath)
		require.NoError(t, rerr)
		got, rerr := os.ReadFile(task.DestPath)
		require.NoError(t, rerr)
		assert.Equal(t, want, got, "content mismatch for %s", task.RelativePath)
	}
}

func TestOrchestrator_EmptyTaskListFails(t *testing.T) {
	o := New(Options{}, nil, nil)
	_, err := o.Run(testCtx(t), nil)
	require.Error(t, err)
}

func TestOrchestrator_MissingSourceFailsBatchUpFront(t *testing.T) {
	tasks, srcDir, _ := makeTasks(t, map[string]int{"a.bin": 100, "b.bin": 100})
	tasks = append(tasks, FileTask{
		SourcePath:   filepath.Join(srcDir, "ghost.bin"),
		DestPath:     filepath.Join(t.TempDir(), "ghost.bin"),
		RelativePath: "ghost.bin",
	})

	o := New(Options{}, nil, nil)
	_, err := o.Run(testCtx(t), tasks)

	require.Error(t, err)
	var sce *SizeCalculationError
	require.ErrorAs(t, err, &sce, "an unmeasurable source fails the whole batch")

	// Nothing was copied: the size pass runs before the first byte moves.
	_, statErr := os.Stat(tasks[0].DestPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOrchestrator_SkipsExistingWithoutOverwrite(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 100, "b.bin": 200})
	require.NoError(t, os.WriteFile(tasks[0].DestPath, []byte("old content"), 0o644))

	o := New(Options{}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesSkipped)
	assert.Equal(t, 1, result.FilesCompleted)
	assert.Equal(t, int64(200), result.BytesCopied, "skipped files contribute no bytes")

	got, rerr := os.ReadFile(tasks[0].DestPath)
	require.NoError(t, rerr)
	assert.Equal(t, []byte("old content"), got, "existing destination must be untouched")
}

func TestOrchestrator_OverwriteReplacesExisting(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 100})
	require.NoError(t, os.WriteFile(tasks[0].DestPath, []byte("old content"), 0o644))

	o := New(Options{Overwrite: true}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesCompleted)
	want, _ := os.ReadFile(tasks[0].SourcePath)
	got, _ := os.ReadFile(tasks[0].DestPath)
	assert.Equal(t, want, got)
}

func TestOrchestrator_CancelBeforeRunCopiesNothing(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 100})

	cancel := &Canceller{}
	cancel.Request()

	o := New(Options{}, cancel, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.FilesCompleted)
	_, statErr := os.Stat(tasks[0].DestPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOrchestrator_CancelMidBatch(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{
		"a.bin": 100,
		"b.bin": 64 * 1024,
		"c.bin": 100,
	})

	cancel := &Canceller{}
	// Request cancellation once the second file starts reporting progress.
	emitter := EmitterFunc(func(s Snapshot) {
		if s.CurrentFile == "b.bin" {
			cancel.Request()
		}
	})

	o := New(Options{BufferSize: 4096}, cancel, emitter)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.FilesCompleted, "only the first file completes")
	assert.Equal(t, int64(100), result.BytesCopied)

	// The interrupted file's partial destination was reclaimed, and the
	// third file was never started.
	_, err = os.Stat(tasks[1].DestPath)
	assert.True(t, os.IsNotExist(err), "partial of the cancelled file should be reclaimed")
	_, err = os.Stat(tasks[2].DestPath)
	assert.True(t, os.IsNotExist(err), "no new file starts after cancellation")
}

func TestOrchestrator_RecordsPerFileOutcomes(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 100, "b.bin": 200})
	require.NoError(t, os.WriteFile(tasks[0].DestPath, []byte("old"), 0o644))

	o := New(Options{}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	require.Len(t, result.Files, 2, "one outcome per finished task")
	assert.Equal(t, FileOutcome{RelativePath: "a.bin", Skipped: true}, result.Files[0])
	assert.Equal(t, FileOutcome{RelativePath: "b.bin", Bytes: 200, Copied: true}, result.Files[1])
}

func TestOrchestrator_NoOutcomeForCancelledFile(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 100, "b.bin": 64 * 1024})

	cancel := &Canceller{}
	emitter := EmitterFunc(func(s Snapshot) {
		if s.CurrentFile == "b.bin" {
			cancel.Request()
		}
	})

	o := New(Options{BufferSize: 4096}, cancel, emitter)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	require.True(t, result.Cancelled)
	require.Len(t, result.Files, 1, "the cancelled in-flight file gets no outcome row")
	assert.True(t, result.Files[0].Copied)
}

func TestOrchestrator_PassthroughCollectsDestinations(t *testing.T) {
	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 10, "b.bin": 20})

	o := New(Options{Passthrough: true}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	require.Len(t, result.Copied, 2)
	assert.Equal(t, tasks[0].DestPath, result.Copied[0], "passthrough preserves task order")
	assert.Equal(t, tasks[1].DestPath, result.Copied[1])
}

func TestOrchestrator_NativeFallsBackToStreamed(t *testing.T) {
	if _, err := NewNativeBackend(); err == nil {
		t.Skip("native primitive available; fallback path not reachable")
	}

	tasks, _, _ := makeTasks(t, map[string]int{"a.bin": 1000})

	o := New(Options{PreferNative: true}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err, "probe failure must not fail the batch")
	assert.Equal(t, 1, result.FilesCompleted)
}

func TestOrchestrator_FailedFileDoesNotStopBatch(t *testing.T) {
	tasks, srcDir, dstDir := makeTasks(t, map[string]int{"a.bin": 100, "c.bin": 100})

	// Wedge an unreadable source between the two good ones. Size passes the
	// up-front stat but opening fails.
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	badSrc := filepath.Join(srcDir, "b.bin")
	require.NoError(t, os.WriteFile(badSrc, make([]byte, 100), 0o644))
	require.NoError(t, os.Chmod(badSrc, 0o000))
	bad := FileTask{SourcePath: badSrc, DestPath: filepath.Join(dstDir, "b.bin"), RelativePath: "b.bin"}
	tasks = []FileTask{tasks[0], bad, tasks[1]}

	o := New(Options{Reclaim: ReclaimOptions{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}}, nil, nil)
	result, err := o.Run(testCtx(t), tasks)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesCompleted, "good files on both sides of the failure complete")
	assert.Equal(t, 1, result.FilesFailed)
	assert.False(t, result.Cancelled)
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "seconds", d: 42 * time.Second, want: "42s"},
		{name: "minutes", d: 2*time.Minute + 3*time.Second, want: "2m 3s"},
		{name: "hours", d: time.Hour + 2*time.Minute + 3*time.Second, want: "1h 2m 3s"},
		{name: "sub_second", d: 400 * time.Millisecond, want: "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatElapsed(tt.d))
		})
	}
}
