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
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestReclaimer_RemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.bin")
	require.NoError(t, os.WriteFile(path, []byte("half written"), 0o644))

	r := NewReclaimer(ReclaimOptions{})
	require.NoError(t, r.Reclaim(testCtx(t), path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "partial file should be gone")
}

func TestReclaimer_MissingFileIsSuccess(t *testing.T) {
	dir := t.TempDir()
	r := NewReclaimer(ReclaimOptions{})
	assert.NoError(t, r.Reclaim(testCtx(t), filepath.Join(dir, "never-created.bin")))
}

func TestReclaimer_ClearsReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readonly.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(path, 0o444))

	r := NewReclaimer(ReclaimOptions{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	require.NoError(t, r.Reclaim(testCtx(t), path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "read-only file should still be removed")
}

func TestReclaimer_ExhaustsRetries(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on directory permissions blocking unlink")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	path := filepath.Join(locked, "partial.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	r := NewReclaimer(ReclaimOptions{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	err := r.Reclaim(testCtx(t), path)

	require.Error(t, err)
	var ce *CleanupError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Attempts, "error should carry the exhausted attempt count")
	assert.Equal(t, path, ce.Path)
}

func TestReclaimer_BackoffCap(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on directory permissions blocking unlink")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	path := filepath.Join(locked, "partial.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	// 6 attempts with doubling from 10ms would sleep 10+20+40+80+160 = 310ms
	// uncapped; a 10ms cap keeps the total around 50ms.
	r := NewReclaimer(ReclaimOptions{MaxAttempts: 6, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 10 * time.Millisecond})

	start := time.Now()
	err := r.Reclaim(testCtx(t), path)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 200*time.Millisecond, "backoff should be capped")
}

func TestDefaultReclaimOptions(t *testing.T) {
	opts := DefaultReclaimOptions()
	assert.Equal(t, 30, opts.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, opts.InitialBackoff)
	assert.Equal(t, 10*time.Second, opts.MaxBackoff)
}
