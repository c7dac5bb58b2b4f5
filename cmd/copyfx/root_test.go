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

package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func TestRootCmd_CopiesFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	err := execute(t, "--quiet", src, dstDir)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestRootCmd_RequiresSourcesAndDest(t *testing.T) {
	err := execute(t, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOURCE")
}

func TestRootCmd_SkipsExistingByDefault(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	dst := filepath.Join(dstDir, "a.txt")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	require.NoError(t, execute(t, "--quiet", src, dstDir))
	got, _ := os.ReadFile(dst)
	assert.Equal(t, []byte("old"), got, "existing file stays without --overwrite")

	require.NoError(t, execute(t, "--quiet", "--overwrite", src, dstDir))
	got, _ = os.ReadFile(dst)
	assert.Equal(t, []byte("new"), got, "--overwrite replaces the destination")
}

func TestRootCmd_RecursiveWithExclude(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "keep.txt"), []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "deep.txt"), []byte("d"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "skip.log"), []byte("s"), 0o644))

	err := execute(t, "--quiet", "-r", "--exclude", "*.log", srcDir, dstDir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dstDir, "keep.txt"))
	assert.FileExists(t, filepath.Join(dstDir, "sub", "deep.txt"))
	assert.NoFileExists(t, filepath.Join(dstDir, "sub", "skip.log"))
}

func TestRootCmd_PerFileLinesOnStderrPassthroughOnStdout(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "b.txt"), []byte("old"), 0o644))

	origErr, origOut := os.Stderr, os.Stdout
	errR, errW, err := os.Pipe()
	require.NoError(t, err)
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr, os.Stdout = errW, outW

	execErr := execute(t, "--quiet", "--passthrough",
		filepath.Join(srcDir, "a.txt"), filepath.Join(srcDir, "b.txt"), dstDir)

	os.Stderr, os.Stdout = origErr, origOut
	require.NoError(t, errW.Close())
	require.NoError(t, outW.Close())
	stderrOut, err := io.ReadAll(errR)
	require.NoError(t, err)
	stdoutOut, err := io.ReadAll(outR)
	require.NoError(t, err)

	require.NoError(t, execErr)

	// One result line per file on stderr.
	assert.Contains(t, string(stderrOut), "a.txt")
	assert.Contains(t, string(stderrOut), "copied")
	assert.Contains(t, string(stderrOut), "b.txt")
	assert.Contains(t, string(stderrOut), "skipped")

	// Stdout carries exactly the passthrough paths, nothing else.
	assert.Equal(t, filepath.Join(dstDir, "a.txt")+"\n", string(stdoutOut))
}

func TestRootCmd_ConfigFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "a.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	cfgPath := filepath.Join(t.TempDir(), "copyfx.yaml")
	cfg := "sources:\n  - " + src + "\ndestination: " + dstDir + "\nnative: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	err := execute(t, "--quiet", "-c", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dstDir, "a.bin"))
}
