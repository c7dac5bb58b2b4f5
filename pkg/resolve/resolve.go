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

// Package resolve turns raw source arguments into the ordered task list the
// copy engine consumes: wildcard expansion, directory walking, and
// include/exclude filtering.
package resolve

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/copyfx/copyfx/pkg/copyengine"
)

// ⚙️ Options controls resolution.
type Options struct {
	Recursive bool     // descend into directories
	Include   []string // keep only paths matching one of these (empty keeps all)
	Exclude   []string // drop paths matching one of these; wins over Include
}

// 🔍 Resolve expands each source argument (literal path, glob pattern, or
// directory) into copy tasks targeting destDir. Order is deterministic:
// sources in argument order, glob matches and walked trees in lexical order.
func Resolve(ctx context.Context, sources []string, destDir string, opts Options) ([]copyengine.FileTask, error) {
	logger := zerolog.Ctx(ctx)

	if len(sources) == 0 {
		return nil, errors.New("at least one source is required")
	}
	if destDir == "" {
		return nil, errors.New("destination is required")
	}

	var tasks []copyengine.FileTask
	for _, src := range sources {
		paths, err := expand(src)
		if err != nil {
			return nil, errors.Errorf("expanding source %q: %w", src, err)
		}
		if len(paths) == 0 {
			logger.Warn().Str("source", src).Msg("source matched no files")
			continue
		}

		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				return nil, errors.Errorf("inspecting source %q: %w", p, err)
			}
			if info.IsDir() {
				dirTasks, err := resolveDir(ctx, p, destDir, opts)
				if err != nil {
					return nil, err
				}
				tasks = append(tasks, dirTasks...)
				continue
			}

			rel := filepath.Base(p)
			if !keep(rel, opts) {
				logger.Debug().Str("file", rel).Msg("filtered by pattern")
				continue
			}
			tasks = append(tasks, copyengine.FileTask{
				SourcePath:   p,
				DestPath:     filepath.Join(destDir, rel),
				RelativePath: rel,
				Size:         info.Size(),
			})
		}
	}

	return tasks, nil
}

// expand turns one source argument into concrete paths. Arguments without
// glob metacharacters pass through as literals so missing files surface as
// stat errors, not silent empty matches.
func expand(src string) ([]string, error) {
	pattern := filepath.ToSlash(src)
	if !hasMeta(pattern) {
		return []string{src}, nil
	}
	matches, err := doublestar.FilepathGlob(src)
	if err != nil {
		return nil, errors.Errorf("bad pattern: %w", err)
	}
	return matches, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// resolveDir collects the files of a directory source. Non-recursive mode
// takes only the top level, mirroring what a shell glob of dir/* would see.
func resolveDir(ctx context.Context, dir, destDir string, opts Options) ([]copyengine.FileTask, error) {
	logger := zerolog.Ctx(ctx)

	var tasks []copyengine.FileTask
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %q: %w", path, err)
		}
		if d.IsDir() {
			if path != dir && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debug().Str("path", path).Str("type", d.Type().String()).Msg("skipping non-regular file")
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Errorf("relativizing %q: %w", path, err)
		}
		if !keep(rel, opts) {
			logger.Debug().Str("file", rel).Msg("filtered by pattern")
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Errorf("inspecting %q: %w", path, err)
		}
		tasks = append(tasks, copyengine.FileTask{
			SourcePath:   path,
			DestPath:     filepath.Join(destDir, rel),
			RelativePath: rel,
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// keep applies include/exclude patterns to a relative path. Patterns match
// against the slashed relative path and against the basename, so "*.log"
// excludes logs at any depth. Exclude wins over Include.
func keep(rel string, opts Options) bool {
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)

	if matchAny(opts.Exclude, slashed, base) {
		return false
	}
	if len(opts.Include) == 0 {
		return true
	}
	return matchAny(opts.Include, slashed, base)
}

func matchAny(patterns []string, slashed, base string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
