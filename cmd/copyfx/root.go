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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/copyfx/copyfx/pkg/config"
	"github.com/copyfx/copyfx/pkg/copyengine"
	"github.com/copyfx/copyfx/pkg/log"
	"github.com/copyfx/copyfx/pkg/render"
	"github.com/copyfx/copyfx/pkg/resolve"
)

// rootFlags holds every command line flag of the root command.
type rootFlags struct {
	configFile  string
	overwrite   bool
	noNative    bool
	passthrough bool
	recursive   bool
	include     []string
	exclude     []string
	bufferSize  int
	quiet       bool
	debug       bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "copyfx [flags] SOURCE... DEST",
		Short: "Copy files with progress, speed estimation and clean cancellation",
		Long: `copyfx copies files and directory trees with live progress bars,
smoothed transfer-speed estimation, and cooperative cancellation that
cleans up partially written destinations.

Sources may be literal paths, directories, or glob patterns (including **).
With --config, sources and destination come from the config file instead
of the command line.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runCopy(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "config file (.yaml, .hcl or .json)")
	cmd.Flags().BoolVarP(&flags.overwrite, "overwrite", "o", false, "replace existing destination files")
	cmd.Flags().BoolVar(&flags.noNative, "no-native", false, "skip the OS copy primitive, always stream")
	cmd.Flags().BoolVar(&flags.passthrough, "passthrough", false, "print copied destination paths to stdout")
	cmd.Flags().BoolVarP(&flags.recursive, "recurse", "r", false, "descend into directory sources")
	cmd.Flags().StringSliceVar(&flags.include, "include", nil, "copy only files matching these patterns")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "skip files matching these patterns")
	cmd.Flags().IntVar(&flags.bufferSize, "buffer-size", 0, "streamed copy chunk size in bytes (0 = 4 MiB)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "no progress bars, only the final summary")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	return cmd
}

// buildConfig merges the config file (if any) with command line flags and
// positional arguments. Flags that were set explicitly win over the file.
func buildConfig(ctx context.Context, cmd *cobra.Command, args []string, flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	if flags.configFile != "" {
		loaded, err := config.Load(ctx, flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		if len(args) < 2 {
			return nil, errors.New("need at least one SOURCE and a DEST (or --config)")
		}
		cfg = &config.Config{
			Sources:     args[:len(args)-1],
			Destination: args[len(args)-1],
		}
	}

	if cmd.Flags().Changed("overwrite") {
		cfg.Overwrite = flags.overwrite
	}
	if cmd.Flags().Changed("no-native") {
		native := !flags.noNative
		cfg.Native = &native
	}
	if cmd.Flags().Changed("passthrough") {
		cfg.Passthrough = flags.passthrough
	}
	if cmd.Flags().Changed("recurse") {
		cfg.Recursive = flags.recursive
	}
	if cmd.Flags().Changed("buffer-size") {
		cfg.BufferSize = flags.bufferSize
	}
	if len(flags.include) > 0 || len(flags.exclude) > 0 {
		if cfg.Filter == nil {
			cfg.Filter = &config.FilterArgs{}
		}
		cfg.Filter.Include = append(cfg.Filter.Include, flags.include...)
		cfg.Filter.Exclude = append(cfg.Filter.Exclude, flags.exclude...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCopy(cmd *cobra.Command, args []string, flags *rootFlags) error {
	level := zerolog.WarnLevel
	if flags.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.Ctx(cmd.Context()).Level(level)
	ctx := logger.WithContext(cmd.Context())

	cfg, err := buildConfig(ctx, cmd, args, flags)
	if err != nil {
		return err
	}

	var filter resolve.Options
	filter.Recursive = cfg.Recursive
	if cfg.Filter != nil {
		filter.Include = cfg.Filter.Include
		filter.Exclude = cfg.Filter.Exclude
	}

	tasks, err := resolve.Resolve(ctx, cfg.Sources, cfg.Destination, filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return errors.New("no files matched the given sources")
	}

	// Ctrl-C requests a cooperative stop; the engine finishes its current
	// chunk, reclaims partial output, and reports a cancelled result.
	canceller := &copyengine.Canceller{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		canceller.Request()
	}()

	reclaim := copyengine.DefaultReclaimOptions()
	if cfg.Reclaim != nil {
		if cfg.Reclaim.MaxAttempts > 0 {
			reclaim.MaxAttempts = cfg.Reclaim.MaxAttempts
		}
		if initial, max := cfg.Reclaim.Backoffs(); initial > 0 || max > 0 {
			if initial > 0 {
				reclaim.InitialBackoff = initial
			}
			if max > 0 {
				reclaim.MaxBackoff = max
			}
		}
	}

	opts := copyengine.Options{
		Overwrite:    cfg.Overwrite,
		PreferNative: cfg.UseNative(),
		Passthrough:  cfg.Passthrough,
		Reclaim:      reclaim,
		BufferSize:   cfg.BufferSize,
	}

	console := log.New(os.Stderr, level)
	ctx = log.NewContext(ctx, console)
	console.Header(cfg.String())

	var totalBytes int64
	for _, task := range tasks {
		totalBytes += task.Size
	}
	backendName := "streamed"
	if opts.PreferNative {
		backendName = "native"
	}
	console.StartBatch(ctx, log.BatchOperation{
		Destination: cfg.Destination,
		FileCount:   len(tasks),
		TotalBytes:  totalBytes,
		Backend:     backendName,
	})

	var renderer *render.Renderer
	var emitter copyengine.Emitter
	if !flags.quiet {
		renderer = render.New(os.Stderr)
		emitter = renderer
	}

	orch := copyengine.New(opts, canceller, emitter)

	var result *copyengine.Result
	g, gctx := errgroup.WithContext(ctx)
	if renderer != nil {
		g.Go(func() error {
			if err := renderer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		if renderer != nil {
			defer renderer.Close()
		}
		r, err := orch.Run(gctx, tasks)
		result = r
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Progress bars are gone; print the per-file lines and the summary.
	reportResults(ctx, result)

	// Passthrough prints one destination path per line on stdout, so the
	// output can feed a pipeline while bars and summaries stay on stderr.
	if cfg.Passthrough {
		for _, dest := range result.Copied {
			fmt.Fprintln(os.Stdout, dest)
		}
	}

	if result.FilesFailed > 0 {
		return errors.Errorf("%d file(s) failed to copy", result.FilesFailed)
	}
	return nil
}

// reportResults prints one ✓/−/✗ line per finished file and the closing
// summary. The console logger rides the context, the way the engine's
// structured logger does.
func reportResults(ctx context.Context, result *copyengine.Result) {
	console := log.FromContext(ctx)

	for _, f := range result.Files {
		console.LogFileResult(ctx, log.FileResult{
			Path:    f.RelativePath,
			Bytes:   f.Bytes,
			Copied:  f.Copied,
			Skipped: f.Skipped,
			Failed:  f.Failed,
		})
	}
	console.EndBatch(ctx)
	console.LogNewline()

	switch {
	case result.Cancelled:
		console.Warningf("cancelled: %s", result.Summary())
	case result.FilesFailed > 0:
		console.Warningf("%s (%d failed, %d skipped)", result.Summary(), result.FilesFailed, result.FilesSkipped)
	default:
		console.Success(result.Summary())
	}
}
