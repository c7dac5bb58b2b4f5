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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// speedSampleInterval gates how often the estimator takes a sample: at most
// once per second of wall time, not once per progress callback.
const speedSampleInterval = time.Second

// ⚙️ Options is the configuration surface the CLI layer hands the engine.
type Options struct {
	Overwrite    bool // replace existing destination files
	PreferNative bool // probe the OS bulk-copy primitive before falling back
	Passthrough  bool // collect descriptors of successfully copied files

	Reclaim ReclaimOptions

	// BufferSize overrides the streamed backend's chunk size. Zero keeps
	// the 4 MiB default.
	BufferSize int
}

// 🧾 FileOutcome records how one task ended. A cancelled in-flight file gets
// no outcome row; cancellation is a batch-level state.
type FileOutcome struct {
	RelativePath string
	Bytes        int64
	Copied       bool
	Skipped      bool
	Failed       bool
}

// 🧾 Result summarizes one finished batch, successful or cancelled.
type Result struct {
	BytesCopied    int64
	FilesCompleted int
	FilesSkipped   int
	FilesFailed    int
	Elapsed        time.Duration
	Cancelled      bool

	// Files holds one outcome per finished task, in task order.
	Files []FileOutcome

	// Copied holds destination paths of completed files, in task order.
	// Populated only when Options.Passthrough is set.
	Copied []string
}

// Summary renders the elapsed/copied line shown at the end of every batch.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d file(s), %d bytes copied in %s",
		r.FilesCompleted, r.BytesCopied, FormatElapsed(r.Elapsed))
}

// 🏃 Orchestrator drives the per-file loop over a resolved task list:
// overwrite policy, backend selection, counter aggregation, and cleanup
// coordination. One orchestrator runs one batch.
type Orchestrator struct {
	opts      Options
	cancel    *Canceller
	emitter   Emitter
	reclaimer *Reclaimer
}

// New builds an orchestrator. A nil emitter discards snapshots, which keeps
// library callers that only want the Result honest.
func New(opts Options, cancel *Canceller, emitter Emitter) *Orchestrator {
	if cancel == nil {
		cancel = &Canceller{}
	}
	if emitter == nil {
		emitter = EmitterFunc(func(Snapshot) {})
	}
	return &Orchestrator{
		opts:      opts,
		cancel:    cancel,
		emitter:   emitter,
		reclaimer: NewReclaimer(opts.Reclaim),
	}
}

// Run copies each task in order. Only a failed up-front size pass aborts the
// batch; per-file failures are warnings and the loop moves on. Cancellation
// stops the loop at the next suspension point without starting new files.
func (o *Orchestrator) Run(ctx context.Context, tasks []FileTask) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	if len(tasks) == 0 {
		return nil, errors.New("no files to copy")
	}

	session := NewSession(tasks)
	if err := o.computeTotal(session); err != nil {
		return nil, err
	}

	backend := o.selectBackend(ctx)
	logger.Debug().
		Str("backend", backend.Name()).
		Int("files", len(session.Tasks)).
		Int64("total_bytes", session.TotalBytes).
		Msg("starting batch")

	reporter := NewReporter(o.emitter, session)
	estimator := &SpeedEstimator{}

	reporter.StartBatch()
	defer reporter.FinishBatch()

	result := &Result{}
	for i := range session.Tasks {
		task := session.Tasks[i]

		if o.cancel.Requested() {
			result.Cancelled = true
			break
		}

		if err := os.MkdirAll(filepath.Dir(task.DestPath), 0o755); err != nil {
			logger.Warn().Str("file", task.RelativePath).Err(err).Msg("creating destination directory")
			result.FilesFailed++
			result.Files = append(result.Files, FileOutcome{RelativePath: task.RelativePath, Failed: true})
			continue
		}

		if !o.opts.Overwrite {
			if _, err := os.Stat(task.DestPath); err == nil {
				logger.Warn().Str("file", task.RelativePath).Err(errors.WithStack(ErrAlreadyExists)).Msg("skipping")
				result.FilesSkipped++
				result.Files = append(result.Files, FileOutcome{RelativePath: task.RelativePath, Skipped: true})
				continue
			}
		}

		reporter.FileStarted(task)

		sink := &transferSink{
			cancel:    o.cancel,
			estimator: estimator,
			reporter:  reporter,
			session:   session,
			task:      task,
		}

		err := backend.Copy(ctx, task, o.cancel, sink)
		switch {
		case err == nil:
			session.BytesCopied += task.Size
			session.FilesCompleted++
			reporter.FileCompleted(task, estimator.Rate())
			result.Files = append(result.Files, FileOutcome{RelativePath: task.RelativePath, Bytes: task.Size, Copied: true})
			if o.opts.Passthrough {
				result.Copied = append(result.Copied, task.DestPath)
			}

		case errors.Is(err, ErrCancelled):
			logger.Info().Str("file", task.RelativePath).Msg("transfer cancelled")
			o.reclaim(ctx, backend, task, true)
			result.Cancelled = true

		default:
			logger.Warn().Str("file", task.RelativePath).Err(err).Msg("copy failed, continuing with next file")
			result.FilesFailed++
			result.Files = append(result.Files, FileOutcome{RelativePath: task.RelativePath, Failed: true})
			o.reclaim(ctx, backend, task, false)
		}

		if result.Cancelled || o.cancel.Requested() {
			result.Cancelled = true
			break
		}
	}

	result.BytesCopied = session.BytesCopied
	result.FilesCompleted = session.FilesCompleted
	result.Elapsed = session.Elapsed()

	logger.Info().
		Int("files_completed", result.FilesCompleted).
		Int("files_skipped", result.FilesSkipped).
		Int("files_failed", result.FilesFailed).
		Int64("bytes_copied", result.BytesCopied).
		Bool("cancelled", result.Cancelled).
		Str("elapsed", FormatElapsed(result.Elapsed)).
		Msg("batch finished")

	return result, nil
}

// computeTotal stats every source before the first byte moves. Any file that
// cannot be measured fails the whole batch: percentages need the total.
func (o *Orchestrator) computeTotal(session *Session) error {
	var total int64
	for i := range session.Tasks {
		info, err := os.Stat(session.Tasks[i].SourcePath)
		if err != nil {
			return &SizeCalculationError{Path: session.Tasks[i].SourcePath, Err: err}
		}
		session.Tasks[i].Size = info.Size()
		total += info.Size()
	}
	session.TotalBytes = total
	return nil
}

// selectBackend probes the native primitive once per session. Probe failure
// is an informational warning, never a batch failure: the streamed backend
// serves every remaining file with no per-file retry of the probe.
func (o *Orchestrator) selectBackend(ctx context.Context) Backend {
	if o.opts.PreferNative {
		native, err := NewNativeBackend()
		if err == nil {
			return native
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("native backend unavailable, using streamed backend for this session")
	}
	return NewStreamedBackend(o.opts.BufferSize)
}

// reclaim removes a partial destination after an aborted or failed transfer.
// The native primitive deletes its own partial on cancellation, so that one
// case is skipped. A reclaim failure is a warning; the batch goes on.
func (o *Orchestrator) reclaim(ctx context.Context, backend Backend, task FileTask, cancelled bool) {
	if cancelled && backend.Name() == "native" {
		return
	}
	if err := o.reclaimer.Reclaim(ctx, task.DestPath); err != nil {
		zerolog.Ctx(ctx).Warn().Str("file", task.RelativePath).Err(err).Msg("could not remove partial destination file")
	}
}

// transferSink is the per-file progress sink handed to the backend. It polls
// the canceller, samples speed at most once per second, and forwards the
// (throttled) emission to the reporter.
type transferSink struct {
	cancel    *Canceller
	estimator *SpeedEstimator
	reporter  *Reporter
	session   *Session
	task      FileTask

	lastSample time.Time
}

func (s *transferSink) OnProgress(fileBytes int64) ProgressAction {
	if s.cancel.Requested() {
		return ProgressCancel
	}

	now := time.Now()
	speed := s.estimator.Rate()
	if now.Sub(s.lastSample) >= speedSampleInterval {
		speed = s.estimator.Sample(now, s.session.BytesCopied+fileBytes)
		s.lastSample = now
	}

	s.reporter.FileProgress(s.task, fileBytes, speed)
	return ProgressContinue
}

// FormatElapsed renders wall time as "1h 2m 3s", "2m 3s" or "3s" depending
// on magnitude.
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
