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

// Package render draws terminal progress bars from engine snapshots. It is
// the only package that knows snapshots become pterm bars; the engine never
// waits on the terminal.
package render

import (
	"context"
	"io"

	"github.com/pterm/pterm"

	"github.com/copyfx/copyfx/pkg/copyengine"
	"github.com/copyfx/copyfx/pkg/log"
)

// snapshotBuffer sizes the intake channel. The engine emits at most ten
// snapshots per second per bar, so a small buffer absorbs terminal hiccups.
const snapshotBuffer = 64

// 🖥️ Renderer consumes progress snapshots and keeps one pterm progress bar
// per bar id, nested under a shared MultiPrinter area.
type Renderer struct {
	snaps chan copyengine.Snapshot
	out   io.Writer
}

// 🏭 New creates a renderer writing to out.
func New(out io.Writer) *Renderer {
	return &Renderer{
		snaps: make(chan copyengine.Snapshot, snapshotBuffer),
		out:   out,
	}
}

// Emit hands a snapshot to the render loop. Never blocks: if the terminal
// cannot keep up, intermediate snapshots are dropped. Terminal snapshots are
// re-emitted by the engine's finish path, so a drop here only costs one frame.
func (r *Renderer) Emit(s copyengine.Snapshot) {
	select {
	case r.snaps <- s:
	default:
	}
}

// Close signals the render loop that no more snapshots will arrive. Call
// exactly once, after the engine has finished.
func (r *Renderer) Close() {
	close(r.snaps)
}

// 🏃 Run drains snapshots and drives the bars until Close or context
// cancellation. Meant to run on its own goroutine alongside the engine.
func (r *Renderer) Run(ctx context.Context) error {
	multi := pterm.DefaultMultiPrinter.WithWriter(r.out)
	if _, err := multi.Start(); err != nil {
		return err
	}
	defer multi.Stop()

	bars := map[string]*pterm.ProgressbarPrinter{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-r.snaps:
			if !ok {
				for _, bar := range bars {
					bar.Stop()
				}
				return nil
			}
			r.apply(multi, bars, s)
		}
	}
}

func (r *Renderer) apply(multi *pterm.MultiPrinter, bars map[string]*pterm.ProgressbarPrinter, s copyengine.Snapshot) {
	bar, ok := bars[s.BarID]
	if !ok {
		if s.Completed {
			return
		}
		started, err := pterm.DefaultProgressbar.
			WithTotal(100).
			WithWriter(multi.NewWriter()).
			WithShowCount(false).
			Start(title(s))
		if err != nil {
			return
		}
		bar = started
		bars[s.BarID] = bar
	}

	if s.Completed {
		bar.Add(bar.Total - bar.Current)
		bar.Stop()
		delete(bars, s.BarID)
		return
	}

	bar.UpdateTitle(title(s))
	target := s.FilePercent
	if s.BarID == copyengine.BarOverall {
		target = s.OverallPercent
	}
	if delta := target - bar.Current; delta > 0 {
		bar.Add(delta)
	}
}

// title renders the text left of a bar: file name and speed for file bars,
// completion count for the overall bar.
func title(s copyengine.Snapshot) string {
	if s.BarID == copyengine.BarOverall {
		if s.SpeedBPS > 0 {
			return s.OverallStatus + " " + log.FormatRate(s.SpeedBPS)
		}
		return s.OverallStatus
	}
	name := s.CurrentFile
	if name == "" {
		name = "copying"
	}
	if s.ParentBarID == "" && s.SpeedBPS > 0 {
		// Single-file batches have no overall bar to carry the speed.
		return name + " " + log.FormatRate(s.SpeedBPS)
	}
	return name
}
