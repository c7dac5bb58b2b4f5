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
	"math"
	"time"
)

// Bar identifiers used in snapshots. The current-file bar nests under the
// overall bar when a batch has more than one file.
const (
	BarOverall = "overall"
	BarFile    = "file"
)

// emitInterval bounds reporting overhead on fast storage: between the
// initial and terminal states, at most one emission per interval.
const emitInterval = 100 * time.Millisecond

// 📸 Snapshot is one progress observation for one bar. Produced on demand,
// never stored; the renderer owns presentation.
type Snapshot struct {
	BarID          string
	ParentBarID    string // set on the file bar in multi-file batches
	OverallPercent int
	OverallStatus  string // e.g. "2/3 files"
	CurrentFile    string
	FilePercent    int
	SpeedBPS       float64
	Completed      bool // terminal marker: the renderer should clear this bar
}

// 📡 Emitter consumes snapshots. The engine never blocks on it; renderers
// that lag must drop, not stall the transfer.
type Emitter interface {
	Emit(s Snapshot)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(s Snapshot)

func (f EmitterFunc) Emit(s Snapshot) { f(s) }

// 📈 Reporter turns raw byte counters into hierarchical snapshots and
// throttles emission. Initial (0%) and terminal (100%/completed) states
// always go out; everything between is rate-limited.
type Reporter struct {
	emitter Emitter
	session *Session
	multi   bool // more than one file: overall bar + nested file bar

	interval time.Duration
	lastEmit time.Time
	opened   []string
	now      func() time.Time
}

// NewReporter builds a reporter for one session. A batch with a single task
// renders only the file bar, with speed folded into its status.
func NewReporter(emitter Emitter, session *Session) *Reporter {
	return &Reporter{
		emitter:  emitter,
		session:  session,
		multi:    len(session.Tasks) > 1,
		interval: emitInterval,
		now:      time.Now,
	}
}

// StartBatch emits the initial 0% overall state. Always emitted.
func (r *Reporter) StartBatch() {
	if r.multi {
		r.open(BarOverall)
		r.emitter.Emit(Snapshot{
			BarID:          BarOverall,
			OverallPercent: 0,
			OverallStatus:  r.overallStatus(),
		})
	}
	r.lastEmit = r.now()
}

// FileStarted emits the 0% state for a newly begun file. Always emitted.
func (r *Reporter) FileStarted(task FileTask) {
	r.open(BarFile)
	r.emitter.Emit(r.fileSnapshot(task, 0, 0))
	r.lastEmit = r.now()
}

// FileProgress emits the current state if the throttle interval has passed.
func (r *Reporter) FileProgress(task FileTask, fileBytes int64, speed float64) {
	now := r.now()
	if now.Sub(r.lastEmit) <= r.interval {
		return
	}
	r.emitAll(task, fileBytes, speed)
	r.lastEmit = now
}

// FileCompleted emits the 100% state for a finished file. Always emitted.
// The caller credits session counters before invoking this.
func (r *Reporter) FileCompleted(task FileTask, speed float64) {
	if r.multi {
		r.emitter.Emit(Snapshot{
			BarID:          BarOverall,
			OverallPercent: Percent(r.session.BytesCopied, r.session.TotalBytes),
			OverallStatus:  r.overallStatus(),
			SpeedBPS:       speed,
		})
	}
	s := r.fileSnapshot(task, task.Size, speed)
	s.FilePercent = 100 // a finished file is 100% even at size zero
	s.OverallPercent = Percent(r.session.BytesCopied, r.session.TotalBytes)
	r.emitter.Emit(s)
	r.lastEmit = r.now()
}

// FinishBatch emits a terminal completed marker for every bar that was
// opened, so the renderer can clear them. Always emitted, including on
// cancellation.
func (r *Reporter) FinishBatch() {
	for _, id := range r.opened {
		r.emitter.Emit(Snapshot{BarID: id, Completed: true})
	}
	r.opened = nil
}

func (r *Reporter) emitAll(task FileTask, fileBytes int64, speed float64) {
	if r.multi {
		r.emitter.Emit(Snapshot{
			BarID:          BarOverall,
			OverallPercent: Percent(r.session.BytesCopied+fileBytes, r.session.TotalBytes),
			OverallStatus:  r.overallStatus(),
			SpeedBPS:       speed,
		})
	}
	r.emitter.Emit(r.fileSnapshot(task, fileBytes, speed))
}

func (r *Reporter) fileSnapshot(task FileTask, fileBytes int64, speed float64) Snapshot {
	s := Snapshot{
		BarID:          BarFile,
		CurrentFile:    task.RelativePath,
		FilePercent:    Percent(fileBytes, task.Size),
		SpeedBPS:       speed,
		OverallPercent: Percent(r.session.BytesCopied+fileBytes, r.session.TotalBytes),
		OverallStatus:  r.overallStatus(),
	}
	if r.multi {
		s.ParentBarID = BarOverall
	}
	return s
}

func (r *Reporter) overallStatus() string {
	return fmt.Sprintf("%d/%d files", r.session.FilesCompleted, len(r.session.Tasks))
}

func (r *Reporter) open(id string) {
	for _, o := range r.opened {
		if o == id {
			return
		}
	}
	r.opened = append(r.opened, id)
}

// Percent converts a byte fraction to a rounded 0–100 value. The denominator
// is clamped to 1 so zero-length files jump straight to 100%.
func Percent(part, total int64) int {
	if total < 1 {
		total = 1
	}
	p := int(math.Round(float64(part) * 100 / float64(total)))
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}
