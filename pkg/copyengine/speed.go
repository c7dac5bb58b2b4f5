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

import "time"

// speedWindow bounds the rolling sample buffer. Oldest sample is evicted
// first once the window is full.
const speedWindow = 100

// 📈 SpeedEstimator keeps a rolling window of instantaneous throughput
// samples and exposes their arithmetic mean as the smoothed current rate.
// It is touched only by the single active transfer path.
type SpeedEstimator struct {
	rates [speedWindow]float64
	head  int
	count int
	sum   float64

	started   bool
	lastTime  time.Time
	lastBytes int64
}

// Sample records a cumulative byte counter observation at the given time and
// returns the smoothed rate in bytes per second.
//
// A counter lower than the previous observation means the caller restarted
// per-file counting (the native primitive does this at each file boundary);
// the estimator re-anchors on the new value instead of computing a negative
// delta. Zero or negative elapsed time returns 0 without mutating state.
func (e *SpeedEstimator) Sample(now time.Time, cumulativeBytes int64) float64 {
	if !e.started {
		e.started = true
		e.lastTime = now
		e.lastBytes = cumulativeBytes
		return e.Rate()
	}

	if cumulativeBytes < e.lastBytes {
		// Counter reset at a file boundary: re-anchor, keep the window.
		e.lastTime = now
		e.lastBytes = cumulativeBytes
		return e.Rate()
	}

	elapsed := now.Sub(e.lastTime).Seconds()
	if elapsed <= 0 {
		return 0
	}

	rate := float64(cumulativeBytes-e.lastBytes) / elapsed
	e.push(rate)
	e.lastTime = now
	e.lastBytes = cumulativeBytes

	return e.Rate()
}

// Rate returns the mean of all retained samples, 0 when the window is empty.
// Never negative.
func (e *SpeedEstimator) Rate() float64 {
	if e.count == 0 {
		return 0
	}
	mean := e.sum / float64(e.count)
	if mean < 0 {
		return 0
	}
	return mean
}

func (e *SpeedEstimator) push(rate float64) {
	if e.count == speedWindow {
		e.sum -= e.rates[e.head]
	} else {
		e.count++
	}
	e.rates[e.head] = rate
	e.sum += rate
	e.head = (e.head + 1) % speedWindow
}
