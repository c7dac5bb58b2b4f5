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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpeedEstimator_ConstantRate(t *testing.T) {
	e := &SpeedEstimator{}
	base := time.Now()

	// First observation only anchors; no rate yet.
	rate := e.Sample(base, 0)
	assert.Equal(t, float64(0), rate, "first sample should report no rate")

	// 1 MiB per second, observed once per second.
	for i := 1; i <= 10; i++ {
		rate = e.Sample(base.Add(time.Duration(i)*time.Second), int64(i)<<20)
	}
	assert.InDelta(t, float64(1<<20), rate, 1, "steady transfer should report the constant rate")
	assert.InDelta(t, float64(1<<20), e.Rate(), 1, "Rate should match the last sample result")
}

func TestSpeedEstimator_NeverNegative(t *testing.T) {
	e := &SpeedEstimator{}
	base := time.Now()

	e.Sample(base, 1000)
	rate := e.Sample(base.Add(time.Second), 500) // counter went backwards

	assert.GreaterOrEqual(t, rate, float64(0), "rate must never be negative")
	assert.GreaterOrEqual(t, e.Rate(), float64(0), "smoothed rate must never be negative")
}

func TestSpeedEstimator_ReAnchorsOnCounterReset(t *testing.T) {
	e := &SpeedEstimator{}
	base := time.Now()

	e.Sample(base, 0)
	e.Sample(base.Add(time.Second), 4<<20)
	before := e.Rate()

	// Per-file counter restarted from zero at a file boundary.
	rate := e.Sample(base.Add(2*time.Second), 100)
	assert.Equal(t, before, rate, "reset should keep the window, not add a sample")

	// Next observation measures against the new anchor, not the old counter.
	rate = e.Sample(base.Add(3*time.Second), 100+4<<20)
	assert.InDelta(t, float64(4<<20), rate, 1, "post-reset sample should use the re-anchored baseline")
}

func TestSpeedEstimator_ZeroElapsed(t *testing.T) {
	e := &SpeedEstimator{}
	base := time.Now()

	e.Sample(base, 0)
	e.Sample(base.Add(time.Second), 1<<20)
	before := e.Rate()

	rate := e.Sample(base.Add(time.Second), 2<<20) // same timestamp as last sample
	assert.Equal(t, float64(0), rate, "zero elapsed returns 0")
	assert.Equal(t, before, e.Rate(), "zero elapsed must not mutate the window")
}

func TestSpeedEstimator_WindowEviction(t *testing.T) {
	e := &SpeedEstimator{}
	base := time.Now()

	// Fill the window at 1 B/s, then push it out with 100 B/s samples.
	e.Sample(base, 0)
	for i := 1; i <= speedWindow; i++ {
		e.Sample(base.Add(time.Duration(i)*time.Second), int64(i))
	}
	assert.InDelta(t, 1, e.Rate(), 0.01, "window full of slow samples")

	slowTotal := int64(speedWindow)
	for i := 1; i <= speedWindow; i++ {
		e.Sample(base.Add(time.Duration(speedWindow+i)*time.Second), slowTotal+int64(i)*100)
	}
	assert.InDelta(t, 100, e.Rate(), 0.01, "old samples should be fully evicted")
}
