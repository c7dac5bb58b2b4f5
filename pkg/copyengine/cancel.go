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

import "sync/atomic"

// 🛑 Canceller holds the single cooperative cancellation flag for a batch.
// Request is safe to call from a signal handler; the transfer path polls
// Requested at its suspension points and never blocks on it. The flag is
// never reset mid-session.
type Canceller struct {
	requested atomic.Bool
}

// Request marks cancellation. Idempotent.
func (c *Canceller) Request() {
	c.requested.Store(true)
}

// Requested reports whether cancellation has been asked for.
func (c *Canceller) Requested() bool {
	return c.requested.Load()
}
