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
	"time"

	"github.com/rs/zerolog"
)

// 🧹 ReclaimOptions tunes the best-effort deletion of partially written
// output. The defaults tolerate transient lock contention from indexers and
// antivirus scanners without stalling the batch forever.
type ReclaimOptions struct {
	MaxAttempts    int           // total delete attempts before giving up
	InitialBackoff time.Duration // wait before the second attempt
	MaxBackoff     time.Duration // backoff cap; doubling stops here
}

// DefaultReclaimOptions returns the standard retry policy: 30 attempts,
// backoff doubling from 100ms up to a 10s cap.
func DefaultReclaimOptions() ReclaimOptions {
	return ReclaimOptions{
		MaxAttempts:    30,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// 🧹 Reclaimer deletes a partial destination file after an aborted or failed
// transfer. Deletion is best effort: exhausting the retry budget surfaces a
// *CleanupError warning, never a batch failure.
type Reclaimer struct {
	opts ReclaimOptions
}

// NewReclaimer creates a reclaimer with the given policy. Zero-valued fields
// fall back to the defaults.
func NewReclaimer(opts ReclaimOptions) *Reclaimer {
	def := DefaultReclaimOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	return &Reclaimer{opts: opts}
}

// Reclaim removes path, retrying with increasing backoff. A read-only
// attribute is cleared before the first retry; a permission-denied failure
// triggers one attempt to grant the current identity full control. A missing
// file counts as success.
func (r *Reclaimer) Reclaim(ctx context.Context, path string) error {
	logger := zerolog.Ctx(ctx)

	backoff := r.opts.InitialBackoff
	elevated := false

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > r.opts.MaxBackoff {
				backoff = r.opts.MaxBackoff
			}
		}

		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			if attempt > 1 {
				logger.Debug().Str("path", path).Int("attempt", attempt).Msg("partial file removed after retry")
			}
			return nil
		}
		lastErr = err

		if attempt == 1 {
			if cerr := clearReadOnly(path); cerr != nil {
				logger.Debug().Str("path", path).Err(cerr).Msg("clearing read-only attribute failed")
			}
		}
		if os.IsPermission(err) && !elevated {
			elevated = true
			if gerr := grantFullControl(path); gerr != nil {
				logger.Debug().Str("path", path).Err(gerr).Msg("permission elevation attempt failed")
			}
		}

		logger.Debug().Str("path", path).Int("attempt", attempt).Err(err).Msg("partial file delete retry")
	}

	return &CleanupError{Path: path, Attempts: r.opts.MaxAttempts, Err: lastErr}
}
