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

// 📄 FileTask is one planned transfer, produced by the resolver and consumed
// once by the orchestrator. Immutable once created.
type FileTask struct {
	SourcePath   string // Absolute or caller-relative path to read from
	DestPath     string // Full destination path to write to
	RelativePath string // Display path, relative to the resolved root
	Size         int64  // Source size in bytes at resolve time
}

// 📦 Session holds the counters for one batch invocation. It is owned by the
// orchestrator and mutated only on the single transfer path, so it needs no
// locking.
type Session struct {
	Tasks          []FileTask
	TotalBytes     int64
	BytesCopied    int64 // sum of sizes of completed files; the in-flight file's progress is not included
	FilesCompleted int
	StartTime      time.Time
}

// 🏭 NewSession snapshots the task list and stamps the start time. TotalBytes
// is filled in by the orchestrator after the up-front size pass.
func NewSession(tasks []FileTask) *Session {
	return &Session{
		Tasks:     tasks,
		StartTime: time.Now(),
	}
}

// Elapsed returns wall time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}
