/*
Package copyengine implements the file transfer core of copyfx.

	             +--------------+
	             | Orchestrator |
	             |  (per batch) |
	             +------+-------+
	                    |
	     +--------------+--------------+
	     |              |              |
	+----+----+    +----+-----+   +----+-----+
	| Backend |    | Reporter |   | Reclaimer|
	| (native |    | (snap-   |   | (partial |
	| /stream)|    |  shots)  |   |  files)  |
	+---------+    +----------+   +----------+

🎯 Purpose:
- Copies batches of files through a native OS primitive or a buffered stream
- Tracks per-file and overall progress as emitted snapshots
- Estimates smoothed transfer speed over a rolling sample window
- Cancels cooperatively and reclaims partially written destinations

🔄 Flow:
1. Orchestrator sizes every source up front
2. Backend moves the bytes of one file at a time
3. Reporter throttles progress into snapshots for the renderer
4. Reclaimer removes partial output after aborts and failures

⚡ Key Responsibilities:
- Single-threaded transfer path with no locking on counters
- Cancellation polled at suspension points, never preemptive
- Per-file failures warn and continue; only an unmeasurable source
  fails the batch

🤝 Interfaces:
- Backend: one-file byte transfer (native or streamed)
- ProgressSink: per-file byte counts flowing out of a backend
- Emitter: throttled snapshots flowing to a renderer
*/
package copyengine
