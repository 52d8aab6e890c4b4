// Package writer persists console lines in batches.
//
// TranscriptWriter is a router sink: each line becomes one row of
// console_transcript under the writer's session id. Rows are insert-only and
// a repeated (session_id, seq) is ignored.
package writer
