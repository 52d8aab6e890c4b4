// Package database provides the PostgreSQL connection pool used to persist
// console transcripts.
//
// Schema:
//   - console_transcript: one row per console line, keyed by session and sequence
package database
