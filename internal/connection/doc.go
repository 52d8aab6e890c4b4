// Package connection implements the single-connection console core.
//
// The Controller:
//   - Holds at most one websocket connection at a time
//   - Opens, closes and reopens it on operator request
//   - Forwards every lifecycle event and message to a Presenter as a log line
//   - Tags each connection with a uuid and drops events from replaced ones
//
// There is no reconnection: a closed connection stays closed until Open is
// called again.
package connection
