// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Console connection state, connect attempts and close codes
//   - Message counts and bytes in each direction
//   - Rejected sends and events dropped from released connections
//   - Echo server sessions and auth failures
package metrics
