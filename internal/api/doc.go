// Package api is the HTTP client for the echo server's bootstrap endpoint.
//
// The console calls GET /setup before connecting to learn the websocket URL
// and, in token mode, a token minted for the requesting user:
//
//	GET /setup?user=alice
//	{"ws_url": "ws://localhost:8001/ws/", "token": "eyJhbGciOi..."}
package api
