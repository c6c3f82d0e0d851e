// Package api provides the HTTP API server for the memory service: a small
// REST surface plus the MCP streamable HTTP endpoint.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string
}
