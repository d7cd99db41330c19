// Package server provides the MCP server wrapper with lifecycle management.
package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Name is the implementation name announced to MCP clients.
const Name = "solsecurity"

// Server wraps the MCP server with dependencies and lifecycle management.
type Server struct {
	mcp    *mcp.Server
	logger zerolog.Logger
}

// New creates a new MCP server with the given version and logger.
func New(version string, logger zerolog.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    Name,
		Version: version,
	}

	return &Server{
		mcp:    mcp.NewServer(impl, nil),
		logger: logger.With().Str("component", "mcp").Logger(),
	}
}

// Run starts the server on stdio transport and blocks until disconnect or context cancellation.
// Stdout carries the protocol; logs go to stderr.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("transport", "stdio").Msg("Starting MCP server")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server for tool registration.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Setup adds middleware to the server.
func (s *Server) Setup() {
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger))
}
