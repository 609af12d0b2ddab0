// Package mcpserver exposes the model queries as MCP tools over stdio or
// streamable HTTP. It holds no business logic: tool handlers decode
// arguments, call the query service, and encode results as JSON content.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"threejsmcp/internal/modelquery"
	"threejsmcp/internal/observability/middleware"
)

const (
	serverName    = "threejs"
	serverVersion = "0.1.0"

	toolSearchModels    = "threejs_search_models"
	toolGetGltfModelURL = "threejs_get_gltf_model_url"
)

// Queries is the slice of the model query service the tools consume.
type Queries interface {
	Search(ctx context.Context, query string, limit int) ([]modelquery.ModelSummary, error)
	ResolveDownloadURL(ctx context.Context, modelID, format string) (*modelquery.DownloadResolution, error)
}

// Server wires the MCP tool surface to the query service.
type Server struct {
	queries    Queries
	mcpServer  *server.MCPServer
	httpServer *http.Server

	// downloadEnabled gates the download-URL tool: without token material the
	// upstream download endpoint can never succeed, so the tool is not
	// advertised at all.
	downloadEnabled bool
}

// New creates the MCP server and registers the tool set.
func New(queries Queries, downloadEnabled bool) (*Server, error) {
	if queries == nil {
		return nil, fmt.Errorf("missing query service")
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false), // static tool set, no notifications
		server.WithRecovery(),
	)

	s := &Server{
		queries:         queries,
		mcpServer:       mcpServer,
		downloadEnabled: downloadEnabled,
	}
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool(toolSearchModels,
		mcp.WithDescription("Search for 3D models on Sketchfab that match your query."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term for 3D models (e.g., 'car', 'house', 'character')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-24, default: 10)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchModels)

	if !s.downloadEnabled {
		return
	}

	gltfURLTool := mcp.NewTool(toolGetGltfModelURL,
		mcp.WithDescription("Get direct url of a GLTF file for a Sketchfab model without downloading it"),
		mcp.WithString("model_id",
			mcp.Required(),
			mcp.Description("The uid of the model returned in the Sketchfab search response."),
		),
	)
	s.mcpServer.AddTool(gltfURLTool, s.handleGetGltfModelURL)
}

// ServeStdio serves the tool surface over stdin/stdout and blocks until the
// context is cancelled or the client closes the stream.
func (s *Server) ServeStdio(ctx context.Context) error {
	slog.InfoContext(ctx, "serving MCP over stdio", "download_tool", s.downloadEnabled)
	return server.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

// StartHTTP starts the streamable HTTP transport in the background and
// returns immediately.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors are sent to the returned channel. The caller is responsible
// for calling Shutdown() to stop the server.
func (s *Server) StartHTTP(ctx context.Context, address string) (<-chan error, error) {
	// Create the listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	handler := middleware.Apply(
		server.NewStreamableHTTPServer(s.mcpServer),
		middleware.Logging(slog.Default()),
		middleware.Recovery,
	)

	s.httpServer = &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second, // Bounds reading the client request (slow-client protection)
		WriteTimeout: 5 * time.Minute,  // Streamable HTTP sessions hold responses open, still bounded
		IdleTimeout:  90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.httpServer.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "serving MCP over HTTP", "address", address, "download_tool", s.downloadEnabled)

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP transport, if running.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.httpServer.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
