package server

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
)

// HTTPServer serves the MCP streamable HTTP transport along with health
// check endpoints.
type HTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	httpServer       *http.Server
	healthChecker    *HealthChecker
	metrics          *instrumentation.Metrics
	disableStreaming bool
}

// NewHTTPServer creates an HTTP server for the given MCP server.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, disableStreaming bool) *HTTPServer {
	return &HTTPServer{
		mcpServer:        mcpSrv,
		disableStreaming: disableStreaming,
	}
}

// SetHealthChecker installs the health checker whose endpoints are
// registered on Start.
func (s *HTTPServer) SetHealthChecker(h *HealthChecker) {
	s.healthChecker = h
}

// SetMetrics enables HTTP request metrics. Must be called before Start.
func (s *HTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrumentHandler wraps a handler with request metrics when metrics
// are configured.
func (s *HTTPServer) instrumentHandler(path string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, recorder.status, time.Since(start))
	})
}

// Start starts the HTTP server on the given address. Blocks until the
// server stops.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	var streamableServer http.Handler
	if s.disableStreaming {
		streamableServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		streamableServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}

	mux.Handle("/mcp", s.instrumentHandler("/mcp", streamableServer))

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address, or an empty string before
// Start.
func (s *HTTPServer) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}
