package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/AmeliaRose802/mailtriage/internal/ai"
	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
	"github.com/AmeliaRose802/mailtriage/internal/server"
	"github.com/AmeliaRose802/mailtriage/internal/tools/accuracy_tools"
	"github.com/AmeliaRose802/mailtriage/internal/tools/tasks_tools"
	"github.com/AmeliaRose802/mailtriage/internal/tools/triage_tools"
	"github.com/AmeliaRose802/mailtriage/internal/triage"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode        bool
		transport        string
		httpAddr         string
		yolo             bool
		disableStreaming bool
		metricsEnabled   bool
		metricsAddr      string
		dataDirFlag      string
		model            string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve starts a Model Context Protocol server exposing the triage,
task, and accuracy tools.

The server supports two transport modes:
  - stdio: communicates over stdin/stdout (default, for MCP clients)
  - streamable-http: serves MCP over HTTP with health and metrics endpoints

By default write tools are disabled; pass --yolo to enable tools that
modify the task store or accuracy history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveOptions{
				transport:        transport,
				debugMode:        debugMode,
				httpAddr:         httpAddr,
				yolo:             yolo,
				disableStreaming: disableStreaming,
				metricsEnabled:   metricsEnabled,
				metricsAddr:      metricsAddr,
				dataDir:          dataDirFlag,
				model:            model,
			})
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (streamable-http transport only)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable tools that modify local state")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", true, "Disable SSE streaming; respond with plain JSON (streamable-http transport only)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "Directory for the task and accuracy databases (default: user data dir)")
	cmd.Flags().StringVar(&model, "model", ai.DefaultModel, "Gemini model for classification")

	return cmd
}

type serveOptions struct {
	transport        string
	debugMode        bool
	httpAddr         string
	yolo             bool
	disableStreaming bool
	metricsEnabled   bool
	metricsAddr      string
	dataDir          string
	model            string
}

func runServe(opts serveOptions) error {
	// Graceful shutdown on SIGINT/SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Environment overrides for metrics config
	if os.Getenv("METRICS_ENABLED") == "false" {
		opts.metricsEnabled = false
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		opts.metricsAddr = addr
	}

	logger := newLogger(opts.debugMode)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if opts.transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	dir := opts.dataDir
	if dir == "" {
		dir = dataDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, tracker, err := openStores(dir, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer tracker.Close()

	// The classification pipeline is optional: without GEMINI_API_KEY the
	// server still exposes the task and accuracy tools.
	var (
		completer ai.Completer
		pipeline  *triage.Pipeline
	)
	if os.Getenv("GEMINI_API_KEY") != "" {
		completer, err = newCompleter(shutdownCtx, opts.model, logger)
		if err != nil {
			return err
		}
		pipeline = triage.NewPipeline(completer, store, tracker, logger, provider.Metrics())
	} else if opts.transport != "stdio" {
		log.Printf("GEMINI_API_KEY not set; triage_run will report an error until it is configured")
	}

	var auditLogger *instrumentation.AuditLogger
	if provider.Enabled() {
		auditLogger = instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.Config{
		Store:        store,
		Tracker:      tracker,
		Completer:    completer,
		Pipeline:     pipeline,
		Metrics:      provider.Metrics(),
		AuditLogger:  auditLogger,
		WriteEnabled: opts.yolo,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil && opts.transport != "stdio" {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("mailtriage", version,
		mcpserver.WithToolCapabilities(true),
	)

	readOnly := !opts.yolo
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, provider, opts)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	if err := <-serverDone; err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, provider *instrumentation.Provider, opts serveOptions) error {
	// Dedicated metrics listener, kept off the main application port.
	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() {
		ms, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		metricsServer = ms

		ready := make(chan struct{})
		go func() {
			if err := ms.StartWithReadySignal(ready); err != nil {
				log.Printf("Metrics server stopped with error: %v", err)
			}
		}()
		select {
		case <-ready:
			log.Printf("Metrics server listening on %s", ms.Addr())
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server failed to start within 5s")
		}
	}

	healthChecker := server.NewHealthChecker(serverContext)

	httpServer := server.NewHTTPServer(mcpSrv, opts.disableStreaming)
	httpServer.SetHealthChecker(healthChecker)
	httpServer.SetMetrics(provider.Metrics())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil {
			serverDone <- err
		}
	}()
	healthChecker.SetReady(true)
	log.Printf("MCP server listening on %s", opts.httpAddr)

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		healthChecker.SetReady(false)

		shutdownTimeout, shutdownCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownTimeout); err != nil {
			log.Printf("Error during HTTP server shutdown: %v", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownTimeout); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		return nil
	}
}

// registerAllTools registers every MCP tool group on the server.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Triage",
			register: func() error {
				return triage_tools.RegisterTriageTools(mcpSrv, ctx)
			},
		},
		{
			name: "Tasks",
			register: func() error {
				return tasks_tools.RegisterTasksTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Accuracy",
			register: func() error {
				return accuracy_tools.RegisterAccuracyTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}
