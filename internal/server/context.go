package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/AmeliaRose802/mailtriage/internal/accuracy"
	"github.com/AmeliaRose802/mailtriage/internal/ai"
	"github.com/AmeliaRose802/mailtriage/internal/instrumentation"
	"github.com/AmeliaRose802/mailtriage/internal/mailbox"
	"github.com/AmeliaRose802/mailtriage/internal/taskstore"
	"github.com/AmeliaRose802/mailtriage/internal/triage"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx            context.Context
	cancel         context.CancelFunc
	mailboxClients map[string]*mailbox.Client // Maps account name to mailbox client
	store          *taskstore.Store
	tracker        *accuracy.Tracker
	completer      ai.Completer
	pipeline       *triage.Pipeline
	metrics        *instrumentation.Metrics
	auditLogger    *instrumentation.AuditLogger
	writeEnabled   bool
	mu             sync.RWMutex
	shutdown       bool
}

// Config holds the dependencies for a server context
type Config struct {
	Store     *taskstore.Store
	Tracker   *accuracy.Tracker
	Completer ai.Completer
	Pipeline  *triage.Pipeline

	// Metrics and AuditLogger may be nil when instrumentation is disabled
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger

	// WriteEnabled gates tools that modify stored state
	// (tasks_mark_completed, accuracy_record_session)
	WriteEnabled bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, config Config) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	mailboxClients := make(map[string]*mailbox.Client)

	// Try to create default mailbox client, but don't fail if token is missing
	// Clients will be lazily initialized when first needed
	if mailbox.HasToken() {
		client, err := mailbox.NewClient(shutdownCtx)
		if err != nil {
			// Log but don't fail - will be re-attempted on first use
			fmt.Printf("Warning: failed to create mailbox client for default account: %v\n", err)
		} else {
			mailboxClients["default"] = client
		}
	}

	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		mailboxClients: mailboxClients,
		store:          config.Store,
		tracker:        config.Tracker,
		completer:      config.Completer,
		pipeline:       config.Pipeline,
		metrics:        config.Metrics,
		auditLogger:    config.AuditLogger,
		writeEnabled:   config.WriteEnabled,
		shutdown:       false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// MailboxClientForAccount returns the mailbox client for a specific account
// Creates and caches the client if it doesn't exist yet
// Returns nil if the account has no token
func (sc *ServerContext) MailboxClientForAccount(account string) *mailbox.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Check if client already exists
	if client, ok := sc.mailboxClients[account]; ok {
		return client
	}

	// Try to create client if token exists
	if !mailbox.HasTokenForAccount(account) {
		return nil
	}

	client, err := mailbox.NewClientForAccount(sc.ctx, account)
	if err != nil {
		fmt.Printf("Warning: failed to create mailbox client for account %s: %v\n", account, err)
		return nil
	}

	sc.mailboxClients[account] = client
	return client
}

// MailboxClient returns the mailbox client for the default account
func (sc *ServerContext) MailboxClient() *mailbox.Client {
	return sc.MailboxClientForAccount("default")
}

// SetMailboxClientForAccount sets the mailbox client for a specific account
func (sc *ServerContext) SetMailboxClientForAccount(account string, client *mailbox.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.mailboxClients[account] = client
}

// SetMailboxClient sets the mailbox client for the default account
func (sc *ServerContext) SetMailboxClient(client *mailbox.Client) {
	sc.SetMailboxClientForAccount("default", client)
}

// Store returns the outstanding task store
func (sc *ServerContext) Store() *taskstore.Store {
	return sc.store
}

// Tracker returns the classification accuracy tracker
func (sc *ServerContext) Tracker() *accuracy.Tracker {
	return sc.tracker
}

// Completer returns the AI completer used for classification
func (sc *ServerContext) Completer() ai.Completer {
	return sc.completer
}

// Pipeline returns the triage pipeline
func (sc *ServerContext) Pipeline() *triage.Pipeline {
	return sc.pipeline
}

// Metrics returns the metrics recorder, or nil if instrumentation is disabled
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil if audit logging is disabled
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// WriteEnabled reports whether state-modifying tools are registered
func (sc *ServerContext) WriteEnabled() bool {
	return sc.writeEnabled
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
