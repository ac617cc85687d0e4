// Package serverapp wires configuration, storage, the grid engine, and
// the HTTP server into one lifecycle.
package serverapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rbeccah/airtable/internal/config"
	"github.com/rbeccah/airtable/internal/grid"
	"github.com/rbeccah/airtable/internal/logging"
	"github.com/rbeccah/airtable/internal/observability"
	"github.com/rbeccah/airtable/internal/sorting"
	"github.com/rbeccah/airtable/internal/store"
)

// App owns runtime resources for the grid API server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	registry *prometheus.Registry
	metrics  *observability.Metrics

	db       *sql.DB
	store    *store.Store
	resolver *sorting.Resolver
	engine   *grid.Engine

	handler    http.Handler
	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Engine exposes the grid engine, for embedding the app in tests.
func (a *App) Engine() *grid.Engine {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.engine
}
