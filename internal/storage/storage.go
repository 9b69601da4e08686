package storage

import (
	"context"

	"github.com/pagewatch/pagewatch/internal/types"
)

// Storage defines the interface for monitor and check-history backends.
// Monitor CRUD beyond the result fields is owned by the external API
// layer; the core writes only check outcomes and new history rows.
type Storage interface {
	// Monitors
	CreateMonitor(ctx context.Context, m *types.Monitor) error
	GetMonitor(ctx context.Context, id string) (*types.Monitor, error)
	ListMonitors(ctx context.Context, activeOnly bool) ([]*types.Monitor, error)
	DeleteMonitor(ctx context.Context, id string) error

	// Check outcome writes (the only monitor mutations the core performs)
	ApplyCheckResult(ctx context.Context, id string, result *types.CheckResult) error
	SetActive(ctx context.Context, id string, active bool) error

	// Check history (append-only)
	RecordCheck(ctx context.Context, rec *types.CheckRecord) error
	GetChecks(ctx context.Context, monitorID string, limit int) ([]*types.CheckRecord, error)
	GetLatestCheck(ctx context.Context, monitorID string) (*types.CheckRecord, error)

	// History retention
	PruneChecks(ctx context.Context, monitorID string, keep int) (int, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".pagewatch/pagewatch.db",
	}
}
