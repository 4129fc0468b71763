// Package ledger keeps an append-only audit trail of registry submissions.
// The artifact store stays authoritative for which model is champion; the
// ledger answers "what was submitted, when, and what happened to it".
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Driver selects a ledger backend.
type Driver string

const (
	// DriverNone disables the ledger.
	DriverNone Driver = "none"
	// DriverSQLite stores entries in a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores entries in a PostgreSQL table.
	DriverPostgres Driver = "postgres"
)

// Entry is one recorded submission.
type Entry struct {
	ID              uuid.UUID `json:"id" yaml:"id"`
	Version         string    `json:"version" yaml:"version"`
	Outcome         string    `json:"outcome" yaml:"outcome"`
	MSE             float64   `json:"mse" yaml:"mse"`
	PreviousVersion string    `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	ArtifactKey     string    `json:"artifact_key" yaml:"artifact_key"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// Ledger records submissions.
type Ledger interface {
	Record(ctx context.Context, e Entry) error
	// List returns the newest entries first; limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Config selects and configures a Ledger.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open constructs the ledger described by cfg. An empty driver means none.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %s", cfg.Driver)
	}
}

// Nop discards entries.
type Nop struct{}

// Record drops e.
func (Nop) Record(context.Context, Entry) error { return nil }

// List always returns no entries.
func (Nop) List(context.Context, int) ([]Entry, error) { return nil, nil }

// Close is a no-op.
func (Nop) Close() error { return nil }

// normalize fills the ID and timestamp when the caller left them empty.
func normalize(e Entry) Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e
}
