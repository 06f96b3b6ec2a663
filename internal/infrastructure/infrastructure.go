// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, locking) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/gradebook/internal/config"
	"github.com/JaimeStill/gradebook/pkg/database"
	"github.com/JaimeStill/gradebook/pkg/lifecycle"
	"github.com/JaimeStill/gradebook/pkg/lock"
	"github.com/JaimeStill/gradebook/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, snapshot archival, and per-teacher import leases.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Lock      lock.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	locker, err := lock.New(&cfg.Lock, logger)
	if err != nil {
		return nil, fmt.Errorf("lock init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Lock:      locker,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Lock.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("lock start failed: %w", err)
	}
	return nil
}
