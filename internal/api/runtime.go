package api

import (
	"github.com/JaimeStill/gradebook/internal/config"
	"github.com/JaimeStill/gradebook/internal/imports"
	"github.com/JaimeStill/gradebook/internal/infrastructure"
	"github.com/JaimeStill/gradebook/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination  pagination.Config
	Imports     imports.Config
	MaxListSize int32
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Lock:      infra.Lock,
		},
		Pagination: cfg.API.Pagination,
		Imports: imports.Config{
			MaxSnapshotSize: cfg.Imports.MaxSnapshotSizeBytes(),
			Concurrency:     cfg.Imports.Concurrency,
			ArchivePrefix:   cfg.Imports.ArchivePrefix,
			LockTTL:         cfg.Lock.TTLDuration(),
		},
		MaxListSize: cfg.Storage.MaxListSize,
	}
}
