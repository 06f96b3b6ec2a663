package api

import (
	"github.com/JaimeStill/gradebook/internal/imports"
	"github.com/JaimeStill/gradebook/internal/runs"
	"github.com/JaimeStill/gradebook/internal/store"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Store   store.System
	Runs    runs.System
	Imports imports.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	storeSystem := store.New(
		runtime.Database.Connection(),
		runtime.Logger,
	)

	runsSystem := runs.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	importsSystem := imports.New(
		storeSystem,
		runsSystem,
		runtime.Storage,
		runtime.Lock,
		runtime.Logger,
		runtime.Imports,
	)

	return &Domain{
		Store:   storeSystem,
		Runs:    runsSystem,
		Imports: importsSystem,
	}
}
