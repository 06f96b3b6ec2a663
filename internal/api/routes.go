package api

import (
	"net/http"

	"github.com/JaimeStill/gradebook/internal/runs"
	"github.com/JaimeStill/gradebook/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	snapshots := newSnapshotHandler(
		runtime.Storage,
		runtime.Logger,
		runtime.MaxListSize,
	)

	routes.Register(
		mux,
		domain.Imports.Handler().Routes(),
		runs.NewHandler(domain.Runs, runtime.Logger, runtime.Pagination).Routes(),
		snapshots.routes(),
	)
}
