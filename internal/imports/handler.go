package imports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/gradebook/pkg/handlers"
	"github.com/JaimeStill/gradebook/pkg/routes"
)

// MaxBatchSize bounds the number of snapshots accepted by one batch request.
const MaxBatchSize = 32

// Handler provides HTTP endpoints for snapshot imports, teacher stats, and
// submission history.
type Handler struct {
	sys             System
	logger          *slog.Logger
	maxSnapshotSize int64
}

// ReplayRequest names an archived snapshot to re-import.
type ReplayRequest struct {
	Key string `json:"key"`
}

// NewHandler creates a Handler with the given system, logger, and snapshot size limit.
func NewHandler(sys System, logger *slog.Logger, maxSnapshotSize int64) *Handler {
	return &Handler{
		sys:             sys,
		logger:          logger.With("handler", "imports"),
		maxSnapshotSize: maxSnapshotSize,
	}
}

// Routes returns the route groups for import, stats, and history endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/imports",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "", Handler: h.Import},
					{Method: "POST", Pattern: "/preview", Handler: h.Preview},
					{Method: "POST", Pattern: "/replay", Handler: h.Replay},
					{Method: "POST", Pattern: "/batch", Handler: h.Batch},
				},
			},
			{
				Prefix: "/teachers",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{email}/stats", Handler: h.Stats},
				},
			},
			{
				Prefix: "/submissions",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{id}/history", Handler: h.History},
				},
			},
		},
	}
}

// Import reconciles the snapshot document in the request body and persists the result.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r.Body, h.maxSnapshotSize)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	out, err := h.sys.Import(r.Context(), data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, out)
}

// Preview returns the plan the snapshot in the request body would produce without writing it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r.Body, h.maxSnapshotSize)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	out, err := h.sys.Preview(r.Context(), data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, out)
}

// Replay re-imports an archived snapshot named by a JSON body of the form {"key": "..."}.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	out, err := h.sys.Replay(r.Context(), req.Key)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, out)
}

// Batch imports a JSON array of snapshot documents and reports a result per document.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxSnapshotSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxSnapshotSize*MaxBatchSize)
	}

	var docs []json.RawMessage
	if err := json.NewDecoder(body).Decode(&docs); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, tooLarge(maxErr.Limit))
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if len(docs) == 0 || len(docs) > MaxBatchSize {
		handlers.RespondError(
			w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: batch must hold 1 to %d snapshots", ErrInvalidRequest, MaxBatchSize),
		)
		return
	}

	raw := make([][]byte, len(docs))
	for i, d := range docs {
		raw[i] = d
	}

	handlers.RespondJSON(w, http.StatusOK, h.sys.ImportBatch(r.Context(), raw))
}

// Stats returns the dashboard rollup for the teacher named by the email path parameter.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Stats(r.Context(), r.PathValue("email"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// History returns every row of the submission lineage named by the id path parameter.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.sys.History(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rows)
}

// readBody reads at most one byte past limit so the snapshot decoder can
// report an oversized document.
func readBody(body io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return data, nil
}
