package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/talent-bridge/internal/importer"
	"github.com/ignite/talent-bridge/internal/pkg/httputil"
	"github.com/ignite/talent-bridge/internal/pkg/logger"
)

// =============================================================================
// BULK IMPORT HANDLERS
// =============================================================================
// HTTP handlers for the bulk-import API. Supports:
// - Starting an import run (fire-and-forget, returns the job id)
// - Streaming job progress as Server-Sent Events
// - Polling a single job snapshot
// - Listing recent jobs

// ImportHandlers provides HTTP handlers for bulk imports
type ImportHandlers struct {
	pipeline *importer.Pipeline
	store    importer.JobStore

	// progressInterval is the SSE re-emit cadence; tests shrink it.
	progressInterval time.Duration
}

// NewImportHandlers creates a new handler instance
func NewImportHandlers(pipeline *importer.Pipeline, store importer.JobStore) *ImportHandlers {
	return &ImportHandlers{
		pipeline:         pipeline,
		store:            store,
		progressInterval: time.Second,
	}
}

// RegisterRoutes registers the bulk-import routes
func (h *ImportHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/imports", func(r chi.Router) {
		r.Post("/", h.HandleStartImport)
		r.Get("/", h.HandleListImports)
		r.Get("/{jobId}", h.HandleGetImport)
		r.Get("/{jobId}/events", h.HandleImportEvents)
	})
}

// StartImportRequest is the request body for starting an import
type StartImportRequest struct {
	SourceID           string `json:"source_id"`
	OwnerKey           string `json:"owner_key"`
	DestinationTag     string `json:"destination_tag,omitempty"`
	DestinationListIDs []int  `json:"destination_list_ids,omitempty"`
	MaxRecords         int    `json:"max_records,omitempty"`
	ChunkSize          int    `json:"chunk_size,omitempty"`
	PauseMs            int    `json:"pause_ms,omitempty"`
}

// HandleStartImport validates the request, registers a job and launches
// the pipeline in the background.
// POST /api/imports
func (h *ImportHandlers) HandleStartImport(w http.ResponseWriter, r *http.Request) {
	var req StartImportRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	if req.SourceID == "" {
		httputil.BadRequest(w, "source_id is required")
		return
	}
	if req.OwnerKey == "" {
		httputil.BadRequest(w, "owner_key is required")
		return
	}
	if req.DestinationTag == "" && len(req.DestinationListIDs) == 0 {
		httputil.BadRequest(w, "destination_tag or destination_list_ids is required")
		return
	}

	job, err := h.pipeline.Start(r.Context(), importer.StartRequest{
		SourceID:           req.SourceID,
		OwnerKey:           req.OwnerKey,
		DestinationTag:     req.DestinationTag,
		DestinationListIDs: req.DestinationListIDs,
		MaxRecords:         req.MaxRecords,
		ChunkSize:          req.ChunkSize,
		PauseMs:            req.PauseMs,
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.Accepted(w, map[string]string{
		"job_id":       job.ID,
		"status":       string(job.Status),
		"progress_url": fmt.Sprintf("/api/imports/%s/events", job.ID),
	})
}

// HandleGetImport returns a single job snapshot.
// GET /api/imports/{jobId}
func (h *ImportHandlers) HandleGetImport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, importer.ErrJobNotFound) {
			httputil.NotFound(w, "import job not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, jobSnapshot(job))
}

// HandleListImports returns recent jobs, newest first.
// GET /api/imports
func (h *ImportHandlers) HandleListImports(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.List(r.Context(), 20)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobSnapshot(job))
	}
	httputil.OK(w, map[string]any{"jobs": out})
}

// HandleImportEvents streams job snapshots as Server-Sent Events until
// the job leaves the running state. Unknown ids get a single not-found
// event. The stream is read-only over the registry; closing it does not
// stop the underlying pipeline.
// GET /api/imports/{jobId}/events
func (h *ImportHandlers) HandleImportEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()

	emit := func(payload any) {
		writeEvent(w, flusher, payload)
	}

	job, err := h.store.Get(ctx, jobID)
	if err != nil {
		emit(map[string]string{"status": "not-found", "job_id": jobID})
		return
	}

	emit(jobSnapshot(job))
	if job.Terminal() {
		return
	}

	ticker := time.NewTicker(h.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := h.store.Get(ctx, jobID)
			if err != nil {
				return
			}
			emit(jobSnapshot(job))
			if job.Terminal() {
				return
			}
		}
	}
}

// writeEvent writes one SSE data frame. An unencodable payload is
// logged and skipped rather than sent as a null frame.
func writeEvent(w io.Writer, flusher http.Flusher, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("progress event encode failed", "err", err.Error())
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// jobSnapshot shapes one job for API responses, deriving a progress
// percentage when the upstream reported a pool size.
func jobSnapshot(job *importer.Job) map[string]any {
	snap := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"source_id":  job.SourceID,
		"totals":     job.Totals,
		"started_at": job.StartedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Error != "" {
		snap["error"] = job.Error
	}
	if job.Totals.PoolTotal != nil && *job.Totals.PoolTotal > 0 {
		snap["progress_percent"] = job.Totals.Seen * 100 / *job.Totals.PoolTotal
	}
	return snap
}
