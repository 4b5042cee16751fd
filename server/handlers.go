package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"slidecast/cache"
	"slidecast/config"
	"slidecast/core/assets"
	"slidecast/core/render"
	"slidecast/logger"
	"slidecast/model"
	"slidecast/storage"
)

// APIHandler holds the wired pipeline and serves all API requests.
type APIHandler struct {
	store        *storage.LocalStore
	resolver     *assets.Resolver
	orchestrator *render.Orchestrator
	catalog      *assets.PresetCatalog
	exports      *cache.ExportCache
	publisher    *storage.Publisher
	cfg          *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	store *storage.LocalStore,
	resolver *assets.Resolver,
	orchestrator *render.Orchestrator,
	catalog *assets.PresetCatalog,
	exports *cache.ExportCache,
	publisher *storage.Publisher,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		store:        store,
		resolver:     resolver,
		orchestrator: orchestrator,
		catalog:      catalog,
		exports:      exports,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// UploadHandler persists one multipart file upload under the session's
// storage path and returns its stable reference.
// Expected form fields: file (binary part), sessionId (string).
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeJSON(w, http.StatusBadRequest, model.UploadResponse{
			Success: false, Message: "Failed to parse multipart form",
		})
		return
	}

	file, header, err := r.FormFile("file")
	sessionID := r.FormValue("sessionId")
	if err != nil || sessionID == "" {
		writeJSON(w, http.StatusBadRequest, model.UploadResponse{
			Success: false, Message: "Missing file or sessionId",
		})
		return
	}
	defer file.Close()

	path, err := h.store.Store(file, header.Filename, sessionID)
	if err != nil {
		logger.Error("failed to store upload",
			logger.String("file", header.Filename),
			logger.String("session", sessionID),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, model.UploadResponse{
			Success: false, Message: "Failed to store file",
		})
		return
	}

	logger.Info("stored upload",
		logger.String("path", path), logger.Int64("bytes", header.Size))
	writeJSON(w, http.StatusOK, model.UploadResponse{Success: true, Path: path})
}

// RenderHandler runs one export: validates the request, resolves every
// asset reference, drives the render sequence, and returns the output URL.
func (h *APIHandler) RenderHandler(w http.ResponseWriter, r *http.Request) {
	var req model.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.RenderResponse{
			Success: false, Error: "invalid request body: " + err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, model.RenderResponse{
			Success: false, Error: err.Error(),
		})
		return
	}

	timeline := req.Timeline()
	resolved, err := h.resolver.ResolveTimeline(r.Context(), timeline)
	if err != nil {
		logger.Error("asset resolution failed", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, model.RenderResponse{
			Success: false, Error: err.Error(),
		})
		return
	}

	job, err := h.orchestrator.Render(r.Context(), resolved)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, model.RenderResponse{
			Success: false, Error: job.Error,
		})
		return
	}

	h.exports.Record(r.Context(), job.OutputPath)
	h.publishOutput(job)

	writeJSON(w, http.StatusOK, model.RenderResponse{Success: true, URL: job.OutputPath})
}

// publishOutput mirrors a successful render to object storage when a
// publisher is configured. Mirror failures don't fail the export.
func (h *APIHandler) publishOutput(job *model.RenderJob) {
	if h.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	localPath := filepath.Join(h.cfg.OutputDir, job.OutputFileName)
	if err := h.publisher.Publish(ctx, localPath, job.OutputFileName); err != nil {
		logger.Warn("failed to mirror output", logger.ErrorField(err))
	}
}

// PresetsHandler lists the selectable preset audio tracks.
func (h *APIHandler) PresetsHandler(w http.ResponseWriter, r *http.Request) {
	names := h.catalog.Names()
	writeJSON(w, http.StatusOK, model.PresetListResponse{Success: true, Presets: names})
}

// ExportsHandler lists recently rendered output URLs, newest first.
// Returns an empty list when the export cache is not configured.
func (h *APIHandler) ExportsHandler(w http.ResponseWriter, r *http.Request) {
	urls := h.exports.Recent(r.Context(), 20)
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, model.ExportHistoryResponse{Success: true, Exports: urls})
}
