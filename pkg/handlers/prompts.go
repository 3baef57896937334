package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// PromptListResponse for GET /api/prompts
type PromptListResponse struct {
	Prompts []models.Prompt `json:"prompts"`
	Total   int             `json:"total"`
}

// VersionListResponse for GET /api/prompts/{id}/versions
type VersionListResponse struct {
	Versions []models.PromptVersion `json:"versions"`
	Total    int                    `json:"total"`
}

// SetMCPExposureRequest for PUT /api/prompts/{id}/mcp
type SetMCPExposureRequest struct {
	Exposed *bool `json:"exposed" validate:"required"`
}

// RenderRequest for POST /api/prompts/{id}/render
type RenderRequest struct {
	Values map[string]string `json:"values"`
}

var deletedResponse = map[string]string{"status": "deleted"}

// ============================================================================
// Handler
// ============================================================================

// PromptsHandler handles prompt and version HTTP requests.
type PromptsHandler struct {
	promptService services.PromptService
	logger        *zap.Logger
}

// NewPromptsHandler creates a new prompts handler.
func NewPromptsHandler(promptService services.PromptService, logger *zap.Logger) *PromptsHandler {
	return &PromptsHandler{
		promptService: promptService,
		logger:        logger,
	}
}

// RegisterRoutes registers the prompt routes on the given mux.
func (h *PromptsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/prompts"

	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("PUT "+base+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
	mux.HandleFunc("POST "+base+"/{id}/archive", h.Archive)
	mux.HandleFunc("POST "+base+"/{id}/unarchive", h.Unarchive)
	mux.HandleFunc("PUT "+base+"/{id}/mcp", h.SetMCPExposure)
	mux.HandleFunc("POST "+base+"/{id}/render", h.Render)

	mux.HandleFunc("GET "+base+"/{id}/versions", h.ListVersions)
	mux.HandleFunc("GET "+base+"/{id}/versions/{n}", h.GetVersion)
	mux.HandleFunc("POST "+base+"/{id}/versions/{n}/restore", h.RestoreVersion)
	mux.HandleFunc("GET "+base+"/{id}/diff", h.CompareVersions)
}

// List handles GET /api/prompts
// Query: q, project_id, category_id, tag (repeatable), archived
func (h *PromptsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.PromptFilter{
		Query:      q.Get("q"),
		ProjectID:  q.Get("project_id"),
		CategoryID: q.Get("category_id"),
		TagIDs:     queryList(r, "tag"),
		Archived:   queryBool(r, "archived"),
	}

	prompts, err := h.promptService.ListPrompts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, "List prompts", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, PromptListResponse{Prompts: prompts, Total: len(prompts)})
}

// Create handles POST /api/prompts
func (h *PromptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.PromptInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	prompt, err := h.promptService.CreatePrompt(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusCreated, prompt)
}

// Get handles GET /api/prompts/{id}
func (h *PromptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	prompt, err := h.promptService.GetPrompt(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, prompt)
}

// Update handles PUT /api/prompts/{id}
// Every update appends a version.
func (h *PromptsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req services.PromptInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	prompt, err := h.promptService.UpdatePrompt(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, prompt)
}

// Delete handles DELETE /api/prompts/{id}
func (h *PromptsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.promptService.DeletePrompt(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// Archive handles POST /api/prompts/{id}/archive
func (h *PromptsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Unarchive handles POST /api/prompts/{id}/unarchive
func (h *PromptsHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *PromptsHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	prompt, err := h.promptService.SetArchived(r.Context(), id, archived)
	if err != nil {
		writeServiceError(w, h.logger, "Archive prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, prompt)
}

// SetMCPExposure handles PUT /api/prompts/{id}/mcp
func (h *PromptsHandler) SetMCPExposure(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req SetMCPExposureRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	prompt, err := h.promptService.SetMCPExposure(r.Context(), id, *req.Exposed)
	if err != nil {
		writeServiceError(w, h.logger, "Set MCP exposure", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, prompt)
}

// Render handles POST /api/prompts/{id}/render
func (h *PromptsHandler) Render(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req RenderRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	result, err := h.promptService.Render(r.Context(), id, req.Values)
	if err != nil {
		writeServiceError(w, h.logger, "Render prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, result)
}

// ListVersions handles GET /api/prompts/{id}/versions
func (h *PromptsHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	versions, err := h.promptService.ListVersions(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "List versions", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, VersionListResponse{Versions: versions, Total: len(versions)})
}

// GetVersion handles GET /api/prompts/{id}/versions/{n}
func (h *PromptsHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	n, ok := ParseVersionNumber(w, r, h.logger)
	if !ok {
		return
	}

	version, err := h.promptService.GetVersion(r.Context(), id, n)
	if err != nil {
		writeServiceError(w, h.logger, "Get version", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, version)
}

// RestoreVersion handles POST /api/prompts/{id}/versions/{n}/restore
func (h *PromptsHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	n, ok := ParseVersionNumber(w, r, h.logger)
	if !ok {
		return
	}

	prompt, err := h.promptService.RestoreVersion(r.Context(), id, n)
	if err != nil {
		writeServiceError(w, h.logger, "Restore version", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, prompt)
}

// CompareVersions handles GET /api/prompts/{id}/diff?from=N&to=M
// to defaults to the latest version and from to the version before to.
func (h *PromptsHandler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	from := 0
	if raw := r.URL.Query().Get("from"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "invalid_version", "from must be a non-negative integer")
			return
		}
		from = n
	}

	var to int
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, ok = parsePositiveInt(w, raw, "invalid_version", "to must be a positive integer", h.logger); !ok {
			return
		}
	} else {
		latest, err := h.promptService.LatestVersion(r.Context(), id)
		if err != nil {
			writeServiceError(w, h.logger, "Compare versions", err)
			return
		}
		to = latest.VersionNumber
	}

	diff, err := h.promptService.CompareVersions(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, h.logger, "Compare versions", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, diff)
}
