package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

// ExecuteRequest for POST /api/prompts/{id}/execute
type ExecuteRequest struct {
	Values map[string]string `json:"values"`
	// SystemPrompt is "none", "default" or a system prompt id. Empty means default.
	SystemPrompt  string `json:"system_prompt"`
	ModelConfigID string `json:"model_config_id,omitempty"`
}

// RunListResponse for GET /api/prompts/{id}/runs
type RunListResponse struct {
	Runs  []models.Run `json:"runs"`
	Total int          `json:"total"`
}

// AssistHandler handles LLM-backed requests: improving and executing prompts.
type AssistHandler struct {
	assistService services.AssistService
	logger        *zap.Logger
}

// NewAssistHandler creates a new assist handler.
func NewAssistHandler(assistService services.AssistService, logger *zap.Logger) *AssistHandler {
	return &AssistHandler{assistService: assistService, logger: logger}
}

// RegisterRoutes registers the assist routes on the given mux.
func (h *AssistHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assist/improve", h.Improve)
	mux.HandleFunc("POST /api/prompts/{id}/execute", h.Execute)
	mux.HandleFunc("GET /api/prompts/{id}/runs", h.ListRuns)
}

// Improve handles POST /api/assist/improve
// The body carries either a prompt_id or unsaved editor content with its
// project, category and tags.
func (h *AssistHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req services.ImproveRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	result, err := h.assistService.Improve(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Improve prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, result)
}

// Execute handles POST /api/prompts/{id}/execute
// A failed LLM call still answers with the recorded failed run.
func (h *AssistHandler) Execute(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req ExecuteRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	selection := services.SystemPromptSelection(req.SystemPrompt)
	if selection == "" {
		selection = services.SelectionDefault
	}

	run, err := h.assistService.Execute(r.Context(), services.ExecuteRequest{
		PromptID:      promptID,
		Values:        req.Values,
		SystemPrompt:  selection,
		ModelConfigID: req.ModelConfigID,
	})
	if err != nil && run == nil {
		writeServiceError(w, h.logger, "Execute prompt", err)
		return
	}
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			status, code = http.StatusBadGateway, "llm_failed"
		}
		h.logger.Warn("Prompt execution failed",
			zap.String("prompt_id", promptID),
			zap.String("run_id", run.ID),
			zap.Int("status", status))
		if err := WriteJSON(w, status, ApiResponse{Success: false, Data: run, Error: code, Message: run.Error}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	writeData(w, h.logger, http.StatusOK, run)
}

// ListRuns handles GET /api/prompts/{id}/runs
func (h *AssistHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	runs, err := h.assistService.ListRuns(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, h.logger, "List runs", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}
