package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/services"
)

// InstantiateTemplateRequest for POST /api/templates/instantiate
type InstantiateTemplateRequest struct {
	Title     string `json:"title" validate:"required"`
	ProjectID string `json:"project_id" validate:"required"`
}

// TemplatesHandler serves the built-in prompt template catalog.
type TemplatesHandler struct {
	templateService services.TemplateService
	logger          *zap.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(templateService services.TemplateService, logger *zap.Logger) *TemplatesHandler {
	return &TemplatesHandler{templateService: templateService, logger: logger}
}

// RegisterRoutes registers the template routes on the given mux.
func (h *TemplatesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", h.List)
	mux.HandleFunc("POST /api/templates/instantiate", h.Instantiate)
}

// List handles GET /api/templates?category=
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateService.ListTemplates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, h.logger, "List templates", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, templates)
}

// Instantiate handles POST /api/templates/instantiate
func (h *TemplatesHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	var req InstantiateTemplateRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	prompt, err := h.templateService.Instantiate(r.Context(), req.Title, req.ProjectID)
	if err != nil {
		writeServiceError(w, h.logger, "Instantiate template", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, prompt)
}
