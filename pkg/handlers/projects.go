package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/services"
)

// CategoryRequest for POST /api/projects/{id}/categories
type CategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CatalogHandler handles projects, categories and tags.
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService services.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

// RegisterRoutes registers the catalog routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.ListProjects)
	mux.HandleFunc("POST /api/projects", h.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.GetProject)
	mux.HandleFunc("PUT /api/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.DeleteProject)

	mux.HandleFunc("GET /api/projects/{id}/categories", h.ListCategories)
	mux.HandleFunc("POST /api/projects/{id}/categories", h.CreateCategory)
	mux.HandleFunc("POST /api/projects/{id}/categories/defaults", h.AddDefaultCategories)
	mux.HandleFunc("PUT /api/categories/{cid}", h.UpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{cid}", h.DeleteCategory)

	mux.HandleFunc("GET /api/tags", h.ListTags)
	mux.HandleFunc("POST /api/tags", h.CreateTag)
	mux.HandleFunc("PUT /api/tags/{tid}", h.UpdateTag)
	mux.HandleFunc("DELETE /api/tags/{tid}", h.DeleteTag)
}

// ListProjects handles GET /api/projects
func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalogService.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "List projects", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, projects)
}

// CreateProject handles POST /api/projects
// A missing color is picked from the palette.
func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req services.ProjectInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	project, err := h.catalogService.CreateProject(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create project", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, project)
}

// GetProject handles GET /api/projects/{id}
func (h *CatalogHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	project, err := h.catalogService.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, project)
}

// UpdateProject handles PUT /api/projects/{id}
func (h *CatalogHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req services.ProjectInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	project, err := h.catalogService.UpdateProject(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, project)
}

// DeleteProject handles DELETE /api/projects/{id}
// The project's categories are deleted with it.
func (h *CatalogHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProject(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// ListCategories handles GET /api/projects/{id}/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	categories, err := h.catalogService.ListCategories(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, "List categories", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, categories)
}

// CreateCategory handles POST /api/projects/{id}/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), services.CategoryInput{
		ProjectID:   projectID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, h.logger, "Create category", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, category)
}

// AddDefaultCategories handles POST /api/projects/{id}/categories/defaults
// Responds with the categories that were added.
func (h *CatalogHandler) AddDefaultCategories(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	added, err := h.catalogService.AddDefaultCategories(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, h.logger, "Add default categories", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, added)
}

// UpdateCategory handles PUT /api/categories/{cid}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "cid", h.logger)
	if !ok {
		return
	}

	var req services.CategoryInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update category", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/{cid}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "cid", h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete category", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// ListTags handles GET /api/tags
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalogService.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "List tags", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, tags)
}

// CreateTag handles POST /api/tags
func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req services.TagInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	tag, err := h.catalogService.CreateTag(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create tag", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, tag)
}

// UpdateTag handles PUT /api/tags/{tid}
func (h *CatalogHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "tid", h.logger)
	if !ok {
		return
	}

	var req services.TagInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	tag, err := h.catalogService.UpdateTag(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update tag", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/tags/{tid}
// The tag is removed from every prompt carrying it.
func (h *CatalogHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "tid", h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteTag(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete tag", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}
