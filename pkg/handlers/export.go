package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/services"
)

// HeaderExportLocation carries the archive location of an archived export.
const HeaderExportLocation = "X-Export-Location"

// ExportHandler serves export documents as JSON file downloads.
type ExportHandler struct {
	exportService services.ExportService
	logger        *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exportService services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, logger: logger}
}

// RegisterRoutes registers the export routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/prompts/{id}/export", h.ExportPrompt)
	mux.HandleFunc("GET /api/export", h.ExportAll)
}

// ExportPrompt handles GET /api/prompts/{id}/export
func (h *ExportHandler) ExportPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	file, err := h.exportService.ExportPrompt(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Export prompt", err)
		return
	}

	h.writeFile(w, file)
}

// ExportAll handles GET /api/export?archive=true
func (h *ExportHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	file, err := h.exportService.ExportAll(r.Context(), queryBool(r, "archive"))
	if err != nil {
		writeServiceError(w, h.logger, "Export prompts", err)
		return
	}

	if file.Location != "" {
		w.Header().Set(HeaderExportLocation, file.Location)
	}
	h.writeFile(w, file)
}

func (h *ExportHandler) writeFile(w http.ResponseWriter, file *services.ExportFile) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Error("Failed to write export", zap.String("filename", file.Filename), zap.Error(err))
	}
}
