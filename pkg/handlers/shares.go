package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/services"
)

// SharesHandler handles public share links.
type SharesHandler struct {
	shareService services.ShareService
	logger       *zap.Logger
}

// NewSharesHandler creates a new shares handler.
func NewSharesHandler(shareService services.ShareService, logger *zap.Logger) *SharesHandler {
	return &SharesHandler{shareService: shareService, logger: logger}
}

// RegisterRoutes registers the share routes on the given mux.
func (h *SharesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/prompts/{id}/share", h.Create)
	mux.HandleFunc("GET /api/prompts/{id}/share", h.GetForPrompt)
	mux.HandleFunc("DELETE /api/shares/{token}", h.Revoke)
	mux.HandleFunc("GET /api/shared/{token}", h.View)
}

// Create handles POST /api/prompts/{id}/share
// Sharing an already shared prompt returns the existing link.
func (h *SharesHandler) Create(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	share, err := h.shareService.CreateShare(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, h.logger, "Create share", err)
		return
	}

	writeData(w, h.logger, http.StatusCreated, share)
}

// GetForPrompt handles GET /api/prompts/{id}/share
func (h *SharesHandler) GetForPrompt(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	share, err := h.shareService.GetShareForPrompt(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, h.logger, "Get share", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, share)
}

// Revoke handles DELETE /api/shares/{token}
func (h *SharesHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	token, ok := ParsePathID(w, r, "token", h.logger)
	if !ok {
		return
	}

	if err := h.shareService.RevokeShare(r.Context(), token); err != nil {
		writeServiceError(w, h.logger, "Revoke share", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, map[string]string{"status": "revoked"})
}

// View handles GET /api/shared/{token}
func (h *SharesHandler) View(w http.ResponseWriter, r *http.Request) {
	token, ok := ParsePathID(w, r, "token", h.logger)
	if !ok {
		return
	}

	view, err := h.shareService.GetSharedView(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.logger, "Get shared prompt", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, view)
}
