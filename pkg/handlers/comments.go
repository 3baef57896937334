package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

// CommentRequest for POST /api/prompts/{id}/comments and PUT /api/comments/{id}
type CommentRequest struct {
	Content   string `json:"content" validate:"required"`
	VersionID string `json:"version_id,omitempty"`
}

// CommentListResponse for GET /api/prompts/{id}/comments
type CommentListResponse struct {
	Comments []models.Comment `json:"comments"`
	Total    int              `json:"total"`
}

// CommentsHandler handles prompt discussion requests. Edits and deletes are
// limited to the comment's author.
type CommentsHandler struct {
	commentService services.CommentService
	logger         *zap.Logger
}

// NewCommentsHandler creates a new comments handler.
func NewCommentsHandler(commentService services.CommentService, logger *zap.Logger) *CommentsHandler {
	return &CommentsHandler{commentService: commentService, logger: logger}
}

// RegisterRoutes registers the comment routes on the given mux.
func (h *CommentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/prompts/{id}/comments", h.List)
	mux.HandleFunc("POST /api/prompts/{id}/comments", h.Add)
	mux.HandleFunc("PUT /api/comments/{cid}", h.Update)
	mux.HandleFunc("DELETE /api/comments/{cid}", h.Delete)
}

// List handles GET /api/prompts/{id}/comments
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, h.logger, "List comments", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, CommentListResponse{Comments: comments, Total: len(comments)})
}

// Add handles POST /api/prompts/{id}/comments
func (h *CommentsHandler) Add(w http.ResponseWriter, r *http.Request) {
	promptID, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req CommentRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), promptID, req.VersionID, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "Add comment", err)
		return
	}

	writeData(w, h.logger, http.StatusCreated, comment)
}

// Update handles PUT /api/comments/{cid}
func (h *CommentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "cid", h.logger)
	if !ok {
		return
	}

	var req CommentRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	comment, err := h.commentService.UpdateComment(r.Context(), id, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "Update comment", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, comment)
}

// Delete handles DELETE /api/comments/{cid}
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "cid", h.logger)
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete comment", err)
		return
	}

	writeData(w, h.logger, http.StatusOK, deletedResponse)
}
