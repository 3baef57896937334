package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/services"
)

// JoinTeamRequest for POST /api/teams/join
type JoinTeamRequest struct {
	InviteToken string `json:"invite_token" validate:"required"`
}

// ChangeRoleRequest for PUT /api/teams/{id}/members/{mid}/role
type ChangeRoleRequest struct {
	Role models.TeamRole `json:"role" validate:"required"`
}

// TeamsHandler handles teams, memberships and invites.
type TeamsHandler struct {
	teamService services.TeamService
	logger      *zap.Logger
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(teamService services.TeamService, logger *zap.Logger) *TeamsHandler {
	return &TeamsHandler{teamService: teamService, logger: logger}
}

// RegisterRoutes registers the team routes on the given mux.
func (h *TeamsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/teams", h.List)
	mux.HandleFunc("POST /api/teams", h.Create)
	mux.HandleFunc("POST /api/teams/join", h.Join)
	mux.HandleFunc("GET /api/teams/{id}", h.Get)
	mux.HandleFunc("PUT /api/teams/{id}", h.Update)
	mux.HandleFunc("DELETE /api/teams/{id}", h.Delete)
	mux.HandleFunc("POST /api/teams/{id}/projects/{pid}", h.ToggleProject)
	mux.HandleFunc("POST /api/teams/{id}/invite", h.RegenerateInvite)
	mux.HandleFunc("DELETE /api/teams/{id}/members/{mid}", h.RemoveMember)
	mux.HandleFunc("PUT /api/teams/{id}/members/{mid}/role", h.ChangeRole)
}

// List handles GET /api/teams
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListTeams(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "List teams", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, teams)
}

// Create handles POST /api/teams
// The acting user becomes the owner.
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.TeamInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "Create team", err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, team)
}

// Get handles GET /api/teams/{id}
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get team", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, team)
}

// Update handles PUT /api/teams/{id}
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req services.TeamInput
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	team, err := h.teamService.UpdateTeam(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, "Update team", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, team)
}

// Delete handles DELETE /api/teams/{id}
func (h *TeamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "Delete team", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, deletedResponse)
}

// ToggleProject handles POST /api/teams/{id}/projects/{pid}
func (h *TeamsHandler) ToggleProject(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	projectID, ok := ParsePathID(w, r, "pid", h.logger)
	if !ok {
		return
	}

	team, err := h.teamService.ToggleProject(r.Context(), id, projectID)
	if err != nil {
		writeServiceError(w, h.logger, "Toggle team project", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, team)
}

// RegenerateInvite handles POST /api/teams/{id}/invite
// The previous invite token stops working.
func (h *TeamsHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}

	team, err := h.teamService.RegenerateInviteToken(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Regenerate invite", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, team)
}

// Join handles POST /api/teams/join
func (h *TeamsHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinTeamRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	member, err := h.teamService.JoinByInvite(r.Context(), req.InviteToken)
	if err != nil {
		writeServiceError(w, h.logger, "Join team", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/teams/{id}/members/{mid}
func (h *TeamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	memberID, ok := ParsePathID(w, r, "mid", h.logger)
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(r.Context(), id, memberID); err != nil {
		writeServiceError(w, h.logger, "Remove member", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, map[string]string{"status": "removed"})
}

// ChangeRole handles PUT /api/teams/{id}/members/{mid}/role
func (h *TeamsHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathID(w, r, "id", h.logger)
	if !ok {
		return
	}
	memberID, ok := ParsePathID(w, r, "mid", h.logger)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	member, err := h.teamService.ChangeRole(r.Context(), id, memberID, req.Role)
	if err != nil {
		writeServiceError(w, h.logger, "Change role", err)
		return
	}
	writeData(w, h.logger, http.StatusOK, member)
}
