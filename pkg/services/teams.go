package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/apperrors"
	"github.com/arqioly/arqioly/pkg/auth"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/models"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// TeamInput is the writable part of a team.
type TeamInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// TeamWithMembers is a team and its roster.
type TeamWithMembers struct {
	models.Team
	Members []models.TeamMember `json:"members"`
}

// TeamService manages teams, membership and invites.
type TeamService interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	GetTeam(ctx context.Context, id string) (*TeamWithMembers, error)
	// CreateTeam makes the acting user the owner.
	CreateTeam(ctx context.Context, in TeamInput) (*TeamWithMembers, error)
	UpdateTeam(ctx context.Context, id string, in TeamInput) (*models.Team, error)
	// DeleteTeam removes the team and its memberships.
	DeleteTeam(ctx context.Context, id string) error

	// ToggleProject adds the project to the team or removes it if present.
	ToggleProject(ctx context.Context, teamID, projectID string) (*models.Team, error)
	RegenerateInviteToken(ctx context.Context, teamID string) (*models.Team, error)
	// JoinByInvite adds the acting user as a member. Joining twice returns the
	// existing membership.
	JoinByInvite(ctx context.Context, token string) (*models.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, memberID string) error
	ChangeRole(ctx context.Context, teamID, memberID string, role models.TeamRole) (*models.TeamMember, error)
}

type teamService struct {
	repos     *repositories.Repositories
	publisher events.Publisher
	logger    *zap.Logger
}

// NewTeamService creates the service.
func NewTeamService(repos *repositories.Repositories, publisher events.Publisher, logger *zap.Logger) TeamService {
	return &teamService{repos: repos, publisher: publisher, logger: logger.Named("teams")}
}

var _ TeamService = (*teamService)(nil)

func (s *teamService) changed(ctx context.Context, teamID, action string) {
	publish(ctx, s.publisher, s.logger, events.TopicTeamChanged, events.TeamChanged{TeamID: teamID, Action: action})
}

func (s *teamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.repos.Teams.List(ctx)
}

func (s *teamService) members(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	members, err := s.repos.TeamMembers.Find(ctx, func(m models.TeamMember) bool { return m.TeamID == teamID })
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []models.TeamMember{}
	}
	return members, nil
}

func (s *teamService) GetTeam(ctx context.Context, id string) (*TeamWithMembers, error) {
	t, err := s.repos.Teams.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TeamWithMembers{Team: t, Members: members}, nil
}

func (s *teamService) CreateTeam(ctx context.Context, in TeamInput) (*TeamWithMembers, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	token, err := newToken(inviteTokenLength)
	if err != nil {
		return nil, err
	}

	ts := now()
	team := models.Team{
		ID:          newID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     actor.ID,
		ProjectIDs:  []string{},
		InviteToken: token,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	owner := models.TeamMember{
		ID:         newID(),
		TeamID:     team.ID,
		UserID:     actor.ID,
		UserName:   actor.Name,
		UserAvatar: actor.Avatar,
		Role:       models.RoleOwner,
		JoinedAt:   ts,
	}

	if err := s.repos.Teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	if err := s.repos.TeamMembers.Create(ctx, owner); err != nil {
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID),
		zap.String("owner_id", actor.ID))
	s.changed(ctx, team.ID, "created")
	return &TeamWithMembers{Team: team, Members: []models.TeamMember{owner}}, nil
}

// modify applies fn to the stored team and bumps updated_at.
func (s *teamService) modify(ctx context.Context, id string, fn func(t *models.Team) error) (*models.Team, error) {
	var out models.Team
	err := s.repos.Teams.Mutate(ctx, func(items []models.Team) ([]models.Team, error) {
		for i := range items {
			if items[i].ID == id {
				if err := fn(&items[i]); err != nil {
					return nil, err
				}
				items[i].UpdatedAt = now()
				out = items[i]
				return items, nil
			}
		}
		return nil, fmt.Errorf("team %q: %w", id, apperrors.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, id string, in TeamInput) (*models.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}
	t, err := s.modify(ctx, id, func(t *models.Team) error {
		t.Name = name
		t.Description = strings.TrimSpace(in.Description)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, id, "updated")
	return t, nil
}

func (s *teamService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.repos.Teams.Delete(ctx, id); err != nil {
		return err
	}
	removed, err := s.repos.TeamMembers.DeleteWhere(ctx, func(m models.TeamMember) bool { return m.TeamID == id })
	if err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}

	s.logger.Info("Team deleted",
		zap.String("team_id", id),
		zap.Int("members_removed", removed))
	s.changed(ctx, id, "deleted")
	return nil
}

func (s *teamService) ToggleProject(ctx context.Context, teamID, projectID string) (*models.Team, error) {
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	t, err := s.modify(ctx, teamID, func(t *models.Team) error {
		if slices.Contains(t.ProjectIDs, projectID) {
			t.ProjectIDs = removeString(t.ProjectIDs, projectID)
		} else {
			t.ProjectIDs = append(t.ProjectIDs, projectID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, teamID, "projects_changed")
	return t, nil
}

func (s *teamService) RegenerateInviteToken(ctx context.Context, teamID string) (*models.Team, error) {
	token, err := newToken(inviteTokenLength)
	if err != nil {
		return nil, err
	}
	t, err := s.modify(ctx, teamID, func(t *models.Team) error {
		t.InviteToken = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Team invite token regenerated", zap.String("team_id", teamID))
	s.changed(ctx, teamID, "invite_regenerated")
	return t, nil
}

func (s *teamService) JoinByInvite(ctx context.Context, token string) (*models.TeamMember, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Invalid("invite_token", "is required")
	}
	teams, err := s.repos.Teams.Find(ctx, func(t models.Team) bool { return t.InviteToken == token })
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("invite token: %w", apperrors.ErrNotFound)
	}
	team := teams[0]

	var member models.TeamMember
	joined := false
	err = s.repos.TeamMembers.Mutate(ctx, func(items []models.TeamMember) ([]models.TeamMember, error) {
		for _, m := range items {
			if m.TeamID == team.ID && m.UserID == actor.ID {
				member = m
				return items, nil
			}
		}
		member = models.TeamMember{
			ID:         newID(),
			TeamID:     team.ID,
			UserID:     actor.ID,
			UserName:   actor.Name,
			UserAvatar: actor.Avatar,
			Role:       models.RoleMember,
			JoinedAt:   now(),
		}
		joined = true
		return append(items, member), nil
	})
	if err != nil {
		return nil, fmt.Errorf("join team: %w", err)
	}

	if joined {
		s.logger.Info("User joined team",
			zap.String("team_id", team.ID),
			zap.String("user_id", actor.ID))
		s.changed(ctx, team.ID, "member_joined")
	}
	return &member, nil
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, memberID string) error {
	err := s.repos.TeamMembers.Mutate(ctx, func(items []models.TeamMember) ([]models.TeamMember, error) {
		for i, m := range items {
			if m.ID != memberID || m.TeamID != teamID {
				continue
			}
			if m.Role == models.RoleOwner {
				return nil, fmt.Errorf("the team owner cannot be removed: %w", apperrors.ErrForbidden)
			}
			return append(items[:i], items[i+1:]...), nil
		}
		return nil, fmt.Errorf("team member %q: %w", memberID, apperrors.ErrNotFound)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Team member removed",
		zap.String("team_id", teamID),
		zap.String("member_id", memberID))
	s.changed(ctx, teamID, "member_removed")
	return nil
}

func (s *teamService) ChangeRole(ctx context.Context, teamID, memberID string, role models.TeamRole) (*models.TeamMember, error) {
	if !role.IsAssignable() {
		return nil, fmt.Errorf("role %q: %w", role, apperrors.ErrInvalidRole)
	}

	var out models.TeamMember
	err := s.repos.TeamMembers.Mutate(ctx, func(items []models.TeamMember) ([]models.TeamMember, error) {
		for i := range items {
			if items[i].ID != memberID || items[i].TeamID != teamID {
				continue
			}
			if items[i].Role == models.RoleOwner {
				return nil, fmt.Errorf("the owner role cannot be changed: %w", apperrors.ErrForbidden)
			}
			items[i].Role = role
			out = items[i]
			return items, nil
		}
		return nil, fmt.Errorf("team member %q: %w", memberID, apperrors.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Team member role changed",
		zap.String("team_id", teamID),
		zap.String("member_id", memberID),
		zap.String("role", string(role)))
	s.changed(ctx, teamID, "role_changed")
	return &out, nil
}
