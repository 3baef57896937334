package models

import "time"

// Team groups users and the projects they collaborate on.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	ProjectIDs  []string  `json:"project_ids"`
	InviteToken string    `json:"invite_token"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Team) GetID() string { return t.ID }

// TeamRole is a member's role within a team.
type TeamRole string

const (
	RoleOwner  TeamRole = "owner"
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

// IsAssignable reports whether the role can be granted through a role change.
// Ownership is fixed at team creation.
func (r TeamRole) IsAssignable() bool {
	return r == RoleAdmin || r == RoleMember
}

// TeamMember links a user to a team.
type TeamMember struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"team_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar,omitempty"`
	Role       TeamRole  `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}

func (m TeamMember) GetID() string { return m.ID }
