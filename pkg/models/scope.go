// Package models contains domain types for arqioly.
package models

import "time"

// ScopeType is the granularity at which a scoped configuration applies.
type ScopeType string

const (
	ScopeTeam     ScopeType = "team"
	ScopeProject  ScopeType = "project"
	ScopeCategory ScopeType = "category"
	ScopeTag      ScopeType = "tag"
	ScopePrompt   ScopeType = "prompt"
)

// ValidScopeTypes lists scope types in precedence order, most specific first.
var ValidScopeTypes = []ScopeType{ScopePrompt, ScopeProject, ScopeCategory, ScopeTag, ScopeTeam}

// IsValid checks if the scope type is one of the known values.
func (s ScopeType) IsValid() bool {
	switch s {
	case ScopeTeam, ScopeProject, ScopeCategory, ScopeTag, ScopePrompt:
		return true
	}
	return false
}

// ScopeRef is the part of a scoped configuration the resolver looks at.
type ScopeRef struct {
	Type      ScopeType
	ID        string // empty for team scope
	Priority  int
	CreatedAt time.Time
}
