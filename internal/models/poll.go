package models

import (
	"time"

	"github.com/google/uuid"
)

// PollState selects polls by archive state. Every poll query names one
// explicitly; the empty value is rejected by the store.
type PollState string

const (
	PollStateActive   PollState = "active"
	PollStateArchived PollState = "archived"
	PollStateAny      PollState = "any"
)

// Valid reports whether s is one of the known states.
func (s PollState) Valid() bool {
	switch s {
	case PollStateActive, PollStateArchived, PollStateAny:
		return true
	}
	return false
}

// Matches reports whether a poll with the given archived flag falls under s.
func (s PollState) Matches(archived bool) bool {
	switch s {
	case PollStateActive:
		return !archived
	case PollStateArchived:
		return archived
	case PollStateAny:
		return true
	}
	return false
}

// Poll is a survey definition owned by a user.
// ArchivedAt is set iff Archived is true.
type Poll struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Archived    bool       `json:"archived"`
	ArchivedAt  *time.Time `json:"archived_at"`
	Premium     bool       `json:"premium"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions"`
}

// State returns the poll's lifecycle state.
func (p *Poll) State() PollState {
	if p.Archived {
		return PollStateArchived
	}
	return PollStateActive
}

// PollView is a poll annotated for one viewer. IsFavorite is computed per
// request and never stored.
type PollView struct {
	Poll
	IsFavorite bool `json:"is_favorite"`
}

// PollFilter narrows a poll listing.
type PollFilter struct {
	State PollState
	// OwnerID restricts to polls owned by this user.
	OwnerID *uuid.UUID
	// FavoritedBy restricts to polls this user has marked as favorite.
	FavoritedBy *uuid.UUID
}

// PollInput is the payload for creating or editing a poll.
// Questions must be present (possibly empty); a nil slice means the field was omitted.
type PollInput struct {
	Title       string          `json:"title" binding:"required,max=50"`
	Description string          `json:"description" binding:"max=100"`
	Premium     bool            `json:"premium"`
	Questions   []QuestionInput `json:"questions" binding:"dive"`
}
