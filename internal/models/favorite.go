package models

import (
	"time"

	"github.com/google/uuid"
)

// FavoritePoll marks a poll as a favorite of a user. (UserID, PollID) is unique.
type FavoritePoll struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
