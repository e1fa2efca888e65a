// Package favorites manages FavoritePoll rows and the per-viewer is_favorite annotation.
package favorites

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pollsapp/backend/internal/models"
)

// Lookup fetches every poll id a user has marked as favorite in one query.
type Lookup interface {
	FavoritePollIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Overlay annotates polls with the viewer's favorite flag.
type Overlay struct {
	lookup Lookup
}

// NewOverlay creates a favorite overlay.
func NewOverlay(lookup Lookup) *Overlay {
	return &Overlay{lookup: lookup}
}

// Annotate wraps polls in views. Anonymous viewers get no favorites and cost no query;
// otherwise the viewer's favorites are fetched once for the whole slice.
func (o *Overlay) Annotate(ctx context.Context, polls []models.Poll, viewer *uuid.UUID) ([]models.PollView, error) {
	views := make([]models.PollView, len(polls))
	for i, p := range polls {
		views[i] = models.PollView{Poll: p}
	}
	if viewer == nil || len(polls) == 0 {
		return views, nil
	}
	ids, err := o.lookup.FavoritePollIDs(ctx, *viewer)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range views {
		_, views[i].IsFavorite = set[views[i].ID]
	}
	return views, nil
}
