package polls

import (
	"github.com/google/uuid"

	"github.com/pollsapp/backend/internal/models"
)

// Plan is the set of question writes that brings a poll's stored questions in
// line with an edit payload.
type Plan struct {
	Update []models.Question
	Create []models.Question
	Delete []uuid.UUID
}

// Empty reports whether the plan has no writes.
func (p Plan) Empty() bool {
	return len(p.Update) == 0 && len(p.Create) == 0 && len(p.Delete) == 0
}

// Reconcile matches incoming questions to stored ones by id only. Each stored
// question claims at most one incoming element; unclaimed stored questions are
// deleted and unclaimed incoming elements are created with their id dropped.
// Updates are emitted only when a field actually changes.
func Reconcile(pollID uuid.UUID, existing []models.Question, incoming []models.QuestionInput) Plan {
	pending := make([]models.QuestionInput, len(incoming))
	copy(pending, incoming)
	claimed := make([]bool, len(pending))

	var plan Plan
	for _, q := range existing {
		idx := -1
		for i, in := range pending {
			if !claimed[i] && in.ID != nil && *in.ID == q.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			plan.Delete = append(plan.Delete, q.ID)
			continue
		}
		claimed[idx] = true
		if q.SameContent(pending[idx]) {
			continue
		}
		updated := q
		updated.Apply(pending[idx])
		plan.Update = append(plan.Update, updated)
	}

	for i, in := range pending {
		if claimed[i] {
			continue
		}
		q := models.Question{PollID: pollID}
		q.Apply(in)
		plan.Create = append(plan.Create, q)
	}
	return plan
}
