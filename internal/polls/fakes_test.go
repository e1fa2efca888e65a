package polls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pollsapp/backend/internal/models"
	"github.com/pollsapp/backend/pkg/apperr"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store with snapshot/rollback transactions.
type memStore struct {
	polls     map[uuid.UUID]models.Poll
	order     []uuid.UUID
	questions map[uuid.UUID][]models.Question
	favorites map[uuid.UUID]map[uuid.UUID]bool
	failOn    string
	calls     []string
}

func newMemStore() *memStore {
	return &memStore{
		polls:     make(map[uuid.UUID]models.Poll),
		questions: make(map[uuid.UUID][]models.Question),
		favorites: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *memStore) call(name string) error {
	m.calls = append(m.calls, name)
	if m.failOn == name {
		return errInjected
	}
	return nil
}

// seed stores a poll with questions as-is, assigning missing question ids.
func (m *memStore) seed(p models.Poll) models.Poll {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().Add(time.Duration(len(m.order)) * time.Second)
	}
	qs := make([]models.Question, len(p.Questions))
	for i, q := range p.Questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.Type == "" {
			q.Type = models.QuestionText
		}
		q.PollID = p.ID
		qs[i] = q
	}
	p.Questions = nil
	m.polls[p.ID] = p
	m.order = append(m.order, p.ID)
	m.questions[p.ID] = qs
	return m.load(p.ID)
}

func (m *memStore) favorite(userID, pollID uuid.UUID) {
	if m.favorites[userID] == nil {
		m.favorites[userID] = make(map[uuid.UUID]bool)
	}
	m.favorites[userID][pollID] = true
}

func (m *memStore) load(id uuid.UUID) models.Poll {
	p := m.polls[id]
	p.Questions = append([]models.Question{}, m.questions[id]...)
	return p
}

func (m *memStore) GetPoll(_ context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error) {
	if err := m.call("GetPoll"); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, fmt.Errorf("poll state filter required")
	}
	p, ok := m.polls[id]
	if !ok || !state.Matches(p.Archived) {
		return nil, apperr.NotFound("poll not found")
	}
	out := m.load(id)
	return &out, nil
}

func (m *memStore) GetPollForUpdate(ctx context.Context, id uuid.UUID, state models.PollState) (*models.Poll, error) {
	return m.GetPoll(ctx, id, state)
}

func (m *memStore) ListPolls(_ context.Context, filter models.PollFilter) ([]models.Poll, error) {
	if err := m.call("ListPolls"); err != nil {
		return nil, err
	}
	if !filter.State.Valid() {
		return nil, fmt.Errorf("poll state filter required")
	}
	var out []models.Poll
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.polls[m.order[i]]
		if !filter.State.Matches(p.Archived) {
			continue
		}
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.FavoritedBy != nil && !m.favorites[*filter.FavoritedBy][p.ID] {
			continue
		}
		out = append(out, m.load(p.ID))
	}
	return out, nil
}

func (m *memStore) CreatePoll(_ context.Context, p *models.Poll) error {
	if err := m.call("CreatePoll"); err != nil {
		return err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	for i := range p.Questions {
		p.Questions[i].ID = uuid.New()
		p.Questions[i].PollID = p.ID
	}
	stored := *p
	stored.Questions = nil
	m.polls[p.ID] = stored
	m.order = append(m.order, p.ID)
	m.questions[p.ID] = append([]models.Question{}, p.Questions...)
	return nil
}

func (m *memStore) SetArchived(_ context.Context, id uuid.UUID, archived bool, at *time.Time) (*models.Poll, error) {
	if err := m.call("SetArchived"); err != nil {
		return nil, err
	}
	p, ok := m.polls[id]
	if !ok || p.Archived == archived {
		return nil, apperr.NotFound("poll not found")
	}
	p.Archived = archived
	p.ArchivedAt = at
	m.polls[id] = p
	out := m.load(id)
	return &out, nil
}

func (m *memStore) DeletePoll(_ context.Context, id uuid.UUID) error {
	if err := m.call("DeletePoll"); err != nil {
		return err
	}
	if _, ok := m.polls[id]; !ok {
		return apperr.NotFound("poll not found")
	}
	delete(m.polls, id)
	delete(m.questions, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	for _, favs := range m.favorites {
		delete(favs, id)
	}
	return nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx TxStore) error) error {
	if err := m.call("InTx"); err != nil {
		return err
	}
	polls := make(map[uuid.UUID]models.Poll, len(m.polls))
	for k, v := range m.polls {
		polls[k] = v
	}
	questions := make(map[uuid.UUID][]models.Question, len(m.questions))
	for k, v := range m.questions {
		questions[k] = append([]models.Question{}, v...)
	}
	if err := fn(m); err != nil {
		m.polls = polls
		m.questions = questions
		return err
	}
	return nil
}

func (m *memStore) ListQuestions(_ context.Context, pollID uuid.UUID) ([]models.Question, error) {
	if err := m.call("ListQuestions"); err != nil {
		return nil, err
	}
	return append([]models.Question{}, m.questions[pollID]...), nil
}

func (m *memStore) UpdatePollFields(_ context.Context, p *models.Poll) error {
	if err := m.call("UpdatePollFields"); err != nil {
		return err
	}
	stored, ok := m.polls[p.ID]
	if !ok {
		return apperr.NotFound("poll not found")
	}
	stored.Title = p.Title
	stored.Description = p.Description
	stored.Premium = p.Premium
	m.polls[p.ID] = stored
	return nil
}

func (m *memStore) CreateQuestion(_ context.Context, q *models.Question) error {
	if err := m.call("CreateQuestion"); err != nil {
		return err
	}
	q.ID = uuid.New()
	m.questions[q.PollID] = append(m.questions[q.PollID], *q)
	return nil
}

func (m *memStore) UpdateQuestion(_ context.Context, q models.Question) error {
	if err := m.call("UpdateQuestion"); err != nil {
		return err
	}
	qs := m.questions[q.PollID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = q
			return nil
		}
	}
	return apperr.NotFound("question not found")
}

func (m *memStore) DeleteQuestion(_ context.Context, pollID, questionID uuid.UUID) error {
	if err := m.call("DeleteQuestion"); err != nil {
		return err
	}
	qs := m.questions[pollID]
	for i := range qs {
		if qs[i].ID == questionID {
			m.questions[pollID] = append(qs[:i:i], qs[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("question not found")
}

// setAnnotator marks polls found in a user -> poll set.
type setAnnotator struct {
	favorites map[uuid.UUID]map[uuid.UUID]bool
	calls     int
}

func (a *setAnnotator) Annotate(_ context.Context, polls []models.Poll, viewer *uuid.UUID) ([]models.PollView, error) {
	a.calls++
	views := make([]models.PollView, len(polls))
	for i, p := range polls {
		views[i] = models.PollView{Poll: p}
		if viewer != nil {
			views[i].IsFavorite = a.favorites[*viewer][p.ID]
		}
	}
	return views, nil
}

type publishedEvent struct {
	event  string
	pollID uuid.UUID
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event string, pollID uuid.UUID, _ interface{}) error {
	r.events = append(r.events, publishedEvent{event: event, pollID: pollID})
	return r.err
}
