package polls

import (
	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/internal/models"
)

// transition is one edge of the archive state machine.
type transition struct {
	from  models.PollState
	to    models.PollState
	event string
}

var transitions = map[authz.Operation]transition{
	authz.OpArchivePoll: {from: models.PollStateActive, to: models.PollStateArchived, event: EventPollArchived},
	authz.OpRestorePoll: {from: models.PollStateArchived, to: models.PollStateActive, event: EventPollRestored},
}

// Event names published after a committed change.
const (
	EventPollCreated  = "poll.created"
	EventPollUpdated  = "poll.updated"
	EventPollArchived = "poll.archived"
	EventPollRestored = "poll.restored"
	EventPollDeleted  = "poll.deleted"
)
