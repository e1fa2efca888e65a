package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmittedPoll is one completed response session. SubmitterID is nil for anonymous respondents.
type SubmittedPoll struct {
	ID          uuid.UUID  `json:"id"`
	PollID      uuid.UUID  `json:"poll_id"`
	SubmitterID *uuid.UUID `json:"submitter_id"`
	AnsweredAt  time.Time  `json:"answered_at"`
	Answers     []Answer   `json:"answers"`
}

// Answer is a respondent's value for one question.
type Answer struct {
	ID              uuid.UUID `json:"id"`
	QuestionID      uuid.UUID `json:"question_id"`
	SubmittedPollID uuid.UUID `json:"submitted_poll_id"`
	Value           *string   `json:"value"`
}

// AnswerInput is one answer in a submission payload.
type AnswerInput struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Value      *string   `json:"value" binding:"omitempty,max=100"`
}

// SubmissionInput is the payload for POST /polls/:id/submissions.
type SubmissionInput struct {
	Answers []AnswerInput `json:"answers" binding:"required,dive"`
}
