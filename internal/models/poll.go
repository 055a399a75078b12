package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTimeLimit is used when a create request omits the timer (seconds).
const DefaultTimeLimit = 60

// Choice is one answer option with its running tally. Position in the
// Choices slice is the client-facing choice index and never changes.
type Choice struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll represents a multiple-choice poll broadcast to the classroom.
// At most one poll has IsActive = true at any time.
type Poll struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Choices   []Choice  `json:"choices"`
	IsActive  bool      `json:"isActive"`
	TimeLimit int       `json:"timeLimit"` // seconds, advisory for the client countdown
	CreatedAt time.Time `json:"createdAt"`
}
