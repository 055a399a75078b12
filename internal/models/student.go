package models

import "time"

// Student is a registered participant. The name is unique for the lifetime
// of the record; the record is deleted when its connection closes.
type Student struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"connectionId,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}
