package event

import "time"

// Event — запись о событии, произошедшем в одной из подсистем.
type Event struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Source      Source     `json:"source"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Input carries the mutable fields of an event. It is what a stream message
// decodes into and what create/update calls accept.
type Input struct {
	Source      Source `json:"source"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	MaxNameLen        = 50
	MaxDescriptionLen = 155
)
