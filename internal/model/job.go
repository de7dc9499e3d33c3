package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a fresh ULID string. Identifiers are engine-generated,
// never client-supplied, and never reused within a process lifetime.
func NewID() string {
	return ulid.Make().String()
}

// Job status constants.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Terminal statuses have no outgoing transitions.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether a status will never change again.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Request is the immutable payload of one transformation job: the raw
// input, the sed script to apply, and the declared input content type.
type Request struct {
	Data        []byte
	Script      string
	ContentType string
}

// Result is the transformation output: a byte payload plus its declared
// content type.
type Result struct {
	Data        []byte
	ContentType string
}

// Job is the per-identifier record tracked from admission to terminal state.
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Script      string     `json:"script"`
	ContentType string     `json:"content_type"`
	Output      []byte     `json:"output,omitempty"`
	OutputType  string     `json:"output_type,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMS  *int       `json:"duration_ms,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
