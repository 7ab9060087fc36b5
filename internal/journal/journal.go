// Package journal appends simulation events to a log that the daily report
// reads back.
package journal

import "time"

// Kind names what happened.
type Kind string

const (
	KindCycle         Kind = "cycle"
	KindActorCreated  Kind = "actor_created"
	KindPost          Kind = "post"
	KindReply         Kind = "reply"
	KindLike          Kind = "like"
	KindProfile       Kind = "profile_updated"
	KindProfileFailed Kind = "profile_failed"
	KindStepFailed    Kind = "step_failed"
)

// Event is one journal line. Events are appended in chronological order.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Cycle     int       `json:"cycle,omitempty"`
	Kind      Kind      `json:"kind"`
	ActorID   string    `json:"actor_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder persists events. Implementations must be safe for concurrent use.
type Recorder interface {
	Append(event Event) error
	Load() ([]Event, error)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Append(Event) error     { return nil }
func (Nop) Load() ([]Event, error) { return nil, nil }
