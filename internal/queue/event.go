// Package queue carries domain events over RabbitMQ: the publisher used by
// the services and the consumer that appends them to the activity log.
package queue

import "time"

// Event types.
const (
	UserRegistered      = "user.registered"
	UserLoggedIn        = "user.logged_in"
	UserPasswordChanged = "user.password_changed"
	UserDeleted         = "user.deleted"
	PlanCreated         = "plan.created"
	PlanDeleted         = "plan.deleted"
)

// Event is the JSON payload of every message. It carries enough for the
// consumer to write an audit line without querying the database.
type Event struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Email      string `json:"email,omitempty"`
	PlanID     uint64 `json:"plan_id,omitempty"`
	Title      string `json:"title,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewEvent stamps an event of the given type with the current UTC time.
func NewEvent(typ string, userID uint64) Event {
	return Event{Type: typ, UserID: userID, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}
