package history

import (
	"context"
	"time"
)

// Action defines the corrective action taken by a reconcile run.
type Action string

const (
	ActionRestart   Action = "restart"
	ActionDuplicate Action = "remove_duplicate"
)

// Event represents one corrective action to be exported to audit
// storage. Count is the instance count observed before acting; PID is
// the launched or signaled process.
type Event struct {
	Action     Action    `json:"action"`
	PID        int       `json:"pid"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for watchdog audit events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
