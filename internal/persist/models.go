package persist

import "time"

// Conversation groups the messages exchanged by one agent on one channel.
// The channel is usually the action key that produced the messages.
type Conversation struct {
	ID        int64
	Agent     string
	Channel   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single stored turn.
type Message struct {
	ID        int64
	Role      string // "user" | "assistant" | "system"
	Content   string
	CreatedAt time.Time
}

// RunStatus is the outcome of one action execution.
type RunStatus string

const (
	RunOK    RunStatus = "ok"
	RunError RunStatus = "error"
)

// Run records one action execution within an agent run.
type Run struct {
	ID        int64
	RunID     string
	Agent     string
	Action    string
	Status    RunStatus
	Output    any
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}
