package domain

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"

	// StatusCancelled only appears on the wire; it is folded into StatusRejected.
	StatusCancelled Status = "CANCELLED"
)

// Canonical reports whether s belongs to the four-state dashboard vocabulary.
func (s Status) Canonical() bool {
	return s == StatusPending || s == StatusActive || s == StatusRejected || s == StatusCompleted
}

// Terminal statuses have no exposed outgoing transition.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRejected},
	StatusActive:  {StatusCompleted, StatusRejected},
}

// CanTransition reports whether moving an event from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
