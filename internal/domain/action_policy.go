package domain

import (
	"time"
)

// ActionPolicy tells the dashboard which moderation buttons to offer for an event.
type ActionPolicy struct {
	CanApprove  bool   `json:"can_approve"`
	CanReject   bool   `json:"can_reject"`
	CanComplete bool   `json:"can_complete"`
	CanCancel   bool   `json:"can_cancel"`
	CanEdit     bool   `json:"can_edit"`
	CanDelete   bool   `json:"can_delete"`
	Reason      string `json:"reason,omitempty"`
}

// CalculateActionPolicy derives the allowed admin actions from the status
// lifecycle and the event's start time.
func CalculateActionPolicy(event *Event, userRole string, now time.Time) ActionPolicy {
	// 1. Role Gate
	if userRole != "admin" && userRole != "moderator" {
		return ActionPolicy{Reason: "admin_required"}
	}

	isAdmin := userRole == "admin"
	started := !event.StartsAt.IsZero() && !event.StartsAt.After(now)

	policy := ActionPolicy{
		CanDelete: isAdmin,
	}

	// 2. Lifecycle
	switch event.Status {
	case StatusPending:
		policy.CanApprove = !started
		policy.CanReject = true
		policy.CanEdit = true
		if started {
			policy.Reason = "start_time_passed"
		}
	case StatusActive:
		policy.CanComplete = CanTransition(StatusActive, StatusCompleted)
		policy.CanCancel = CanTransition(StatusActive, StatusRejected)
		policy.CanEdit = !started
	case StatusRejected, StatusCompleted:
		policy.Reason = "final_status"
	default:
		policy.Reason = "unknown_status"
	}

	return policy
}
