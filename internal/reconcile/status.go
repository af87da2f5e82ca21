package reconcile

import (
	"strings"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
)

var statusFromBackend = map[string]domain.Status{
	"PENDING":   domain.StatusPending,
	"ACTIVE":    domain.StatusActive,
	"REJECTED":  domain.StatusRejected,
	"COMPLETED": domain.StatusCompleted,
	"CANCELLED": domain.StatusRejected,
	"CANCELED":  domain.StatusRejected,
}

// MapStatus folds a backend status into the dashboard vocabulary. Matching
// ignores case; unknown values pass through as sent, minus surrounding space.
func MapStatus(raw string) domain.Status {
	s := strings.TrimSpace(raw)
	if mapped, ok := statusFromBackend[strings.ToUpper(s)]; ok {
		return mapped
	}
	return domain.Status(s)
}
