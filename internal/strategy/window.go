package strategy

import (
	"time"

	"funding_bot/internal/models"
)

// InEntryWindow - пора ли входить по кандидату с таким msToFunding.
func InEntryWindow(policy models.EntryTimingPolicy, msToFunding int64, window time.Duration) bool {
	w := window.Milliseconds()
	switch policy {
	case models.EntryPreFunding:
		return msToFunding > 0 && msToFunding <= w
	case models.EntryPostFunding:
		return -msToFunding > 0 && -msToFunding <= w
	case models.EntryImmediate:
		return true
	}
	return false
}
