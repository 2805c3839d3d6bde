package mapper

import (
	"time"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// Decision classifies an incoming record against the stored state.
type Decision string

// Classification outcomes.
const (
	DecisionCreate    Decision = "create"
	DecisionUpdate    Decision = "update"
	DecisionUnchanged Decision = "unchanged"
)

// DefaultStaleness forces a refresh of records not rewritten within this
// window even when no compared field changed, keeping lastFetchedAt honest
// and catching silent changes outside the compared set.
const DefaultStaleness = 24 * time.Hour

// Classify decides create/update/unchanged for an incoming canonical record.
// existing is nil when no stored record was found. The dirty check compares
// current price, rating count, sales counter, and title; the staleness rule
// fires on stored records older than the window.
func Classify(incoming models.CanonicalRecord, existing *models.StoredRecord, now time.Time, staleness time.Duration) Decision {
	if existing == nil {
		return DecisionCreate
	}
	if staleness <= 0 {
		staleness = DefaultStaleness
	}

	if incoming.Price.Current != existing.Price.Current {
		return DecisionUpdate
	}
	if ratingCount(incoming.Rating) != ratingCount(existing.Rating) {
		return DecisionUpdate
	}
	if incoming.SalesCount != existing.SalesCount {
		return DecisionUpdate
	}
	if incoming.Title != existing.Title {
		return DecisionUpdate
	}
	if now.Sub(existing.UpdatedAt) > staleness {
		return DecisionUpdate
	}
	return DecisionUnchanged
}

func ratingCount(r *models.Rating) int {
	if r == nil {
		return 0
	}
	return r.Count
}
