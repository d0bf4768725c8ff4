package storage

import (
	"time"

	"riftstats/internal/riot"
)

// ArchivedMatch is one raw match as fetched, stored one per JSONL line so
// aggregation can be replayed without calling the API again.
type ArchivedMatch struct {
	MatchID    string                 `json:"matchId"`
	Tier       string                 `json:"tier"`
	ArchivedAt time.Time              `json:"archivedAt"`
	Match      *riot.MatchResponse    `json:"match"`
	Timeline   *riot.TimelineResponse `json:"timeline,omitempty"`
}

// TimelineResult restores the timeline presence recorded at archive time.
func (a ArchivedMatch) TimelineResult() riot.TimelineResult {
	if a.Timeline == nil {
		return riot.TimelineAbsent(ErrTimelineNotArchived)
	}
	return riot.TimelinePresent(a.Timeline)
}
