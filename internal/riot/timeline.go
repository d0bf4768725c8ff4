package riot

import "context"

// TimelineResult is the outcome of a timeline fetch: either a present
// timeline or an absent one carrying the cause. Absence is a normal state
// for callers, not a failure of the match.
type TimelineResult struct {
	timeline *TimelineResponse
	cause    error
}

// TimelinePresent wraps a fetched timeline.
func TimelinePresent(t *TimelineResponse) TimelineResult {
	if t == nil {
		return TimelineResult{}
	}
	return TimelineResult{timeline: t}
}

// TimelineAbsent records that no timeline is available and why.
func TimelineAbsent(cause error) TimelineResult {
	return TimelineResult{cause: cause}
}

// Get returns the timeline and whether it is present.
func (r TimelineResult) Get() (*TimelineResponse, bool) {
	return r.timeline, r.timeline != nil
}

// Present reports whether a timeline is available.
func (r TimelineResult) Present() bool {
	return r.timeline != nil
}

// Cause returns why the timeline is absent (nil when present or never requested).
func (r TimelineResult) Cause() error {
	return r.cause
}

// FetchTimeline fetches a match timeline, converting any failure into an
// absent result.
func (c *Client) FetchTimeline(ctx context.Context, matchID string) TimelineResult {
	timeline, err := c.GetTimeline(ctx, matchID)
	if err != nil {
		c.logger.Warn("timeline unavailable", "match", matchID, "err", err)
		return TimelineAbsent(err)
	}
	return TimelinePresent(timeline)
}
