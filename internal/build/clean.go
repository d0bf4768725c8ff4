package build

import "riftstats/internal/riot"

// EventLog is a participant's cleaned item events, or the explicit absence
// of a timeline.
type EventLog struct {
	events  []riot.TimelineEvent
	present bool
}

// AbsentLog is the log of a participant whose timeline could not be fetched.
func AbsentLog() EventLog {
	return EventLog{}
}

// PresentLog wraps already cleaned events.
func PresentLog(events []riot.TimelineEvent) EventLog {
	return EventLog{events: events, present: true}
}

// LogFromTimeline extracts and cleans one participant's item events.
func LogFromTimeline(result riot.TimelineResult, participantID int) EventLog {
	timeline, ok := result.Get()
	if !ok {
		return AbsentLog()
	}
	raw := timeline.ParticipantEvents(participantID,
		riot.EventItemPurchased, riot.EventItemSold, riot.EventItemUndo)
	return PresentLog(CleanEvents(raw))
}

// Present reports whether the log came from a timeline.
func (l EventLog) Present() bool {
	return l.present
}

// Events returns the cleaned events in chronological order.
func (l EventLog) Events() []riot.TimelineEvent {
	return l.events
}

// CleanEvents applies ITEM_UNDO events. An undo removes the most recent
// remaining purchase or sale when it concerns the same item; otherwise it is
// dropped without touching anything. Non-item events are discarded.
func CleanEvents(events []riot.TimelineEvent) []riot.TimelineEvent {
	clean := make([]riot.TimelineEvent, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case riot.EventItemPurchased, riot.EventItemSold:
			clean = append(clean, e)
		case riot.EventItemUndo:
			if len(clean) == 0 {
				continue
			}
			if last := clean[len(clean)-1]; undoes(e, last) {
				clean = clean[:len(clean)-1]
			}
		}
	}
	return clean
}

// undoes reports whether undo cancels last. Purchases are undone with the
// item in beforeId, sales with the item in afterId.
func undoes(undo, last riot.TimelineEvent) bool {
	for _, id := range []int{undo.BeforeID, undo.AfterID, undo.ItemID} {
		if id != 0 && id == last.ItemID {
			return true
		}
	}
	return false
}
