package riot

import (
	"strconv"
	"strings"
)

// NormalizePatch converts "15.24.734.7485" to "15.24"
func NormalizePatch(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return version
}

// Patch returns the major.minor game version of the match.
func (m *MatchInfo) Patch() string {
	return NormalizePatch(m.GameVersion)
}

// DurationSeconds returns the match length in seconds.
// Payloads without gameEndTimestamp report gameDuration in milliseconds.
func (m *MatchInfo) DurationSeconds() int {
	if m.GameDuration <= 0 {
		return 0
	}
	if m.GameEndTimestamp == 0 {
		return int(m.GameDuration / 1000)
	}
	return int(m.GameDuration)
}

// Participant returns the participant with the given participantId.
func (m *MatchInfo) Participant(participantID int) (*MatchParticipant, bool) {
	for i := range m.Participants {
		if m.Participants[i].ParticipantID == participantID {
			return &m.Participants[i], true
		}
	}
	return nil, false
}

// ParticipantByPUUID returns the participant owning the given PUUID.
func (m *MatchInfo) ParticipantByPUUID(puuid string) (*MatchParticipant, bool) {
	for i := range m.Participants {
		if m.Participants[i].PUUID == puuid {
			return &m.Participants[i], true
		}
	}
	return nil, false
}

// TeamTotals holds same-team sums used as share denominators.
type TeamTotals struct {
	Damage int
	Gold   int
	Kills  int
}

// TeamTotals sums damage, gold and kills for one team.
func (m *MatchInfo) TeamTotals(teamID int) TeamTotals {
	var t TeamTotals
	for _, p := range m.Participants {
		if p.TeamID != teamID {
			continue
		}
		t.Damage += p.TotalDamageDealtToChampions
		t.Gold += p.GoldEarned
		t.Kills += p.Kills
	}
	return t
}

// FrameAt returns the participant frame for a participant at the first frame
// whose timestamp is at or after ts. ok is false when the timeline is too short.
func (t *TimelineResponse) FrameAt(participantID, ts int) (ParticipantFrame, bool) {
	key := strconv.Itoa(participantID)
	for _, frame := range t.Info.Frames {
		if frame.Timestamp < ts {
			continue
		}
		pf, ok := frame.ParticipantFrames[key]
		return pf, ok
	}
	return ParticipantFrame{}, false
}

// ParticipantEvents returns the events of the given types for one participant,
// in timeline order.
func (t *TimelineResponse) ParticipantEvents(participantID int, types ...string) []TimelineEvent {
	want := make(map[string]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}

	var events []TimelineEvent
	for _, frame := range t.Info.Frames {
		for _, event := range frame.Events {
			if event.ParticipantID != participantID || !want[event.Type] {
				continue
			}
			events = append(events, event)
		}
	}
	return events
}
