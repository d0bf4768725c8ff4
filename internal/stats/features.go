package stats

import "riftstats/internal/riot"

// laneSnapshotMs is the timestamp at which laning deltas are taken.
const laneSnapshotMs = 15 * 60 * 1000

// LaneDeltas are a participant's leads over the same-role opponent at 15 minutes.
type LaneDeltas struct {
	CS   float64 `json:"cs"`
	Gold float64 `json:"gold"`
	XP   float64 `json:"xp"`
}

// Features are the per-match values derived from one participant.
type Features struct {
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	KDA     float64 `json:"kda"`

	Damage int `json:"damage"`
	Gold   int `json:"gold"`
	CS     int `json:"cs"`
	Vision int `json:"vision"`

	DamageShare     float64 `json:"damageShare"`
	GoldShare       float64 `json:"goldShare"`
	DamagePerMinute float64 `json:"damagePerMinute"`
	GoldPerMinute   float64 `json:"goldPerMinute"`
	CSPerMinute     float64 `json:"csPerMinute"`
	VisionPerMinute float64 `json:"visionPerMinute"`

	Objectives int     `json:"objectives"`
	Utility    float64 `json:"utility"`

	DurationSeconds int         `json:"durationSeconds"`
	Lane            *LaneDeltas `json:"lane,omitempty"`
}

// FeatureOptions tune extraction.
type FeatureOptions struct {
	// WeightedDeaths replaces raw deaths in the KDA denominator when set.
	WeightedDeaths *float64
	Lane           *LaneDeltas
}

// Extract derives the features of p. team holds the totals of p's team.
func Extract(p *riot.MatchParticipant, team riot.TeamTotals, durationSeconds int, opts FeatureOptions) Features {
	minutes := max(float64(durationSeconds)/60, 1)

	deaths := float64(p.Deaths)
	if opts.WeightedDeaths != nil {
		deaths = *opts.WeightedDeaths
	}

	f := Features{
		Kills:           p.Kills,
		Deaths:          p.Deaths,
		Assists:         p.Assists,
		KDA:             float64(p.Kills+p.Assists) / max(deaths, 1),
		Damage:          p.TotalDamageDealtToChampions,
		Gold:            p.GoldEarned,
		CS:              p.CreepScore(),
		Vision:          p.VisionScore,
		DamageShare:     float64(p.TotalDamageDealtToChampions) / float64(max(team.Damage, 1)),
		GoldShare:       float64(p.GoldEarned) / float64(max(team.Gold, 1)),
		Objectives:      p.DragonKills + p.BaronKills + p.TurretTakedowns + p.InhibitorTakedowns,
		Utility:         float64(p.TotalHealsOnTeammates+p.TotalDamageShieldedOnTeammates)/1000 + float64(p.TimeCCingOthers)/10,
		DurationSeconds: max(durationSeconds, 0),
		Lane:            opts.Lane,
	}
	f.DamagePerMinute = float64(f.Damage) / minutes
	f.GoldPerMinute = float64(f.Gold) / minutes
	f.CSPerMinute = float64(f.CS) / minutes
	f.VisionPerMinute = float64(f.Vision) / minutes
	return f
}

// Totals converts one participant's features into a single-match contribution.
func (f Features) Totals(win bool) Totals {
	t := Totals{
		Matches:         1,
		Kills:           int64(f.Kills),
		Deaths:          int64(f.Deaths),
		Assists:         int64(f.Assists),
		Damage:          int64(f.Damage),
		Gold:            int64(f.Gold),
		CS:              int64(f.CS),
		Vision:          int64(f.Vision),
		DurationSeconds: int64(f.DurationSeconds),
		Objectives:      int64(f.Objectives),
		DamageShare:     f.DamageShare,
		GoldShare:       f.GoldShare,
		Utility:         f.Utility,
	}
	if win {
		t.Wins = 1
	}
	if f.Lane != nil {
		t.LaneSamples = 1
		t.LaneCS = f.Lane.CS
		t.LaneGold = f.Lane.Gold
		t.LaneXP = f.Lane.XP
	}
	return t
}

// LaneDeltasAt15 compares two participants' frames at 15 minutes.
// ok is false when the timeline ends before then or a frame is missing.
func LaneDeltasAt15(timeline *riot.TimelineResponse, participantID, opponentID int) (LaneDeltas, bool) {
	mine, ok := timeline.FrameAt(participantID, laneSnapshotMs)
	if !ok {
		return LaneDeltas{}, false
	}
	theirs, ok := timeline.FrameAt(opponentID, laneSnapshotMs)
	if !ok {
		return LaneDeltas{}, false
	}
	return LaneDeltas{
		CS:   float64((mine.MinionsKilled + mine.JungleMinionsKilled) - (theirs.MinionsKilled + theirs.JungleMinionsKilled)),
		Gold: float64(mine.TotalGold - theirs.TotalGold),
		XP:   float64(mine.XP - theirs.XP),
	}, true
}
