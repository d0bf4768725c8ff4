package build

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"riftstats/internal/riot"
	"riftstats/internal/stats"
)

const maxSkillRank = 5

var skillNames = map[int]string{1: "Q", 2: "W", 3: "E"}

// SkillOrder returns the max order of the basic abilities, e.g. "Q>E>W".
// Abilities are ranked by when they reached max rank; those never maxed
// follow, by rank then by first level-up. Returns "" without skill-ups.
func SkillOrder(events []riot.TimelineEvent) string {
	type skill struct {
		slot    int
		rank    int
		first   int // index of first level-up
		maxedAt int // index of the level-up reaching max rank, -1 if never
	}

	skills := make(map[int]*skill)
	step := 0
	for _, e := range events {
		if e.Type != riot.EventSkillLevelUp || e.LevelUpType == "EVOLVE" {
			continue
		}
		if _, basic := skillNames[e.SkillSlot]; !basic {
			continue
		}
		s, ok := skills[e.SkillSlot]
		if !ok {
			s = &skill{slot: e.SkillSlot, first: step, maxedAt: -1}
			skills[e.SkillSlot] = s
		}
		s.rank++
		if s.rank == maxSkillRank {
			s.maxedAt = step
		}
		step++
	}
	if len(skills) == 0 {
		return ""
	}

	ordered := make([]*skill, 0, len(skills))
	for _, s := range skills {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.maxedAt >= 0 && b.maxedAt >= 0:
			return a.maxedAt < b.maxedAt
		case a.maxedAt >= 0 || b.maxedAt >= 0:
			return a.maxedAt >= 0
		case a.rank != b.rank:
			return a.rank > b.rank
		default:
			return a.first < b.first
		}
	})

	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = skillNames[s.slot]
	}
	return strings.Join(names, ">")
}

// RuneKeys returns one key per selected perk plus a page key
// "page_<primary>_<sub>_<keystone>". A missing primary style yields perk keys only.
func RuneKeys(perks riot.Perks) []string {
	var keys []string
	var primary, sub *riot.PerkStyle
	for i := range perks.Styles {
		style := &perks.Styles[i]
		switch style.Description {
		case "primaryStyle":
			primary = style
		case "subStyle":
			sub = style
		}
		for _, sel := range style.Selections {
			keys = append(keys, strconv.Itoa(sel.Perk))
		}
	}

	if primary != nil && len(primary.Selections) > 0 {
		subStyle := 0
		if sub != nil {
			subStyle = sub.Style
		}
		keys = append(keys, fmt.Sprintf("page_%d_%d_%d", primary.Style, subStyle, primary.Selections[0].Perk))
	}
	return keys
}

// SpellKey returns the summoner spell pair as "<low>_<high>".
func SpellKey(spell1, spell2 int) string {
	if spell2 < spell1 {
		spell1, spell2 = spell2, spell1
	}
	return strconv.Itoa(spell1) + "_" + strconv.Itoa(spell2)
}

// Loadout gathers everything recorded in a participant's frequency maps.
type Loadout struct {
	Build      Build
	Runes      []string
	Spells     string
	SkillOrder string
}

// MineLoadout mines a participant's build, runes, spells and, when the
// timeline is present, skill order.
func MineLoadout(p *riot.MatchParticipant, timeline riot.TimelineResult, catalog ItemCatalog) Loadout {
	l := Loadout{
		Build:  Mine(p.FinalItems(), LogFromTimeline(timeline, p.ParticipantID), catalog),
		Runes:  RuneKeys(p.Perks),
		Spells: SpellKey(p.Summoner1ID, p.Summoner2ID),
	}
	if t, ok := timeline.Get(); ok {
		l.SkillOrder = SkillOrder(t.ParticipantEvents(p.ParticipantID, riot.EventSkillLevelUp))
	}
	return l
}

// FrequencyMaps converts the loadout into nested map contributions.
func (l Loadout) FrequencyMaps(win bool) stats.FrequencyMaps {
	fm := make(stats.FrequencyMaps)
	l.Build.Record(fm.Map(stats.MapItems), win)

	runes := fm.Map(stats.MapRunes)
	seen := make(map[string]bool, len(l.Runes))
	for _, key := range l.Runes {
		if seen[key] {
			continue
		}
		seen[key] = true
		runes.Record(key, win)
	}

	if l.Spells != "" && l.Spells != "0_0" {
		fm.Map(stats.MapSpells).Record(l.Spells, win)
	}
	if l.SkillOrder != "" {
		fm.Map(stats.MapSkillOrder).Record(l.SkillOrder, win)
	}
	return fm
}
