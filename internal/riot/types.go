package riot

import "strings"

// AccountResponse represents the response from /riot/account/v1/accounts/by-riot-id
type AccountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// MatchResponse represents the response from /lol/match/v5/matches/{matchId}
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation     int64              `json:"gameCreation"`
	GameStartTime    int64              `json:"gameStartTimestamp"`
	GameEndTimestamp int64              `json:"gameEndTimestamp"`
	GameDuration     int64              `json:"gameDuration"`
	GameVersion      string             `json:"gameVersion"`
	QueueID          int                `json:"queueId"`
	PlatformID       string             `json:"platformId"`
	Participants     []MatchParticipant `json:"participants"`
	Teams            []MatchTeam        `json:"teams"`
}

type MatchTeam struct {
	TeamID int        `json:"teamId"` // 100 blue, 200 red
	Win    bool       `json:"win"`
	Bans   []MatchBan `json:"bans"`
}

type MatchBan struct {
	ChampionID int `json:"championId"` // -1 when the ban was skipped
	PickTurn   int `json:"pickTurn"`
}

type MatchParticipant struct {
	ParticipantID  int    `json:"participantId"`
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	ChampionID     int    `json:"championId"`
	ChampionName   string `json:"championName"`
	TeamID         int    `json:"teamId"`
	TeamPosition   string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win            bool   `json:"win"`

	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`

	TotalDamageDealtToChampions int `json:"totalDamageDealtToChampions"`
	GoldEarned                  int `json:"goldEarned"`
	TotalMinionsKilled          int `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int `json:"neutralMinionsKilled"`
	VisionScore                 int `json:"visionScore"`

	DragonKills        int `json:"dragonKills"`
	BaronKills         int `json:"baronKills"`
	TurretTakedowns    int `json:"turretTakedowns"`
	InhibitorTakedowns int `json:"inhibitorTakedowns"`

	TotalHealsOnTeammates          int `json:"totalHealsOnTeammates"`
	TotalDamageShieldedOnTeammates int `json:"totalDamageShieldedOnTeammates"`
	TimeCCingOthers                int `json:"timeCCingOthers"` // seconds

	Summoner1ID int   `json:"summoner1Id"`
	Summoner2ID int   `json:"summoner2Id"`
	Perks       Perks `json:"perks"`

	Item0 int `json:"item0"`
	Item1 int `json:"item1"`
	Item2 int `json:"item2"`
	Item3 int `json:"item3"`
	Item4 int `json:"item4"`
	Item5 int `json:"item5"`
	Item6 int `json:"item6"` // Trinket
}

// FinalItems returns the six inventory slots (trinket excluded), 0 for empty.
func (p *MatchParticipant) FinalItems() [6]int {
	return [6]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5}
}

// CreepScore is lane minions plus jungle monsters.
func (p *MatchParticipant) CreepScore() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}

type Perks struct {
	Styles []PerkStyle `json:"styles"`
}

type PerkStyle struct {
	Description string          `json:"description"` // primaryStyle or subStyle
	Style       int             `json:"style"`
	Selections  []PerkSelection `json:"selections"`
}

type PerkSelection struct {
	Perk int `json:"perk"`
}

// TimelineResponse represents the response from /lol/match/v5/matches/{matchId}/timeline
type TimelineResponse struct {
	Metadata TimelineMetadata `json:"metadata"`
	Info     TimelineInfo     `json:"info"`
}

type TimelineMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type TimelineInfo struct {
	FrameInterval int             `json:"frameInterval"`
	Frames        []TimelineFrame `json:"frames"`
}

type TimelineFrame struct {
	Timestamp         int                         `json:"timestamp"`
	Events            []TimelineEvent             `json:"events"`
	ParticipantFrames map[string]ParticipantFrame `json:"participantFrames"` // keyed "1".."10"
}

type ParticipantFrame struct {
	ParticipantID       int `json:"participantId"`
	Level               int `json:"level"`
	XP                  int `json:"xp"`
	TotalGold           int `json:"totalGold"`
	MinionsKilled       int `json:"minionsKilled"`
	JungleMinionsKilled int `json:"jungleMinionsKilled"`
}

// Timeline event types consumed by the build and skill miners.
const (
	EventItemPurchased = "ITEM_PURCHASED"
	EventItemSold      = "ITEM_SOLD"
	EventItemUndo      = "ITEM_UNDO"
	EventSkillLevelUp  = "SKILL_LEVEL_UP"
)

type TimelineEvent struct {
	Type          string `json:"type"`
	Timestamp     int    `json:"timestamp"`
	ParticipantID int    `json:"participantId,omitempty"`
	ItemID        int    `json:"itemId,omitempty"`

	// ITEM_UNDO only
	AfterID  int `json:"afterId,omitempty"`
	BeforeID int `json:"beforeId,omitempty"`

	// SKILL_LEVEL_UP only
	SkillSlot   int    `json:"skillSlot,omitempty"` // 1=Q 2=W 3=E 4=R
	LevelUpType string `json:"levelUpType,omitempty"`
}

// LeagueEntryResponse represents a ranked league entry from /lol/league/v4/entries/by-puuid
type LeagueEntryResponse struct {
	QueueType    string `json:"queueType"` // RANKED_SOLO_5x5, RANKED_FLEX_SR
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// TierOrder ranks tiers for comparison (higher index = higher rank)
var TierOrder = map[string]int{
	"IRON":        0,
	"BRONZE":      1,
	"SILVER":      2,
	"GOLD":        3,
	"PLATINUM":    4,
	"EMERALD":     5,
	"DIAMOND":     6,
	"MASTER":      7,
	"GRANDMASTER": 8,
	"CHALLENGER":  9,
}

// UnrankedTier is used when no solo queue entry exists.
const UnrankedTier = "UNRANKED"

// AtLeastTier reports whether tier is floor or higher. An empty floor
// accepts every tier; unranked players never pass a non-empty floor.
func AtLeastTier(tier, floor string) bool {
	if floor == "" {
		return true
	}
	want, ok := TierOrder[strings.ToUpper(floor)]
	if !ok {
		return false
	}
	got, ok := TierOrder[strings.ToUpper(tier)]
	return ok && got >= want
}
