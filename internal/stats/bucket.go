package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIntegrity marks a bucket state that valid increments can never produce.
var ErrIntegrity = errors.New("bucket integrity violation")

// Kind distinguishes the bucket families.
type Kind string

const (
	KindChampion Kind = "champion"
	KindMatchup  Kind = "matchup"
	KindDuo      Kind = "duo"
	KindBan      Kind = "ban"
)

// ParseKind validates a bucket kind string.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindChampion, KindMatchup, KindDuo, KindBan:
		return k, true
	}
	return "", false
}

// BucketKey is the composite identity of a bucket. Fields that do not apply
// to a kind are left empty.
type BucketKey struct {
	Kind        Kind           `json:"kind"`
	Champion    string         `json:"champion"`
	Role        Role           `json:"role"`
	Tier        string         `json:"tier"`
	Patch       string         `json:"patch"`
	Duration    DurationBucket `json:"duration,omitempty"`
	Opponent    string         `json:"opponent,omitempty"`
	Partner     string         `json:"partner,omitempty"`
	PartnerRole Role           `json:"partnerRole,omitempty"`
}

// ChampionKey builds the key of a champion bucket.
func ChampionKey(champion string, role Role, tier, patch string, d DurationBucket) BucketKey {
	return BucketKey{Kind: KindChampion, Champion: champion, Role: role, Tier: tier, Patch: patch, Duration: d}
}

// MatchupKey builds the key of a champion-vs-opponent bucket.
func MatchupKey(champion string, role Role, opponent, tier, patch string, d DurationBucket) BucketKey {
	k := ChampionKey(champion, role, tier, patch, d)
	k.Kind = KindMatchup
	k.Opponent = opponent
	return k
}

// DuoKey builds the key of a lane-pairing bucket. The two sides are ordered
// canonically so that (a, b) and (b, a) produce the same key.
func DuoKey(champA string, roleA Role, champB string, roleB Role, tier, patch string) BucketKey {
	if roleB < roleA || (roleA == roleB && champB < champA) {
		champA, roleA, champB, roleB = champB, roleB, champA, roleA
	}
	return BucketKey{
		Kind:        KindDuo,
		Champion:    champA,
		Role:        roleA,
		Tier:        tier,
		Patch:       patch,
		Partner:     champB,
		PartnerRole: roleB,
	}
}

// BanKey builds the key of a ban bucket.
func BanKey(champion, tier, patch string, d DurationBucket) BucketKey {
	return BucketKey{Kind: KindBan, Champion: champion, Role: RoleAll, Tier: tier, Patch: patch, Duration: d}
}

// ID renders the key as a stable string, used as the storage primary key.
func (k BucketKey) ID() string {
	return strings.Join([]string{
		string(k.Kind), k.Champion, string(k.Role), k.Tier, k.Patch,
		string(k.Duration), k.Opponent, k.Partner, string(k.PartnerRole),
	}, "|")
}

func (k BucketKey) String() string {
	return k.ID()
}

// Validate checks that the fields required by the key's kind are set.
func (k BucketKey) Validate() error {
	if k.Champion == "" || k.Tier == "" || k.Patch == "" || k.Role == "" {
		return fmt.Errorf("bucket key %s: champion, role, tier and patch are required", k)
	}
	switch k.Kind {
	case KindChampion, KindBan:
		if !ValidDuration(k.Duration) {
			return fmt.Errorf("bucket key %s: invalid duration bucket", k)
		}
	case KindMatchup:
		if !ValidDuration(k.Duration) || k.Opponent == "" {
			return fmt.Errorf("bucket key %s: matchup needs duration and opponent", k)
		}
	case KindDuo:
		if k.Partner == "" || k.PartnerRole == "" || k.Duration != "" {
			return fmt.Errorf("bucket key %s: duo needs partner, partner role and no duration", k)
		}
	default:
		return fmt.Errorf("bucket key %s: unknown kind", k)
	}
	return nil
}

// KeyFromParams builds and validates a key from named string parameters:
// kind, champion, role, tier, patch, duration, opponent, partner and
// partnerRole. Tier and duration are upper-cased; roles accept aliases.
func KeyFromParams(get func(name string) string) (BucketKey, error) {
	kind, ok := ParseKind(get("kind"))
	if !ok {
		return BucketKey{}, errors.New("unknown bucket kind")
	}
	tier := strings.ToUpper(get("tier"))
	patch := get("patch")
	champion := get("champion")
	duration := DurationBucket(strings.ToUpper(get("duration")))

	parseRole := func(param string) (Role, error) {
		raw := get(param)
		if raw == "" {
			return "", errors.New(param + " is required")
		}
		role, ok := ParseRole(raw)
		if !ok {
			return "", errors.New("unknown " + param + " " + strconv.Quote(raw))
		}
		return role, nil
	}

	var key BucketKey
	switch kind {
	case KindChampion, KindMatchup:
		role, err := parseRole("role")
		if err != nil {
			return key, err
		}
		key = ChampionKey(champion, role, tier, patch, duration)
		if kind == KindMatchup {
			key = MatchupKey(champion, role, get("opponent"), tier, patch, duration)
		}
	case KindDuo:
		a, err := parseRole("role")
		if err != nil {
			return key, err
		}
		b, err := parseRole("partnerRole")
		if err != nil {
			return key, err
		}
		key = DuoKey(champion, a, get("partner"), b, tier, patch)
	case KindBan:
		key = BanKey(champion, tier, patch, duration)
	}
	return key, key.Validate()
}

// Totals are the additive accumulators of a bucket. Means are always derived
// from sums at read time so that merges stay order-independent.
type Totals struct {
	Matches int64 `json:"matches"`
	Wins    int64 `json:"wins"`
	Bans    int64 `json:"bans"`

	Kills   int64 `json:"kills"`
	Deaths  int64 `json:"deaths"`
	Assists int64 `json:"assists"`

	Damage          int64 `json:"damage"`
	Gold            int64 `json:"gold"`
	CS              int64 `json:"cs"`
	Vision          int64 `json:"vision"`
	DurationSeconds int64 `json:"durationSeconds"`
	Objectives      int64 `json:"objectives"`

	DamageShare float64 `json:"damageShare"`
	GoldShare   float64 `json:"goldShare"`
	Utility     float64 `json:"utility"`

	// Laning deltas at 15 minutes, summed over LaneSamples matches.
	LaneSamples int64   `json:"laneSamples"`
	LaneCS      float64 `json:"laneCs"`
	LaneGold    float64 `json:"laneGold"`
	LaneXP      float64 `json:"laneXp"`
}

// Add returns the field-wise sum.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Matches:         t.Matches + o.Matches,
		Wins:            t.Wins + o.Wins,
		Bans:            t.Bans + o.Bans,
		Kills:           t.Kills + o.Kills,
		Deaths:          t.Deaths + o.Deaths,
		Assists:         t.Assists + o.Assists,
		Damage:          t.Damage + o.Damage,
		Gold:            t.Gold + o.Gold,
		CS:              t.CS + o.CS,
		Vision:          t.Vision + o.Vision,
		DurationSeconds: t.DurationSeconds + o.DurationSeconds,
		Objectives:      t.Objectives + o.Objectives,
		DamageShare:     t.DamageShare + o.DamageShare,
		GoldShare:       t.GoldShare + o.GoldShare,
		Utility:         t.Utility + o.Utility,
		LaneSamples:     t.LaneSamples + o.LaneSamples,
		LaneCS:          t.LaneCS + o.LaneCS,
		LaneGold:        t.LaneGold + o.LaneGold,
		LaneXP:          t.LaneXP + o.LaneXP,
	}
}

// Validate checks wins <= matches and that no count is negative.
func (t Totals) Validate() error {
	if err := (Counter{Wins: t.Wins, Matches: t.Matches}).Validate(); err != nil {
		return err
	}
	for _, v := range []int64{t.Bans, t.Kills, t.Deaths, t.Assists, t.Damage, t.Gold, t.CS, t.Vision, t.DurationSeconds, t.Objectives, t.LaneSamples} {
		if v < 0 {
			return fmt.Errorf("%w: negative accumulator in %+v", ErrIntegrity, t)
		}
	}
	if t.LaneSamples > t.Matches {
		return fmt.Errorf("%w: lane samples %d > matches %d", ErrIntegrity, t.LaneSamples, t.Matches)
	}
	return nil
}

// WinRate returns wins/matches, or 0 when empty.
func (t Totals) WinRate() float64 {
	return Counter{Wins: t.Wins, Matches: t.Matches}.WinRate()
}

// Minutes returns the accumulated match time in minutes.
func (t Totals) Minutes() float64 {
	return float64(t.DurationSeconds) / 60
}

// KDA returns (kills+assists)/max(1,deaths) over the accumulated sums.
func (t Totals) KDA() float64 {
	return float64(t.Kills+t.Assists) / float64(max(1, t.Deaths))
}

// Delta is one contribution to a bucket.
type Delta struct {
	Key    BucketKey     `json:"key"`
	Totals Totals        `json:"totals"`
	Freq   FrequencyMaps `json:"freq,omitempty"`
}

// Validate checks the key and that the contribution is itself consistent.
func (d Delta) Validate() error {
	if err := d.Key.Validate(); err != nil {
		return err
	}
	if err := d.Totals.Validate(); err != nil {
		return fmt.Errorf("delta %s: %w", d.Key, err)
	}
	if err := d.Freq.Validate(); err != nil {
		return fmt.Errorf("delta %s: %w", d.Key, err)
	}
	return nil
}

// Bucket is the merged aggregate for one key.
type Bucket struct {
	Key    BucketKey     `json:"key"`
	Totals Totals        `json:"totals"`
	Freq   FrequencyMaps `json:"freq,omitempty"`
}

// NewBucket returns an empty bucket for key.
func NewBucket(key BucketKey) Bucket {
	return Bucket{Key: key, Freq: make(FrequencyMaps)}
}

// Merge applies deltas to b by field-wise addition and returns the result.
// b is not modified. Any delta for another key, or a result that breaks
// wins <= matches, is reported as an error wrapping ErrIntegrity.
func Merge(b Bucket, deltas ...Delta) (Bucket, error) {
	out := Bucket{Key: b.Key, Totals: b.Totals, Freq: FrequencyMaps(nil).Merge(b.Freq)}
	for _, d := range deltas {
		if d.Key != b.Key {
			return b, fmt.Errorf("%w: delta for %s applied to %s", ErrIntegrity, d.Key, b.Key)
		}
		out.Totals = out.Totals.Add(d.Totals)
		out.Freq = out.Freq.Merge(d.Freq)
	}
	if err := out.Totals.Validate(); err != nil {
		return b, fmt.Errorf("bucket %s: %w", b.Key, err)
	}
	if err := out.Freq.Validate(); err != nil {
		return b, fmt.Errorf("bucket %s: %w", b.Key, err)
	}
	return out, nil
}
