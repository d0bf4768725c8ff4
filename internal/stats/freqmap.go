package stats

import (
	"fmt"
	"sort"
)

// Counter is a win/match pair. Merging two counters sums both fields.
type Counter struct {
	Wins    int64 `json:"wins"`
	Matches int64 `json:"matches"`
}

// Add returns the field-wise sum of two counters.
func (c Counter) Add(o Counter) Counter {
	return Counter{Wins: c.Wins + o.Wins, Matches: c.Matches + o.Matches}
}

// WinRate returns wins/matches, or 0 for an empty counter.
func (c Counter) WinRate() float64 {
	if c.Matches == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Matches)
}

// Validate checks 0 <= wins <= matches.
func (c Counter) Validate() error {
	if c.Matches < 0 || c.Wins < 0 {
		return fmt.Errorf("%w: negative counter %+v", ErrIntegrity, c)
	}
	if c.Wins > c.Matches {
		return fmt.Errorf("%w: wins %d > matches %d", ErrIntegrity, c.Wins, c.Matches)
	}
	return nil
}

// FrequencyMap maps an opaque key to its win/match counter.
type FrequencyMap map[string]Counter

// Record adds one match (and a win when won) under key.
func (m FrequencyMap) Record(key string, win bool) {
	c := m[key]
	c.Matches++
	if win {
		c.Wins++
	}
	m[key] = c
}

// Merge returns a new map holding the key-wise sum of m and other.
// Neither input is modified. Merge is associative and commutative.
func (m FrequencyMap) Merge(other FrequencyMap) FrequencyMap {
	out := make(FrequencyMap, len(m)+len(other))
	for k, c := range m {
		out[k] = c
	}
	for k, c := range other {
		out[k] = out[k].Add(c)
	}
	return out
}

// Keys returns the keys in ascending order.
func (m FrequencyMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Top returns up to n keys ordered by matches descending, then key.
func (m FrequencyMap) Top(n int) []string {
	keys := m.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return m[keys[i]].Matches > m[keys[j]].Matches
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Validate checks every entry.
func (m FrequencyMap) Validate() error {
	for k, c := range m {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

// MapName identifies one of a bucket's nested frequency maps.
type MapName string

const (
	MapItems      MapName = "items"
	MapRunes      MapName = "runes"
	MapSpells     MapName = "spells"
	MapSkillOrder MapName = "skillOrder"
)

// MapNames lists the nested maps a bucket can carry.
var MapNames = []MapName{MapItems, MapRunes, MapSpells, MapSkillOrder}

// FrequencyMaps groups a bucket's nested maps by name.
type FrequencyMaps map[MapName]FrequencyMap

// Map returns the named map, creating it if needed.
func (f FrequencyMaps) Map(name MapName) FrequencyMap {
	m, ok := f[name]
	if !ok {
		m = make(FrequencyMap)
		f[name] = m
	}
	return m
}

// Merge returns the name-wise merge of f and other.
func (f FrequencyMaps) Merge(other FrequencyMaps) FrequencyMaps {
	out := make(FrequencyMaps, len(f)+len(other))
	for name, m := range f {
		out[name] = m.Merge(nil)
	}
	for name, m := range other {
		out[name] = out[name].Merge(m)
	}
	return out
}

// Validate checks every nested map.
func (f FrequencyMaps) Validate() error {
	for name, m := range f {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("map %s: %w", name, err)
		}
	}
	return nil
}
