package build

import (
	"sort"
	"strconv"
	"strings"

	"riftstats/internal/riot"
	"riftstats/internal/stats"
)

const (
	startingWindowMs = 60_000
	coreSize         = 3
	maxSlots         = 6
)

// Trinkets, control wards and support quest items never count toward a final build.
var ignoredFinalItems = map[int]bool{
	3340: true, // Stealth Ward
	3363: true, // Farsight Alteration
	3364: true, // Oracle Lens
	2055: true, // Control Ward
	3865: true, // World Atlas
	3866: true, // Runic Compass
	3867: true, // Bounty of Worlds
	3869: true, // Celestial Opposition
	3870: true, // Dream Maker
	3871: true, // Zaz'Zak's Realmspike
	3876: true, // Solstice Sleigh
	3877: true, // Bloodsong
}

// Vision items are left out of starting items.
var visionItems = map[int]bool{
	3340: true,
	3363: true,
	3364: true,
	2055: true,
}

// ItemCatalog answers the two item questions core mining needs.
type ItemCatalog interface {
	IsBoots(itemID int) bool
	HasUpgrade(itemID int) bool
}

// Build is the mined item path of one participant.
type Build struct {
	FinalItems []int
	FinalKey   string

	// Timeline-dependent results, empty when the log is absent.
	StartKey string
	Core     []int
	CoreKey  string
	SlotKeys []string
}

// Mine reconstructs a participant's build from final slots and cleaned events.
// Without a timeline only the final build is produced.
func Mine(final [6]int, log EventLog, catalog ItemCatalog) Build {
	var b Build
	b.FinalItems = finalItems(final)
	if len(b.FinalItems) > 0 {
		b.FinalKey = "build_" + joinSorted(b.FinalItems, "_")
	}

	if !log.Present() {
		return b
	}

	b.StartKey = startingKey(log.Events())

	order := corePurchaseOrder(log.Events(), b.FinalItems, catalog)
	if len(order) < coreSize {
		return b
	}
	b.Core = order[:coreSize]
	b.CoreKey = "core_" + joinIDs(b.Core, "-")
	for i := coreSize; i < len(order) && i < maxSlots; i++ {
		b.SlotKeys = append(b.SlotKeys, b.CoreKey+"_slot"+strconv.Itoa(i+1)+"_"+strconv.Itoa(order[i]))
	}
	return b
}

// Record adds the build's contributions to an item frequency map.
func (b Build) Record(m stats.FrequencyMap, win bool) {
	if b.FinalKey != "" {
		m.Record(b.FinalKey, win)
	}
	seen := make(map[int]bool, len(b.FinalItems))
	for _, id := range b.FinalItems {
		if seen[id] {
			continue
		}
		seen[id] = true
		m.Record(strconv.Itoa(id), win)
	}
	if b.StartKey != "" {
		m.Record(b.StartKey, win)
	}
	if b.CoreKey != "" {
		m.Record(b.CoreKey, win)
	}
	for _, key := range b.SlotKeys {
		m.Record(key, win)
	}
}

// finalItems returns the non-empty, non-ignored final items sorted ascending.
func finalItems(final [6]int) []int {
	items := make([]int, 0, len(final))
	for _, id := range final {
		if id == 0 || ignoredFinalItems[id] {
			continue
		}
		items = append(items, id)
	}
	sort.Ints(items)
	return items
}

func startingKey(events []riot.TimelineEvent) string {
	var start []int
	for _, e := range events {
		if e.Type != riot.EventItemPurchased || e.Timestamp > startingWindowMs {
			continue
		}
		if visionItems[e.ItemID] {
			continue
		}
		start = append(start, e.ItemID)
	}
	if len(start) == 0 {
		return ""
	}
	return "start_" + joinSorted(start, "_")
}

// corePurchaseOrder keeps purchases that are in the final build and are
// either boots or fully upgraded, de-duplicated in first-purchase order.
func corePurchaseOrder(events []riot.TimelineEvent, final []int, catalog ItemCatalog) []int {
	inFinal := make(map[int]bool, len(final))
	for _, id := range final {
		inFinal[id] = true
	}

	seen := make(map[int]bool)
	var order []int
	for _, e := range events {
		if e.Type != riot.EventItemPurchased || seen[e.ItemID] || !inFinal[e.ItemID] {
			continue
		}
		if !catalog.IsBoots(e.ItemID) && catalog.HasUpgrade(e.ItemID) {
			continue
		}
		seen[e.ItemID] = true
		order = append(order, e.ItemID)
	}
	return order
}

func joinSorted(ids []int, sep string) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	return joinIDs(sorted, sep)
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
