package riot

import (
	"fmt"
	"strings"
)

// Regional routing values for account-v1 and match-v5.
const (
	RegionAmericas = "americas"
	RegionEurope   = "europe"
	RegionAsia     = "asia"
	RegionSEA      = "sea"
)

var platformRegions = map[string]string{
	"NA1":  RegionAmericas,
	"BR1":  RegionAmericas,
	"LA1":  RegionAmericas,
	"LA2":  RegionAmericas,
	"EUW1": RegionEurope,
	"EUN1": RegionEurope,
	"TR1":  RegionEurope,
	"RU":   RegionEurope,
	"ME1":  RegionEurope,
	"KR":   RegionAsia,
	"JP1":  RegionAsia,
	"OC1":  RegionSEA,
	"SG2":  RegionSEA,
	"TW2":  RegionSEA,
	"VN2":  RegionSEA,
}

// regionHomePlatforms picks one platform per region for platform-scoped
// calls that are not tied to a player.
var regionHomePlatforms = map[string]string{
	RegionAmericas: "NA1",
	RegionEurope:   "EUW1",
	RegionAsia:     "KR",
	RegionSEA:      "OC1",
}

// ValidRegion reports whether region is a known routing region.
func ValidRegion(region string) bool {
	switch region {
	case RegionAmericas, RegionEurope, RegionAsia, RegionSEA:
		return true
	}
	return false
}

// RegionForPlatform maps a platform id (NA1, EUW1, ...) to its routing region.
func RegionForPlatform(platform string) (string, error) {
	region, ok := platformRegions[strings.ToUpper(platform)]
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platform)
	}
	return region, nil
}

// PlatformForMatchID returns the platform prefix of a match id ("NA1_4823..." -> "NA1").
func PlatformForMatchID(matchID string) (string, error) {
	platform, _, found := strings.Cut(matchID, "_")
	if !found || platform == "" {
		return "", fmt.Errorf("match id %q has no platform prefix", matchID)
	}
	return strings.ToUpper(platform), nil
}

// RegionForMatchID derives the routing region from a match id prefix.
func RegionForMatchID(matchID string) (string, error) {
	platform, err := PlatformForMatchID(matchID)
	if err != nil {
		return "", err
	}
	return RegionForPlatform(platform)
}

func regionHost(region string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", region)
}

func platformHost(platform string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(platform))
}

// ParseRiotID splits "Name#TAG".
func ParseRiotID(riotID string) (gameName, tagLine string, err error) {
	gameName, tagLine, found := strings.Cut(riotID, "#")
	gameName = strings.TrimSpace(gameName)
	tagLine = strings.TrimSpace(tagLine)
	if !found || gameName == "" || tagLine == "" {
		return "", "", fmt.Errorf("invalid riot id %q, want Name#TAG", riotID)
	}
	return gameName, tagLine, nil
}
