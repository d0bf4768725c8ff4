package stats

import "strings"

// Role is a canonical lane position.
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleADC     Role = "ADC"
	RoleSupport Role = "SUPPORT"

	// RoleAll is used by ban buckets, which are not tied to a position.
	RoleAll Role = "ALL"
)

// Roles lists the five canonical lane roles.
var Roles = []Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport}

var roleAliases = map[string]Role{
	"TOP":     RoleTop,
	"JUNGLE":  RoleJungle,
	"MIDDLE":  RoleMid,
	"MID":     RoleMid,
	"BOTTOM":  RoleADC,
	"BOT":     RoleADC,
	"ADC":     RoleADC,
	"CARRY":   RoleADC,
	"UTILITY": RoleSupport,
	"SUPPORT": RoleSupport,
}

// NormalizeRole maps a raw position label to a canonical role.
// ok is false for empty, "Invalid" or otherwise unknown labels.
func NormalizeRole(raw string) (Role, bool) {
	role, ok := roleAliases[strings.ToUpper(strings.TrimSpace(raw))]
	return role, ok
}

// ParseRole accepts canonical roles (and aliases) plus ALL.
func ParseRole(raw string) (Role, bool) {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAll)) {
		return RoleAll, true
	}
	return NormalizeRole(raw)
}

// IsDuoPair reports whether two roles form a tracked lane pairing.
// The relation is symmetric.
func IsDuoPair(a, b Role) bool {
	pair := func(x, y Role) bool {
		return (a == x && b == y) || (a == y && b == x)
	}
	return pair(RoleMid, RoleJungle) || pair(RoleADC, RoleSupport) || pair(RoleTop, RoleJungle)
}
