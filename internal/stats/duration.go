package stats

// DurationBucket is a coarse classification of match length.
type DurationBucket string

const (
	DurationShort    DurationBucket = "SHORT"     // under 20 minutes
	DurationMedium   DurationBucket = "MEDIUM"    // 20 to 30 minutes
	DurationLong     DurationBucket = "LONG"      // 30 to 40 minutes
	DurationVeryLong DurationBucket = "VERY_LONG" // 40 minutes and over
)

// Upper bounds (exclusive, seconds) of the duration buckets.
const (
	shortMaxSeconds  = 20 * 60
	mediumMaxSeconds = 30 * 60
	longMaxSeconds   = 40 * 60
)

// DurationBuckets lists every bucket from shortest to longest.
var DurationBuckets = []DurationBucket{DurationShort, DurationMedium, DurationLong, DurationVeryLong}

// BucketForDuration maps a match duration in seconds to its bucket.
// Negative durations are treated as zero.
func BucketForDuration(seconds int) DurationBucket {
	switch {
	case seconds < shortMaxSeconds:
		return DurationShort
	case seconds < mediumMaxSeconds:
		return DurationMedium
	case seconds < longMaxSeconds:
		return DurationLong
	default:
		return DurationVeryLong
	}
}

// ValidDuration reports whether d is one of the defined buckets.
func ValidDuration(d DurationBucket) bool {
	for _, b := range DurationBuckets {
		if b == d {
			return true
		}
	}
	return false
}
