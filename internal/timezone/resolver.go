// Package timezone resolves IANA zone offsets and translates instants
// between UTC and local wall-clock frames. Every function degrades to a
// UTC interpretation instead of returning an error: a best-effort
// timestamp is preferred over a failed request for a display concern.
package timezone

import (
	"regexp"
	"strconv"
	"time"

	"vitals-cloud/internal/observability/metrics"
)

// DefaultZone is used when a caller or device supplies no usable zone.
const DefaultZone = "America/New_York"

var fixedOffsetPattern = regexp.MustCompile(`^(?:GMT|UTC)?([+-])(\d{1,2})(?::([0-5]\d))?$`)

// ResolveOffsetHours returns the signed fractional-hour UTC offset in
// effect for the zone at the given instant. The same zone name can yield
// different offsets for different instants when the zone observes DST.
//
// Resolution chain: tzdb lookup, then fixed-offset spellings such as
// "GMT-7" or "UTC+5:30", then 0.0 (treat as UTC).
func ResolveOffsetHours(zone string, at time.Time) float64 {
	if loc, err := time.LoadLocation(zone); err == nil {
		_, offsetSeconds := at.In(loc).Zone()
		return float64(offsetSeconds) / 3600.0
	}
	if hours, ok := parseFixedOffset(zone); ok {
		metrics.TimezoneFallback("fixed_offset")
		return hours
	}
	metrics.TimezoneFallback("utc")
	return 0.0
}

// location resolves a zone name through the same chain as
// ResolveOffsetHours, reporting whether anything usable was found.
func location(zone string) (*time.Location, bool) {
	if loc, err := time.LoadLocation(zone); err == nil {
		return loc, true
	}
	if hours, ok := parseFixedOffset(zone); ok {
		return time.FixedZone(zone, int(hours*3600)), true
	}
	return time.UTC, false
}

func parseFixedOffset(zone string) (float64, bool) {
	match := fixedOffsetPattern.FindStringSubmatch(zone)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[2])
	if err != nil || hours > 14 {
		return 0, false
	}
	offset := float64(hours)
	if match[3] != "" {
		minutes, err := strconv.Atoi(match[3])
		if err != nil {
			return 0, false
		}
		offset += float64(minutes) / 60.0
	}
	if match[1] == "-" {
		offset = -offset
	}
	return offset, true
}
