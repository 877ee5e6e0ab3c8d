package timezone

import "time"

const dateLayout = "2006-01-02"

// DayWindow returns the inclusive UTC instant range [start, end]
// corresponding to local midnight-to-midnight of the given "YYYY-MM-DD"
// date in the given zone. The range is meant to be used verbatim as a
// ">= start AND <= end" filter against stored UTC timestamps.
//
// The offset is resolved once, at the start of the local day, and reused
// for the end boundary. A DST transition occurring mid-day shifts the end
// boundary by the transition delta; that inaccuracy is accepted.
//
// A malformed date or unusable zone degrades to treating the date as UTC
// midnight-to-midnight rather than failing.
func DayWindow(dateStr, zone string) (time.Time, time.Time) {
	parsed, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, endOfWindow(start)
	}

	// Provisional UTC midnight of the calendar date; the zone's offset at
	// that instant stands in for "offset at local midnight".
	provisional := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	offset := ResolveOffsetHours(zone, provisional)
	start := provisional.Add(-time.Duration(offset * float64(time.Hour)))
	return start, endOfWindow(start)
}

func endOfWindow(start time.Time) time.Time {
	return start.Add(24*time.Hour - time.Millisecond)
}
