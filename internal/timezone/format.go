package timezone

import "time"

const (
	isoMillisOffset = "2006-01-02T15:04:05.000-07:00"
	isoMillisUTC    = "2006-01-02T15:04:05.000Z"
)

// FormatInTimezone renders the instant's local wall-clock time in the
// given zone as "YYYY-MM-DDTHH:mm:ss.sss±HH:MM". Millisecond precision is
// carried from the instant itself. An unusable zone degrades to the plain
// UTC rendering.
func FormatInTimezone(t time.Time, zone string) string {
	loc, ok := location(zone)
	if !ok {
		return t.UTC().Format(isoMillisUTC)
	}
	return t.In(loc).Format(isoMillisOffset)
}

// DateOnlyInTimezone returns the local calendar date "YYYY-MM-DD" of the
// instant in the given zone, falling back to the UTC date.
func DateOnlyInTimezone(t time.Time, zone string) string {
	loc, ok := location(zone)
	if !ok {
		return t.UTC().Format(dateLayout)
	}
	return t.In(loc).Format(dateLayout)
}
