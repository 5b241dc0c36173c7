package util

import (
	"strconv"
	"strings"
	"time"
)

// layouts accepted by ParseTime, tried in order. Inputs without a zone are UTC.
var layouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"20060102",
}

// ParseTime tries calendar dates, date-times, RFC3339 and unix seconds.
// Eight-digit values are compact dates (YYYYMMDD), never epoch seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) == 8 {
		return time.Time{}, false
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// UnixSeconds returns fractional seconds since the epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ISOWeekday maps Monday to 0 and Sunday to 6.
func ISOWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
