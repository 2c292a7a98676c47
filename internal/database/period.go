package database

import (
	"fmt"
	"strings"
	"time"
)

// GetToday returns today's date in loc as YYYY-MM-DD.
func GetToday(loc *time.Location) string {
	return time.Now().In(loc).Format("2006-01-02")
}

// MakePeriodID creates a period_id from start and end dates.
// If start == end, returns just the date (e.g., "2026-02-06").
// Otherwise returns a range (e.g., "2026-02-01..2026-02-06").
func MakePeriodID(start, end string) string {
	if start == end {
		return start
	}
	return start + ".." + end
}

// WindowPeriodID is the period of `days` local days ending on end's day.
func WindowPeriodID(end time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	start := time.Date(end.Year(), end.Month(), end.Day()-(days-1), 0, 0, 0, 0, end.Location())
	return MakePeriodID(start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// FormatPeriodDisplay formats a period_id for human-readable display.
// Single day: "Feb 06, 2026"
// Range: "Feb 01 - Feb 06, 2026"
func FormatPeriodDisplay(periodID string) string {
	if strings.Contains(periodID, "..") {
		parts := strings.SplitN(periodID, "..", 2)
		start, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return periodID
		}
		end, err := time.Parse("2006-01-02", parts[1])
		if err != nil {
			return periodID
		}
		return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
	}

	d, err := time.Parse("2006-01-02", periodID)
	if err != nil {
		return periodID
	}
	return d.Format("Jan 02, 2006")
}

// PeriodEndDate extracts the end date from a period_id.
func PeriodEndDate(periodID string) string {
	if _, end, ok := strings.Cut(periodID, ".."); ok {
		return end
	}
	return periodID
}
