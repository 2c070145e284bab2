package model

import (
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type DayRecord struct {
	ID            uuid.UUID
	UserID        int64
	Day           time.Time
	PointsEarned  int
	Settled       bool
	RolloverDebt  int
	TargetReached bool
	Note          *string
	SettledAt     *time.Time
}

type SettlementResult struct {
	Success       bool
	Message       string
	Day           time.Time
	Earned        int
	Penalty       int
	TargetReached bool
	RolloverDebt  int
	Streak        int
	NewBadges     []string
}

// DayOf returns the calendar day of t in loc, as midnight UTC of that date.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func FormatDay(day time.Time) string {
	return day.Format(dateLayout)
}
