package model

import "time"

type Dashboard struct {
	Day          time.Time
	Quests       []*Quest
	PointsEarned int
	Settled      bool
	RolloverDebt int
	Note         *string
	XP           int
	Streak       int
	DailyTarget  int
	Templates    []*Quest
}
