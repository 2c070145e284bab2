package model

import "time"

const DefaultDailyTarget = 100

type User struct {
	TelegramID       int64
	Handle           string
	Username         string
	XP               int
	DailyTarget      int
	Streak           int
	IsAdmin          bool
	RegistrationDate time.Time
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Streak   int    `json:"streak"`
}
