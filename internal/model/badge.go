package model

import "time"

type BadgeRule string

const (
	RuleCumulativeXP    BadgeRule = "cumulative_xp"
	RuleStreakLength    BadgeRule = "streak_length"
	RuleCompletedQuests BadgeRule = "completed_quests"
)

type Badge struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Rule        BadgeRule
	Threshold   int
}

type BadgeAward struct {
	UserID    int64
	BadgeID   string
	Name      string
	Icon      string
	AwardedAt time.Time
}

// BadgeMetrics are the live values badge rules are checked against.
type BadgeMetrics struct {
	XP              int
	Streak          int
	CompletedQuests int
}

func (m BadgeMetrics) Value(rule BadgeRule) (int, bool) {
	switch rule {
	case RuleCumulativeXP:
		return m.XP, true
	case RuleStreakLength:
		return m.Streak, true
	case RuleCompletedQuests:
		return m.CompletedQuests, true
	default:
		return 0, false
	}
}
