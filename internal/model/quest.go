package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxRewardPoints      = 100
	DefaultPenaltyPoints = -5
)

type Quest struct {
	ID            uuid.UUID
	UserID        int64
	Title         string
	Description   string
	RewardPoints  int
	PenaltyPoints int
	ScheduledDay  time.Time
	Completed     bool
	CompletedAt   *time.Time
	Pinned        bool
	TemplateKey   *uuid.UUID
	Category      string
	Color         string
	RemindAt      *time.Time
	CreatedAt     time.Time
}

// CloneFor returns an incomplete copy of q scheduled on day, carrying the template key.
func (q *Quest) CloneFor(day time.Time) *Quest {
	return &Quest{
		ID:            uuid.New(),
		UserID:        q.UserID,
		Title:         q.Title,
		Description:   q.Description,
		RewardPoints:  q.RewardPoints,
		PenaltyPoints: q.PenaltyPoints,
		ScheduledDay:  day,
		Pinned:        true,
		TemplateKey:   q.TemplateKey,
		Category:      q.Category,
		Color:         q.Color,
	}
}

type QuestUpdate struct {
	Title         *string
	Description   *string
	RewardPoints  *int
	PenaltyPoints *int
	Category      *string
	Color         *string
	RemindAt      *time.Time
	Pinned        *bool
}

type ToggleResult struct {
	QuestID     uuid.UUID
	Completed   bool
	PointsDelta int
	NewBadges   []string
}
