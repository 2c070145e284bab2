package service

import (
	"context"
	"fmt"
	"time"

	"questtracker/internal/model"
	"questtracker/pkg/logger"
	"questtracker/pkg/monitoring"

	"go.uber.org/zap"
)

// DefaultBadgeCatalog is seeded into storage at startup and never changed by users.
var DefaultBadgeCatalog = []model.Badge{
	{ID: "first_quest", Name: "First Steps", Description: "Complete your first quest", Icon: "footprints", Rule: model.RuleCompletedQuests, Threshold: 1},
	{ID: "quests_10", Name: "Quest Hunter", Description: "Complete 10 quests", Icon: "target", Rule: model.RuleCompletedQuests, Threshold: 10},
	{ID: "quests_50", Name: "Quest Master", Description: "Complete 50 quests", Icon: "crown", Rule: model.RuleCompletedQuests, Threshold: 50},
	{ID: "quests_100", Name: "Centurion", Description: "Complete 100 quests", Icon: "shield", Rule: model.RuleCompletedQuests, Threshold: 100},
	{ID: "xp_100", Name: "Rookie", Description: "Earn 100 XP", Icon: "star", Rule: model.RuleCumulativeXP, Threshold: 100},
	{ID: "xp_500", Name: "Adventurer", Description: "Earn 500 XP", Icon: "compass", Rule: model.RuleCumulativeXP, Threshold: 500},
	{ID: "xp_1000", Name: "Champion", Description: "Earn 1000 XP", Icon: "trophy", Rule: model.RuleCumulativeXP, Threshold: 1000},
	{ID: "xp_5000", Name: "Legend", Description: "Earn 5000 XP", Icon: "gem", Rule: model.RuleCumulativeXP, Threshold: 5000},
	{ID: "streak_3", Name: "On Fire", Description: "Hit your daily target 3 days in a row", Icon: "flame", Rule: model.RuleStreakLength, Threshold: 3},
	{ID: "streak_7", Name: "Unstoppable", Description: "Hit your daily target 7 days in a row", Icon: "bolt", Rule: model.RuleStreakLength, Threshold: 7},
	{ID: "streak_30", Name: "Marathoner", Description: "Hit your daily target 30 days in a row", Icon: "medal", Rule: model.RuleStreakLength, Threshold: 30},
}

type BadgeEvaluator struct {
	repo    BadgeRepository
	catalog []model.Badge
	clock   Clock
}

func NewBadgeEvaluator(repo BadgeRepository, catalog []model.Badge, clock Clock) *BadgeEvaluator {
	if clock == nil {
		clock = time.Now
	}
	c := make([]model.Badge, len(catalog))
	copy(c, catalog)
	return &BadgeEvaluator{
		repo:    repo,
		catalog: c,
		clock:   clock,
	}
}

// EvaluateAndAward mints every catalog badge the user newly qualifies for and returns their names.
// Failures are logged and swallowed: a badge check must never fail the ledger mutation that triggered it.
func (e *BadgeEvaluator) EvaluateAndAward(ctx context.Context, userID int64) []string {
	ctx, span := tracer.Start(ctx, "BadgeEvaluator.EvaluateAndAward")
	defer span.End()

	names, err := e.evaluate(ctx, userID)
	if err != nil {
		logger.Logger().Warn("badge evaluation failed",
			zap.Int64("telegram_id", userID),
			zap.Error(err))
		return []string{}
	}
	return names
}

func (e *BadgeEvaluator) evaluate(ctx context.Context, userID int64) ([]string, error) {
	names := []string{}
	if len(e.catalog) == 0 {
		return names, nil
	}

	awarded, err := e.repo.ListAwardedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending := make([]model.Badge, 0, len(e.catalog))
	for _, b := range e.catalog {
		if _, ok := awarded[b.ID]; !ok {
			pending = append(pending, b)
		}
	}
	if len(pending) == 0 {
		return names, nil
	}

	metrics, err := e.loadMetrics(ctx, userID, pending)
	if err != nil {
		return nil, err
	}

	now := e.clock().UTC()
	for _, b := range pending {
		value, ok := metrics.Value(b.Rule)
		if !ok || value < b.Threshold {
			continue
		}

		created, err := e.repo.CreateBadgeAward(ctx, userID, b.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to award badge %s: %w", b.ID, err)
		}
		if created {
			monitoring.BadgeAwards.WithLabelValues(b.ID).Inc()
			names = append(names, b.Name)
		}
	}
	return names, nil
}

func (e *BadgeEvaluator) loadMetrics(ctx context.Context, userID int64, pending []model.Badge) (model.BadgeMetrics, error) {
	var metrics model.BadgeMetrics

	user, err := e.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return metrics, err
	}
	metrics.XP = user.XP
	metrics.Streak = user.Streak

	for _, b := range pending {
		if b.Rule == model.RuleCompletedQuests {
			metrics.CompletedQuests, err = e.repo.CountCompletedQuests(ctx, userID)
			if err != nil {
				return metrics, err
			}
			break
		}
	}
	return metrics, nil
}
