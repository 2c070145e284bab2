package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/repository"
	"questtracker/pkg/monitoring"

	"go.opentelemetry.io/otel/attribute"
)

const msgAlreadySettled = "day already closed"

type SettlementService struct {
	repo      SettlementRepository
	badges    Awarder
	templates Expander
	cfg       LedgerConfig
	clock     Clock
}

func NewSettlementService(repo SettlementRepository, badges Awarder, templates Expander, cfg LedgerConfig, clock Clock) *SettlementService {
	if clock == nil {
		clock = time.Now
	}
	return &SettlementService{
		repo:      repo,
		badges:    badges,
		templates: templates,
		cfg:       cfg.withDefaults(),
		clock:     clock,
	}
}

// CloseDay settles today for the user: applies penalties of unfinished quests, moves the
// streak and locks the day. A day settles at most once; a repeat call reports an
// unsuccessful result and changes nothing.
func (s *SettlementService) CloseDay(ctx context.Context, userID int64, note string) (*model.SettlementResult, error) {
	ctx, span := tracer.Start(ctx, "SettlementService.CloseDay")
	defer span.End()

	now := s.clock()
	today := model.DayOf(now, s.cfg.Location)
	span.SetAttributes(attribute.Int64("user.id", userID), attribute.String("day", model.FormatDay(today)))

	if _, err := s.repo.GetUserByTelegramID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	result := &model.SettlementResult{Day: today, NewBadges: []string{}}
	alreadySettled := false
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		day, err := s.repo.EnsureDayRecord(ctx, userID, today)
		if err != nil {
			return fmt.Errorf("failed to load day record: %w", err)
		}
		if day.Settled {
			alreadySettled = true
			return nil
		}

		user, err := s.repo.GetUserForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Pinned lineages get their quest for today before the tally.
		if err = s.templates.ExpandPinnedTemplates(ctx, userID, today); err != nil {
			return fmt.Errorf("failed to expand pinned quests: %w", err)
		}

		quests, err := s.repo.ListQuestsByDay(ctx, userID, today)
		if err != nil {
			return err
		}

		earned, penalty := tally(quests)
		if penalty != 0 {
			if err = s.repo.AddUserXP(ctx, userID, penalty); err != nil {
				return fmt.Errorf("failed to apply penalty: %w", err)
			}
		}

		reached := earned >= user.DailyTarget
		streak := 0
		debt := user.DailyTarget - earned
		if reached {
			streak = user.Streak + 1
			debt = 0
		}
		if err = s.repo.UpdateUserStreak(ctx, userID, streak); err != nil {
			return fmt.Errorf("failed to update streak: %w", err)
		}

		settledAt := now.UTC()
		day.PointsEarned = earned
		day.TargetReached = reached
		day.RolloverDebt = debt
		day.Settled = true
		day.SettledAt = &settledAt
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			day.Note = &trimmed
		}
		if err = s.repo.SettleDayRecord(ctx, day); err != nil {
			return err
		}

		result.Earned = earned
		result.Penalty = penalty
		result.TargetReached = reached
		result.RolloverDebt = debt
		result.Streak = streak
		result.Message = settlementMessage(earned, user.DailyTarget, penalty, streak, reached)
		return nil
	})
	if errors.Is(err, repository.ErrAlreadySettled) {
		alreadySettled = true
		err = nil
	}
	if err != nil {
		monitoring.DaySettlements.WithLabelValues("error").Inc()
		return nil, err
	}
	if alreadySettled {
		monitoring.DaySettlements.WithLabelValues("already_settled").Inc()
		return &model.SettlementResult{
			Success:   false,
			Message:   msgAlreadySettled,
			Day:       today,
			NewBadges: []string{},
		}, nil
	}

	monitoring.DaySettlements.WithLabelValues("settled").Inc()
	result.Success = true
	result.NewBadges = s.badges.EvaluateAndAward(ctx, userID)
	return result, nil
}

// tally sums reward points of completed quests and penalty points of the rest.
func tally(quests []*model.Quest) (earned, penalty int) {
	for _, q := range quests {
		if q.Completed {
			earned += q.RewardPoints
		} else {
			penalty += q.PenaltyPoints
		}
	}
	return earned, penalty
}

func settlementMessage(earned, target, penalty, streak int, reached bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day closed: %d/%d points.", earned, target)
	if penalty != 0 {
		fmt.Fprintf(&b, " Penalty %d XP for unfinished quests.", penalty)
	}
	if reached {
		fmt.Fprintf(&b, " Target reached, streak is now %d.", streak)
	} else {
		fmt.Fprintf(&b, " Target missed by %d, streak reset.", target-earned)
	}
	return b.String()
}
