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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type QuestService struct {
	repo   QuestRepository
	badges Awarder
	cfg    LedgerConfig
	clock  Clock
}

func NewQuestService(repo QuestRepository, badges Awarder, cfg LedgerConfig, clock Clock) *QuestService {
	if clock == nil {
		clock = time.Now
	}
	return &QuestService{
		repo:   repo,
		badges: badges,
		cfg:    cfg.withDefaults(),
		clock:  clock,
	}
}

func (s *QuestService) today() time.Time {
	return model.DayOf(s.clock(), s.cfg.Location)
}

// ToggleCompletion flips a quest between complete and incomplete. The quest flag, the day's
// running total and the user's XP change in one transaction or not at all.
func (s *QuestService) ToggleCompletion(ctx context.Context, questID uuid.UUID, userID int64) (*model.ToggleResult, error) {
	ctx, span := tracer.Start(ctx, "QuestService.ToggleCompletion")
	defer span.End()
	span.SetAttributes(attribute.String("quest.id", questID.String()), attribute.Int64("user.id", userID))

	var result *model.ToggleResult
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		quest, err := s.lockOwnedQuest(ctx, questID, userID)
		if err != nil {
			return err
		}

		if quest.Completed {
			result, err = s.uncomplete(ctx, quest)
		} else {
			result, err = s.complete(ctx, quest)
		}
		return err
	})
	if err != nil {
		monitoring.QuestToggles.WithLabelValues(toggleOutcome(err)).Inc()
		return nil, err
	}

	if result.Completed {
		monitoring.QuestToggles.WithLabelValues("completed").Inc()
		result.NewBadges = s.badges.EvaluateAndAward(ctx, userID)
	} else {
		monitoring.QuestToggles.WithLabelValues("uncompleted").Inc()
		result.NewBadges = []string{}
	}
	return result, nil
}

func (s *QuestService) complete(ctx context.Context, quest *model.Quest) (*model.ToggleResult, error) {
	day, err := s.repo.EnsureDayRecord(ctx, quest.UserID, quest.ScheduledDay)
	if err != nil {
		return nil, err
	}
	if day.Settled {
		return nil, ErrDayLocked
	}
	if day.PointsEarned+quest.RewardPoints > s.cfg.DailyPointCap {
		return nil, ErrDailyLimitExceeded
	}

	now := s.clock().UTC()
	if err = s.repo.UpdateQuestCompletion(ctx, quest.ID, true, &now); err != nil {
		return nil, fmt.Errorf("failed to mark quest complete: %w", err)
	}
	if err = s.repo.AddDayPoints(ctx, day.ID, quest.RewardPoints); err != nil {
		return nil, fmt.Errorf("failed to update day total: %w", err)
	}
	if err = s.addXP(ctx, quest.UserID, quest.RewardPoints); err != nil {
		return nil, err
	}

	return &model.ToggleResult{
		QuestID:     quest.ID,
		Completed:   true,
		PointsDelta: quest.RewardPoints,
	}, nil
}

func (s *QuestService) uncomplete(ctx context.Context, quest *model.Quest) (*model.ToggleResult, error) {
	day, err := s.openDay(ctx, quest)
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateQuestCompletion(ctx, quest.ID, false, nil); err != nil {
		return nil, fmt.Errorf("failed to mark quest incomplete: %w", err)
	}
	if day != nil {
		if err = s.repo.AddDayPoints(ctx, day.ID, -quest.RewardPoints); err != nil {
			return nil, fmt.Errorf("failed to update day total: %w", err)
		}
	}
	if err = s.addXP(ctx, quest.UserID, -quest.RewardPoints); err != nil {
		return nil, err
	}

	return &model.ToggleResult{
		QuestID:     quest.ID,
		Completed:   false,
		PointsDelta: -quest.RewardPoints,
	}, nil
}

func (s *QuestService) addXP(ctx context.Context, userID int64, delta int) error {
	err := s.repo.AddUserXP(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user xp: %w", err)
	}
	return nil
}

// lockOwnedQuest loads and locks a quest, checking it belongs to userID.
func (s *QuestService) lockOwnedQuest(ctx context.Context, questID uuid.UUID, userID int64) (*model.Quest, error) {
	quest, err := s.repo.GetQuestForUpdate(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	if quest.UserID != userID {
		return nil, ErrForbidden
	}
	return quest, nil
}

// openDay returns the locked day record of the quest's day, nil when none exists yet,
// and ErrDayLocked when the day has been settled.
func (s *QuestService) openDay(ctx context.Context, quest *model.Quest) (*model.DayRecord, error) {
	day, err := s.repo.GetDayRecordForUpdate(ctx, quest.UserID, quest.ScheduledDay)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if day.Settled {
		return nil, ErrDayLocked
	}
	return day, nil
}

func (s *QuestService) CreateQuest(ctx context.Context, userID int64, quest *model.Quest) (*model.Quest, error) {
	q := *quest
	q.ID = uuid.New()
	q.UserID = userID
	q.Title = strings.TrimSpace(q.Title)
	q.Completed = false
	q.CompletedAt = nil
	q.TemplateKey = nil
	q.CreatedAt = s.clock().UTC()
	if q.ScheduledDay.IsZero() {
		q.ScheduledDay = s.today()
	} else {
		q.ScheduledDay = model.DayOf(q.ScheduledDay, time.UTC)
	}
	if q.PenaltyPoints == 0 {
		q.PenaltyPoints = model.DefaultPenaltyPoints
	}
	if q.Pinned {
		key := uuid.New()
		q.TemplateKey = &key
	}
	if err := validateQuest(&q); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.openDay(ctx, &q); err != nil {
			return err
		}
		return s.repo.CreateQuest(ctx, &q)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuest edits a quest on an open day. Pinning assigns a template key that every
// future clone carries; unpinning stops the whole lineage from recurring.
func (s *QuestService) UpdateQuest(ctx context.Context, questID uuid.UUID, userID int64, update model.QuestUpdate) (*model.Quest, error) {
	var updated *model.Quest
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		quest, err := s.lockOwnedQuest(ctx, questID, userID)
		if err != nil {
			return err
		}
		if _, err = s.openDay(ctx, quest); err != nil {
			return err
		}

		if update.RewardPoints != nil && *update.RewardPoints != quest.RewardPoints && quest.Completed {
			return ErrQuestCompleted
		}
		applyQuestUpdate(quest, update)
		if err = validateQuest(quest); err != nil {
			return err
		}

		if update.Pinned != nil {
			switch {
			case *update.Pinned && quest.TemplateKey == nil:
				key := uuid.New()
				quest.TemplateKey = &key
			case !*update.Pinned && quest.TemplateKey != nil:
				if err = s.repo.UnpinTemplate(ctx, userID, *quest.TemplateKey); err != nil {
					return fmt.Errorf("failed to unpin template: %w", err)
				}
			}
		}

		if err = s.repo.UpdateQuest(ctx, quest); err != nil {
			return fmt.Errorf("failed to update quest: %w", err)
		}
		updated = quest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteQuest removes an incomplete quest of the requesting user from an open day.
func (s *QuestService) DeleteQuest(ctx context.Context, questID uuid.UUID, userID int64) error {
	return s.repo.Transaction(ctx, func(ctx context.Context) error {
		quest, err := s.lockOwnedQuest(ctx, questID, userID)
		if err != nil {
			return err
		}
		return s.deleteLocked(ctx, quest)
	})
}

// AdminDeleteQuest removes any user's quest, under the same day-closed and completion rules.
func (s *QuestService) AdminDeleteQuest(ctx context.Context, questID uuid.UUID) error {
	return s.repo.Transaction(ctx, func(ctx context.Context) error {
		quest, err := s.repo.GetQuestForUpdate(ctx, questID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrQuestNotFound
			}
			return err
		}
		return s.deleteLocked(ctx, quest)
	})
}

func (s *QuestService) deleteLocked(ctx context.Context, quest *model.Quest) error {
	if _, err := s.openDay(ctx, quest); err != nil {
		return err
	}
	if quest.Completed {
		return ErrQuestCompleted
	}
	if err := s.repo.DeleteQuest(ctx, quest.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestNotFound
		}
		return err
	}
	return nil
}

func applyQuestUpdate(q *model.Quest, u model.QuestUpdate) {
	if u.Title != nil {
		q.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		q.Description = *u.Description
	}
	if u.RewardPoints != nil {
		q.RewardPoints = *u.RewardPoints
	}
	if u.PenaltyPoints != nil {
		q.PenaltyPoints = *u.PenaltyPoints
	}
	if u.Category != nil {
		q.Category = *u.Category
	}
	if u.Color != nil {
		q.Color = *u.Color
	}
	if u.RemindAt != nil {
		q.RemindAt = u.RemindAt
	}
	if u.Pinned != nil {
		q.Pinned = *u.Pinned
	}
}

func validateQuest(q *model.Quest) error {
	switch {
	case q.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidQuest)
	case q.RewardPoints < 1 || q.RewardPoints > model.MaxRewardPoints:
		return fmt.Errorf("%w: reward must be between 1 and %d", ErrInvalidQuest, model.MaxRewardPoints)
	case q.PenaltyPoints > 0:
		return fmt.Errorf("%w: penalty must not be positive", ErrInvalidQuest)
	}
	return nil
}

func toggleOutcome(err error) string {
	switch {
	case errors.Is(err, ErrQuestNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrDayLocked):
		return "locked"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "limit_exceeded"
	default:
		return "error"
	}
}
