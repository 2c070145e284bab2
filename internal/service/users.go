package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/repository"
	"questtracker/pkg/logger"

	"go.uber.org/zap"
)

const leaderboardSize = 100

type UserService struct {
	repo  UserRepository
	cache LeaderboardCache
	cfg   LedgerConfig
	clock Clock
}

// NewUserService builds the user service; cache may be nil.
func NewUserService(repo UserRepository, cache LeaderboardCache, cfg LedgerConfig, clock Clock) *UserService {
	if clock == nil {
		clock = time.Now
	}
	return &UserService{
		repo:  repo,
		cache: cache,
		cfg:   cfg.withDefaults(),
		clock: clock,
	}
}

func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	user.XP = 0
	user.Streak = 0
	if user.DailyTarget <= 0 {
		user.DailyTarget = s.cfg.DefaultDailyTarget
	}
	if user.RegistrationDate.IsZero() {
		user.RegistrationDate = s.clock().UTC()
	}

	err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (s *UserService) SetDailyTarget(ctx context.Context, telegramID int64, target int) error {
	if target <= 0 {
		return ErrInvalidTarget
	}

	err := s.repo.UpdateDailyTarget(ctx, telegramID, target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update daily target: %w", err)
	}
	return nil
}

// GetLeaderboard ranks users by cumulative XP. Cache errors fall back to the database.
func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx)
		if err != nil {
			logger.Logger().Warn("leaderboard cache read failed", zap.Error(err))
		} else if ok {
			return entries, nil
		}
	}

	users, err := s.repo.GetTopUsers(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	entries := make([]*model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = &model.LeaderboardEntry{
			Rank:     i + 1,
			Username: u.Username,
			XP:       u.XP,
			Streak:   u.Streak,
		}
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, entries); err != nil {
			logger.Logger().Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

func (s *UserService) ListBadges(ctx context.Context, telegramID int64) ([]*model.BadgeAward, error) {
	awards, err := s.repo.ListAwards(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return awards, nil
}

func (s *UserService) ListHistory(ctx context.Context, telegramID int64, from, to time.Time) ([]*model.DayRecord, error) {
	if from.After(to) {
		from, to = to, from
	}
	records, err := s.repo.ListDayRecords(ctx, telegramID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}
