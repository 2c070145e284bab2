package mocks

import (
	"context"
	"time"

	"questtracker/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	return userOrNil(args, 0), args.Error(1)
}

func (m *MockUserService) SetDailyTarget(ctx context.Context, telegramID int64, target int) error {
	args := m.Called(ctx, telegramID, target)
	return args.Error(0)
}

func (m *MockUserService) GetLeaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx)
	if e := args.Get(0); e != nil {
		return e.([]*model.LeaderboardEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ListBadges(ctx context.Context, telegramID int64) ([]*model.BadgeAward, error) {
	args := m.Called(ctx, telegramID)
	if a := args.Get(0); a != nil {
		return a.([]*model.BadgeAward), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ListHistory(ctx context.Context, telegramID int64, from, to time.Time) ([]*model.DayRecord, error) {
	args := m.Called(ctx, telegramID, from, to)
	if r := args.Get(0); r != nil {
		return r.([]*model.DayRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockQuestService struct {
	mock.Mock
}

func (m *MockQuestService) CreateQuest(ctx context.Context, userID int64, quest *model.Quest) (*model.Quest, error) {
	args := m.Called(ctx, userID, quest)
	return questOrNil(args, 0), args.Error(1)
}

func (m *MockQuestService) UpdateQuest(ctx context.Context, questID uuid.UUID, userID int64, update model.QuestUpdate) (*model.Quest, error) {
	args := m.Called(ctx, questID, userID, update)
	return questOrNil(args, 0), args.Error(1)
}

func (m *MockQuestService) DeleteQuest(ctx context.Context, questID uuid.UUID, userID int64) error {
	args := m.Called(ctx, questID, userID)
	return args.Error(0)
}

func (m *MockQuestService) AdminDeleteQuest(ctx context.Context, questID uuid.UUID) error {
	args := m.Called(ctx, questID)
	return args.Error(0)
}

func (m *MockQuestService) ToggleCompletion(ctx context.Context, questID uuid.UUID, userID int64) (*model.ToggleResult, error) {
	args := m.Called(ctx, questID, userID)
	if r := args.Get(0); r != nil {
		return r.(*model.ToggleResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) CloseDay(ctx context.Context, userID int64, note string) (*model.SettlementResult, error) {
	args := m.Called(ctx, userID, note)
	if r := args.Get(0); r != nil {
		return r.(*model.SettlementResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetDashboard(ctx context.Context, userID int64, day *time.Time) (*model.Dashboard, error) {
	args := m.Called(ctx, userID, day)
	if d := args.Get(0); d != nil {
		return d.(*model.Dashboard), args.Error(1)
	}
	return nil, args.Error(1)
}
