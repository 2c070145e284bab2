package mocks

import (
	"context"
	"time"

	"questtracker/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLedgerRepository satisfies every repository interface the services depend on.
// Transaction runs the callback inline.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Transaction(ctx context.Context, t func(ctx context.Context) error) error {
	return t(ctx)
}

func questOrNil(args mock.Arguments, i int) *model.Quest {
	if q := args.Get(i); q != nil {
		return q.(*model.Quest)
	}
	return nil
}

func questsOrNil(args mock.Arguments, i int) []*model.Quest {
	if q := args.Get(i); q != nil {
		return q.([]*model.Quest)
	}
	return nil
}

func dayOrNil(args mock.Arguments, i int) *model.DayRecord {
	if d := args.Get(i); d != nil {
		return d.(*model.DayRecord)
	}
	return nil
}

func userOrNil(args mock.Arguments, i int) *model.User {
	if u := args.Get(i); u != nil {
		return u.(*model.User)
	}
	return nil
}

func (m *MockLedgerRepository) GetQuestForUpdate(ctx context.Context, id uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, id)
	return questOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockLedgerRepository) InsertQuestIfAbsent(ctx context.Context, quest *model.Quest) (bool, error) {
	args := m.Called(ctx, quest)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) UpdateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockLedgerRepository) UpdateQuestCompletion(ctx context.Context, id uuid.UUID, completed bool, completedAt *time.Time) error {
	args := m.Called(ctx, id, completed, completedAt)
	return args.Error(0)
}

func (m *MockLedgerRepository) UnpinTemplate(ctx context.Context, userID int64, templateKey uuid.UUID) error {
	args := m.Called(ctx, userID, templateKey)
	return args.Error(0)
}

func (m *MockLedgerRepository) DeleteQuest(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListQuestsByDay(ctx context.Context, userID int64, day time.Time) ([]*model.Quest, error) {
	args := m.Called(ctx, userID, day)
	return questsOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) ListPinnedQuests(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error) {
	args := m.Called(ctx, userID, from, to)
	return questsOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) CountCompletedQuests(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepository) GetDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	args := m.Called(ctx, userID, day)
	return dayOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) GetDayRecordForUpdate(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	args := m.Called(ctx, userID, day)
	return dayOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) EnsureDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	args := m.Called(ctx, userID, day)
	return dayOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) AddDayPoints(ctx context.Context, recordID uuid.UUID, delta int) error {
	args := m.Called(ctx, recordID, delta)
	return args.Error(0)
}

func (m *MockLedgerRepository) SettleDayRecord(ctx context.Context, record *model.DayRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListDayRecords(ctx context.Context, userID int64, from, to time.Time) ([]*model.DayRecord, error) {
	args := m.Called(ctx, userID, from, to)
	if r := args.Get(0); r != nil {
		return r.([]*model.DayRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	return userOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) GetUserForUpdate(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	return userOrNil(args, 0), args.Error(1)
}

func (m *MockLedgerRepository) AddUserXP(ctx context.Context, telegramID int64, delta int) error {
	args := m.Called(ctx, telegramID, delta)
	return args.Error(0)
}

func (m *MockLedgerRepository) UpdateUserStreak(ctx context.Context, telegramID int64, streak int) error {
	args := m.Called(ctx, telegramID, streak)
	return args.Error(0)
}

func (m *MockLedgerRepository) UpdateDailyTarget(ctx context.Context, telegramID int64, target int) error {
	args := m.Called(ctx, telegramID, target)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if u := args.Get(0); u != nil {
		return u.([]*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) ListAwardedBadgeIDs(ctx context.Context, userID int64) (map[string]struct{}, error) {
	args := m.Called(ctx, userID)
	if ids := args.Get(0); ids != nil {
		return ids.(map[string]struct{}), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) CreateBadgeAward(ctx context.Context, userID int64, badgeID string, awardedAt time.Time) (bool, error) {
	args := m.Called(ctx, userID, badgeID, awardedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListAwards(ctx context.Context, userID int64) ([]*model.BadgeAward, error) {
	args := m.Called(ctx, userID)
	if a := args.Get(0); a != nil {
		return a.([]*model.BadgeAward), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAwarder struct {
	mock.Mock
}

func (m *MockAwarder) EvaluateAndAward(ctx context.Context, userID int64) []string {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string)
}

type MockExpander struct {
	mock.Mock
}

func (m *MockExpander) ExpandPinnedTemplates(ctx context.Context, userID int64, today time.Time) error {
	args := m.Called(ctx, userID, today)
	return args.Error(0)
}

type MockLeaderboardCache struct {
	mock.Mock
}

func (m *MockLeaderboardCache) Get(ctx context.Context) ([]*model.LeaderboardEntry, bool, error) {
	args := m.Called(ctx)
	if e := args.Get(0); e != nil {
		return e.([]*model.LeaderboardEntry), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockLeaderboardCache) Set(ctx context.Context, entries []*model.LeaderboardEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}
