package service

import (
	"context"
	"errors"
	"time"

	"questtracker/internal/model"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already registered")
	ErrQuestNotFound      = errors.New("quest not found")
	ErrForbidden          = errors.New("quest belongs to another user")
	ErrDayLocked          = errors.New("day closed, no further changes")
	ErrDailyLimitExceeded = errors.New("daily point limit exceeded")
	ErrInvalidQuest       = errors.New("invalid quest")
	ErrQuestCompleted     = errors.New("completed quest cannot be changed")
	ErrInvalidTarget      = errors.New("daily target must be positive")
)

var tracer = otel.Tracer("questtracker/service")

// Clock supplies the current instant; tests swap it to simulate consecutive days.
type Clock func() time.Time

type LedgerConfig struct {
	Location           *time.Location
	DailyPointCap      int
	TemplateWindowDays int
	DefaultDailyTarget int
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.DailyPointCap <= 0 {
		c.DailyPointCap = 200
	}
	if c.TemplateWindowDays <= 0 {
		c.TemplateWindowDays = 30
	}
	if c.DefaultDailyTarget <= 0 {
		c.DefaultDailyTarget = model.DefaultDailyTarget
	}
	return c
}

type Service struct {
	*UserService
	*QuestService
	*SettlementService
	*DashboardService
}

func NewService(
	userService *UserService,
	questService *QuestService,
	settlementService *SettlementService,
	dashboardService *DashboardService,
) *Service {
	return &Service{
		UserService:       userService,
		QuestService:      questService,
		SettlementService: settlementService,
		DashboardService:  dashboardService,
	}
}

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	SetDailyTarget(ctx context.Context, telegramID int64, target int) error
	GetLeaderboard(ctx context.Context) ([]*model.LeaderboardEntry, error)
	ListBadges(ctx context.Context, telegramID int64) ([]*model.BadgeAward, error)
	ListHistory(ctx context.Context, telegramID int64, from, to time.Time) ([]*model.DayRecord, error)
}

type QuestServiceI interface {
	CreateQuest(ctx context.Context, userID int64, quest *model.Quest) (*model.Quest, error)
	UpdateQuest(ctx context.Context, questID uuid.UUID, userID int64, update model.QuestUpdate) (*model.Quest, error)
	DeleteQuest(ctx context.Context, questID uuid.UUID, userID int64) error
	AdminDeleteQuest(ctx context.Context, questID uuid.UUID) error
	ToggleCompletion(ctx context.Context, questID uuid.UUID, userID int64) (*model.ToggleResult, error)
}

type SettlementServiceI interface {
	CloseDay(ctx context.Context, userID int64, note string) (*model.SettlementResult, error)
}

type DashboardServiceI interface {
	GetDashboard(ctx context.Context, userID int64, day *time.Time) (*model.Dashboard, error)
}

type Transactor interface {
	Transaction(ctx context.Context, t func(ctx context.Context) error) error
}

type QuestRepository interface {
	Transactor
	GetQuestForUpdate(ctx context.Context, id uuid.UUID) (*model.Quest, error)
	CreateQuest(ctx context.Context, quest *model.Quest) error
	UpdateQuest(ctx context.Context, quest *model.Quest) error
	UpdateQuestCompletion(ctx context.Context, id uuid.UUID, completed bool, completedAt *time.Time) error
	UnpinTemplate(ctx context.Context, userID int64, templateKey uuid.UUID) error
	DeleteQuest(ctx context.Context, id uuid.UUID) error
	GetDayRecordForUpdate(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error)
	EnsureDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error)
	AddDayPoints(ctx context.Context, recordID uuid.UUID, delta int) error
	AddUserXP(ctx context.Context, telegramID int64, delta int) error
}

type SettlementRepository interface {
	Transactor
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetUserForUpdate(ctx context.Context, telegramID int64) (*model.User, error)
	EnsureDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error)
	ListQuestsByDay(ctx context.Context, userID int64, day time.Time) ([]*model.Quest, error)
	AddUserXP(ctx context.Context, telegramID int64, delta int) error
	UpdateUserStreak(ctx context.Context, telegramID int64, streak int) error
	SettleDayRecord(ctx context.Context, record *model.DayRecord) error
}

type BadgeRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	CountCompletedQuests(ctx context.Context, userID int64) (int, error)
	ListAwardedBadgeIDs(ctx context.Context, userID int64) (map[string]struct{}, error)
	CreateBadgeAward(ctx context.Context, userID int64, badgeID string, awardedAt time.Time) (bool, error)
	ListAwards(ctx context.Context, userID int64) ([]*model.BadgeAward, error)
}

type TemplateRepository interface {
	ListPinnedQuests(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error)
	ListQuestsByDay(ctx context.Context, userID int64, day time.Time) ([]*model.Quest, error)
	InsertQuestIfAbsent(ctx context.Context, quest *model.Quest) (bool, error)
}

type DashboardRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	ListQuestsByDay(ctx context.Context, userID int64, day time.Time) ([]*model.Quest, error)
	GetDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error)
	ListPinnedQuests(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateDailyTarget(ctx context.Context, telegramID int64, target int) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	ListDayRecords(ctx context.Context, userID int64, from, to time.Time) ([]*model.DayRecord, error)
	ListAwards(ctx context.Context, userID int64) ([]*model.BadgeAward, error)
}

// LeaderboardCache is an optional read-through cache in front of GetTopUsers.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]*model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []*model.LeaderboardEntry) error
}

type Awarder interface {
	EvaluateAndAward(ctx context.Context, userID int64) []string
}

type Expander interface {
	ExpandPinnedTemplates(ctx context.Context, userID int64, today time.Time) error
}
