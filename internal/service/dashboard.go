package service

import (
	"context"
	"errors"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/repository"

	"golang.org/x/sync/errgroup"
)

type DashboardService struct {
	repo     DashboardRepository
	expander Expander
	cfg      LedgerConfig
	clock    Clock
}

func NewDashboardService(repo DashboardRepository, expander Expander, cfg LedgerConfig, clock Clock) *DashboardService {
	if clock == nil {
		clock = time.Now
	}
	return &DashboardService{
		repo:     repo,
		expander: expander,
		cfg:      cfg.withDefaults(),
		clock:    clock,
	}
}

// GetDashboard returns the quests and ledger state of day (today when nil). Reading today
// first expands pinned templates so recurring quests are in place.
func (s *DashboardService) GetDashboard(ctx context.Context, userID int64, day *time.Time) (*model.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.GetDashboard")
	defer span.End()

	user, err := s.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	today := model.DayOf(s.clock(), s.cfg.Location)
	target := today
	if day != nil {
		target = model.DayOf(*day, time.UTC)
	}
	if target.Equal(today) {
		if err = s.expander.ExpandPinnedTemplates(ctx, userID, today); err != nil {
			return nil, err
		}
	}

	dash := &model.Dashboard{
		Day:         target,
		XP:          user.XP,
		Streak:      user.Streak,
		DailyTarget: user.DailyTarget,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quests, err := s.repo.ListQuestsByDay(gctx, userID, target)
		if err != nil {
			return err
		}
		dash.Quests = quests
		return nil
	})
	g.Go(func() error {
		record, err := s.repo.GetDayRecord(gctx, userID, target)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		dash.PointsEarned = record.PointsEarned
		dash.Settled = record.Settled
		dash.RolloverDebt = record.RolloverDebt
		dash.Note = record.Note
		return nil
	})
	g.Go(func() error {
		pinned, err := s.repo.ListPinnedQuests(gctx, userID, target.AddDate(0, 0, -s.cfg.TemplateWindowDays), target)
		if err != nil {
			return err
		}
		dash.Templates = latestPerTemplate(pinned)
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	if dash.Quests == nil {
		dash.Quests = []*model.Quest{}
	}
	if dash.Templates == nil {
		dash.Templates = []*model.Quest{}
	}
	return dash, nil
}
