package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBadgeEvaluator_EvaluateAndAward(t *testing.T) {
	catalog := []model.Badge{
		{ID: "xp_100", Name: "Rookie", Rule: model.RuleCumulativeXP, Threshold: 100},
		{ID: "streak_3", Name: "On Fire", Rule: model.RuleStreakLength, Threshold: 3},
		{ID: "quests_10", Name: "Quest Hunter", Rule: model.RuleCompletedQuests, Threshold: 10},
	}

	tests := []struct {
		name           string
		mockSetup      func(repo *mocks.MockLedgerRepository)
		expectedBadges []string
	}{
		{
			name: "Awards every newly met threshold",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("ListAwardedBadgeIDs", mock.Anything, int64(1)).Return(map[string]struct{}{}, nil)
				repo.On("GetUserByTelegramID", mock.Anything, int64(1)).Return(&model.User{TelegramID: 1, XP: 100, Streak: 3}, nil)
				repo.On("CountCompletedQuests", mock.Anything, int64(1)).Return(9, nil)
				repo.On("CreateBadgeAward", mock.Anything, int64(1), "xp_100", mock.Anything).Return(true, nil)
				repo.On("CreateBadgeAward", mock.Anything, int64(1), "streak_3", mock.Anything).Return(true, nil)
			},
			expectedBadges: []string{"Rookie", "On Fire"},
		},
		{
			name: "Skips badges already held",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("ListAwardedBadgeIDs", mock.Anything, int64(1)).
					Return(map[string]struct{}{"xp_100": {}, "quests_10": {}}, nil)
				repo.On("GetUserByTelegramID", mock.Anything, int64(1)).Return(&model.User{TelegramID: 1, XP: 900, Streak: 1}, nil)
			},
			expectedBadges: []string{},
		},
		{
			name: "Concurrent award is not reported twice",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("ListAwardedBadgeIDs", mock.Anything, int64(1)).
					Return(map[string]struct{}{"streak_3": {}, "quests_10": {}}, nil)
				repo.On("GetUserByTelegramID", mock.Anything, int64(1)).Return(&model.User{TelegramID: 1, XP: 150}, nil)
				repo.On("CreateBadgeAward", mock.Anything, int64(1), "xp_100", mock.Anything).Return(false, nil)
			},
			expectedBadges: []string{},
		},
		{
			name: "Failure is swallowed",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("ListAwardedBadgeIDs", mock.Anything, int64(1)).Return(nil, errors.New("catalog unavailable"))
			},
			expectedBadges: []string{},
		},
		{
			name: "Award insert failure is swallowed",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("ListAwardedBadgeIDs", mock.Anything, int64(1)).Return(map[string]struct{}{}, nil)
				repo.On("GetUserByTelegramID", mock.Anything, int64(1)).Return(&model.User{TelegramID: 1, XP: 500}, nil)
				repo.On("CountCompletedQuests", mock.Anything, int64(1)).Return(0, nil)
				repo.On("CreateBadgeAward", mock.Anything, int64(1), "xp_100", mock.Anything).Return(false, errors.New("deadlock"))
			},
			expectedBadges: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockLedgerRepository{}
			tt.mockSetup(repo)

			e := NewBadgeEvaluator(repo, catalog, func() time.Time { return testNow })
			badges := e.EvaluateAndAward(context.Background(), 1)

			assert.NotNil(t, badges)
			assert.Equal(t, tt.expectedBadges, badges)
			repo.AssertExpectations(t)
		})
	}
}

func TestBadgeEvaluator_EvaluatorFailureDoesNotBlockToggle(t *testing.T) {
	l := newLedger(testNow)
	l.store.addUser(model.User{TelegramID: 1, DailyTarget: 100})
	q := seedQuest(l.store, 1, 20, testDay())
	l.store.failOn["ListAwardedBadgeIDs"] = errors.New("catalog unavailable")

	result, err := l.quests.ToggleCompletion(context.Background(), q.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, []string{}, result.NewBadges)
	assert.Equal(t, 20, l.store.user(1).XP)

	closed, err := l.settlement.CloseDay(context.Background(), 1, "")
	require.NoError(t, err)
	assert.True(t, closed.Success)
	assert.Equal(t, []string{}, closed.NewBadges)
}

func TestBadgeEvaluator_AwardsNeverShrinkOrRepeat(t *testing.T) {
	l := newLedger(testNow)
	ctx := context.Background()
	l.store.addUser(model.User{TelegramID: 1, DailyTarget: 20})

	held := map[string]bool{}
	seen := map[string]int{}
	record := func(names []string) {
		for _, n := range names {
			seen[n]++
		}
		awards, err := l.users.ListBadges(ctx, 1)
		require.NoError(t, err)
		for id := range held {
			found := false
			for _, a := range awards {
				if a.BadgeID == id {
					found = true
				}
			}
			assert.True(t, found, "badge %s was revoked", id)
		}
		for _, a := range awards {
			held[a.BadgeID] = true
		}
	}

	for day := 0; day < 4; day++ {
		q := seedQuest(l.store, 1, 60, model.DayOf(l.clock.Now(), time.UTC))
		on, err := l.quests.ToggleCompletion(ctx, q.ID, 1)
		require.NoError(t, err)
		record(on.NewBadges)

		off, err := l.quests.ToggleCompletion(ctx, q.ID, 1)
		require.NoError(t, err)
		record(off.NewBadges)

		on, err = l.quests.ToggleCompletion(ctx, q.ID, 1)
		require.NoError(t, err)
		record(on.NewBadges)

		closed, err := l.settlement.CloseDay(ctx, 1, "")
		require.NoError(t, err)
		record(closed.NewBadges)

		l.clock.Advance(24 * time.Hour)
	}

	for name, n := range seen {
		assert.Equal(t, 1, n, "badge %s reported %d times", name, n)
	}
	assert.True(t, held["first_quest"])
	assert.True(t, held["xp_100"])
	assert.True(t, held["streak_3"])
}

func TestBadgeEvaluator_CompletedQuestCountUsesCurrentState(t *testing.T) {
	store := newMemStore()
	store.addUser(model.User{TelegramID: 1, DailyTarget: 100})
	clock := func() time.Time { return testNow }
	catalog := []model.Badge{{ID: "quests_2", Name: "Double", Rule: model.RuleCompletedQuests, Threshold: 2}}
	quests := NewQuestService(store, NewBadgeEvaluator(store, catalog, clock), LedgerConfig{}, clock)
	ctx := context.Background()

	a := seedQuest(store, 1, 10, testDay())
	b := seedQuest(store, 1, 10, testDay())

	toggle := func(q model.Quest) []string {
		result, err := quests.ToggleCompletion(ctx, q.ID, 1)
		require.NoError(t, err)
		return result.NewBadges
	}

	assert.Empty(t, toggle(a))
	assert.Empty(t, toggle(a))
	assert.Empty(t, toggle(b), "an uncompleted quest no longer counts")
	assert.Equal(t, []string{"Double"}, toggle(a))
}
