package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"questtracker/internal/model"
	"questtracker/internal/repository"

	"github.com/google/uuid"
)

type memTxKey struct{}

// memStore is an in-memory ledger with the row semantics of the postgres repository.
// Transactions are serialized and roll back to a snapshot on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[int64]model.User
	quests  map[uuid.UUID]model.Quest
	days    map[uuid.UUID]model.DayRecord
	awards  map[int64]map[string]time.Time
	badges  map[string]model.Badge
	failOn  map[string]error
	txCount int
}

func newMemStore() *memStore {
	s := &memStore{
		users:  make(map[int64]model.User),
		quests: make(map[uuid.UUID]model.Quest),
		days:   make(map[uuid.UUID]model.DayRecord),
		awards: make(map[int64]map[string]time.Time),
		badges: make(map[string]model.Badge),
		failOn: make(map[string]error),
	}
	for _, b := range DefaultBadgeCatalog {
		s.badges[b.ID] = b
	}
	return s
}

type memSnapshot struct {
	users  map[int64]model.User
	quests map[uuid.UUID]model.Quest
	days   map[uuid.UUID]model.DayRecord
	awards map[int64]map[string]time.Time
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:  make(map[int64]model.User, len(s.users)),
		quests: make(map[uuid.UUID]model.Quest, len(s.quests)),
		days:   make(map[uuid.UUID]model.DayRecord, len(s.days)),
		awards: make(map[int64]map[string]time.Time, len(s.awards)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.quests {
		snap.quests[k] = v
	}
	for k, v := range s.days {
		snap.days[k] = v
	}
	for k, v := range s.awards {
		inner := make(map[string]time.Time, len(v))
		for id, at := range v {
			inner[id] = at
		}
		snap.awards[k] = inner
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.quests = snap.quests
	s.days = snap.days
	s.awards = snap.awards
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) Transaction(ctx context.Context, t func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return t(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.txCount++
	s.mu.Unlock()

	if err := t(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

// seed helpers

func (s *memStore) addUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.TelegramID] = u
}

func (s *memStore) addQuest(q model.Quest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quests[q.ID] = q
}

func (s *memStore) user(id int64) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memStore) quest(id uuid.UUID) (model.Quest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quests[id]
	return q, ok
}

func (s *memStore) dayRecords(userID int64) []model.DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DayRecord
	for _, d := range s.days {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

func (s *memStore) dayRecord(userID int64, day time.Time) (model.DayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.days {
		if d.UserID == userID && d.Day.Equal(day) {
			return d, true
		}
	}
	return model.DayRecord{}, false
}

func (s *memStore) questsOn(userID int64, day time.Time) []model.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Quest
	for _, q := range s.quests {
		if q.UserID == userID && q.ScheduledDay.Equal(day) {
			out = append(out, q)
		}
	}
	return out
}

// quests

func (s *memStore) GetQuestForUpdate(_ context.Context, id uuid.UUID) (*model.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s *memStore) CreateQuest(_ context.Context, quest *model.Quest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateQuest"); err != nil {
		return err
	}
	s.quests[quest.ID] = *quest
	return nil
}

func (s *memStore) InsertQuestIfAbsent(_ context.Context, quest *model.Quest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quest.TemplateKey != nil {
		for _, q := range s.quests {
			if q.UserID == quest.UserID && q.TemplateKey != nil && *q.TemplateKey == *quest.TemplateKey &&
				q.ScheduledDay.Equal(quest.ScheduledDay) {
				return false, nil
			}
		}
	}
	s.quests[quest.ID] = *quest
	return true, nil
}

func (s *memStore) UpdateQuest(_ context.Context, quest *model.Quest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.quests[quest.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Title = quest.Title
	cur.Description = quest.Description
	cur.RewardPoints = quest.RewardPoints
	cur.PenaltyPoints = quest.PenaltyPoints
	cur.Pinned = quest.Pinned
	cur.TemplateKey = quest.TemplateKey
	cur.Category = quest.Category
	cur.Color = quest.Color
	cur.RemindAt = quest.RemindAt
	s.quests[quest.ID] = cur
	return nil
}

func (s *memStore) UpdateQuestCompletion(_ context.Context, id uuid.UUID, completed bool, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quests[id]
	if !ok {
		return repository.ErrNotFound
	}
	q.Completed = completed
	q.CompletedAt = completedAt
	s.quests[id] = q
	return nil
}

func (s *memStore) UnpinTemplate(_ context.Context, userID int64, templateKey uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.quests {
		if q.UserID == userID && q.TemplateKey != nil && *q.TemplateKey == templateKey {
			q.Pinned = false
			s.quests[id] = q
		}
	}
	return nil
}

func (s *memStore) DeleteQuest(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.quests, id)
	return nil
}

func (s *memStore) ListQuestsByDay(_ context.Context, userID int64, day time.Time) ([]*model.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Quest
	for _, q := range s.quests {
		if q.UserID == userID && q.ScheduledDay.Equal(day) {
			q := q
			out = append(out, &q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) ListPinnedQuests(_ context.Context, userID int64, from, to time.Time) ([]*model.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Quest
	for _, q := range s.quests {
		if q.UserID == userID && q.Pinned && !q.ScheduledDay.Before(from) && !q.ScheduledDay.After(to) {
			q := q
			out = append(out, &q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDay.Equal(out[j].ScheduledDay) {
			return out[i].ScheduledDay.After(out[j].ScheduledDay)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) CountCompletedQuests(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.quests {
		if q.UserID == userID && q.Completed {
			n++
		}
	}
	return n, nil
}

// day records

func (s *memStore) findDay(userID int64, day time.Time) (model.DayRecord, bool) {
	for _, d := range s.days {
		if d.UserID == userID && d.Day.Equal(day) {
			return d, true
		}
	}
	return model.DayRecord{}, false
}

func (s *memStore) GetDayRecord(_ context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.findDay(userID, day)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (s *memStore) GetDayRecordForUpdate(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	return s.GetDayRecord(ctx, userID, day)
}

func (s *memStore) EnsureDayRecord(_ context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.findDay(userID, day)
	if !ok {
		d = model.DayRecord{ID: uuid.New(), UserID: userID, Day: day}
		s.days[d.ID] = d
	}
	return &d, nil
}

func (s *memStore) AddDayPoints(_ context.Context, recordID uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddDayPoints"); err != nil {
		return err
	}
	d, ok := s.days[recordID]
	if !ok || d.Settled {
		return repository.ErrNotFound
	}
	d.PointsEarned += delta
	s.days[recordID] = d
	return nil
}

func (s *memStore) SettleDayRecord(_ context.Context, record *model.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[record.ID]
	if !ok || d.Settled {
		return repository.ErrAlreadySettled
	}
	d.PointsEarned = record.PointsEarned
	d.Settled = true
	d.RolloverDebt = record.RolloverDebt
	d.TargetReached = record.TargetReached
	d.Note = record.Note
	d.SettledAt = record.SettledAt
	s.days[record.ID] = d
	return nil
}

func (s *memStore) ListDayRecords(_ context.Context, userID int64, from, to time.Time) ([]*model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.DayRecord
	for _, d := range s.days {
		if d.UserID == userID && !d.Day.Before(from) && !d.Day.After(to) {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	return out, nil
}

// users

func (s *memStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.TelegramID]; ok {
		return repository.ErrAlreadyExists
	}
	s.users[user.TelegramID] = *user
	return nil
}

func (s *memStore) GetUserByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) GetUserForUpdate(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.GetUserByTelegramID(ctx, telegramID)
}

func (s *memStore) AddUserXP(_ context.Context, telegramID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddUserXP"); err != nil {
		return err
	}
	u, ok := s.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	u.XP += delta
	s.users[telegramID] = u
	return nil
}

func (s *memStore) UpdateUserStreak(_ context.Context, telegramID int64, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Streak = streak
	s.users[telegramID] = u
	return nil
}

func (s *memStore) UpdateDailyTarget(_ context.Context, telegramID int64, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[telegramID]
	if !ok {
		return repository.ErrNotFound
	}
	u.DailyTarget = target
	s.users[telegramID] = u
	return nil
}

func (s *memStore) GetTopUsers(_ context.Context, limit int) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].TelegramID < out[j].TelegramID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// badges

func (s *memStore) ListAwardedBadgeIDs(_ context.Context, userID int64) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListAwardedBadgeIDs"); err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for id := range s.awards[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *memStore) CreateBadgeAward(_ context.Context, userID int64, badgeID string, awardedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awards[userID] == nil {
		s.awards[userID] = make(map[string]time.Time)
	}
	if _, ok := s.awards[userID][badgeID]; ok {
		return false, nil
	}
	s.awards[userID][badgeID] = awardedAt
	return true, nil
}

func (s *memStore) ListAwards(_ context.Context, userID int64) ([]*model.BadgeAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.BadgeAward
	for id, at := range s.awards[userID] {
		b := s.badges[id]
		out = append(out, &model.BadgeAward{UserID: userID, BadgeID: id, Name: b.Name, Icon: b.Icon, AwardedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

// testClock is a settable Clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ledger wires all services onto one memStore.
type ledger struct {
	store      *memStore
	clock      *testClock
	badges     *BadgeEvaluator
	quests     *QuestService
	settlement *SettlementService
	dashboard  *DashboardService
	users      *UserService
}

func newLedger(now time.Time) *ledger {
	store := newMemStore()
	clock := newTestClock(now)
	cfg := LedgerConfig{}
	badges := NewBadgeEvaluator(store, DefaultBadgeCatalog, clock.Now)
	templates := NewTemplateExpander(store, cfg, clock.Now)
	return &ledger{
		store:      store,
		clock:      clock,
		badges:     badges,
		quests:     NewQuestService(store, badges, cfg, clock.Now),
		settlement: NewSettlementService(store, badges, templates, cfg, clock.Now),
		dashboard:  NewDashboardService(store, templates, cfg, clock.Now),
		users:      NewUserService(store, nil, cfg, clock.Now),
	}
}
