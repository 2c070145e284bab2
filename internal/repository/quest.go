package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questtracker/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type Quest struct {
	ID            uuid.UUID     `db:"id"`
	UserID        int64         `db:"user_id"`
	Title         string        `db:"title"`
	Description   string        `db:"description"`
	RewardPoints  int           `db:"reward_points"`
	PenaltyPoints int           `db:"penalty_points"`
	ScheduledDay  time.Time     `db:"scheduled_day"`
	Completed     bool          `db:"completed"`
	CompletedAt   *time.Time    `db:"completed_at"`
	Pinned        bool          `db:"pinned"`
	TemplateKey   uuid.NullUUID `db:"template_key"`
	Category      string        `db:"category"`
	Color         string        `db:"color"`
	RemindAt      *time.Time    `db:"remind_at"`
	CreatedAt     time.Time     `db:"created_at"`
}

var questColumns = []string{
	"id", "user_id", "title", "description", "reward_points", "penalty_points", "scheduled_day",
	"completed", "completed_at", "pinned", "template_key", "category", "color", "remind_at", "created_at",
}

func (q *Quest) toModel() *model.Quest {
	quest := &model.Quest{
		ID:            q.ID,
		UserID:        q.UserID,
		Title:         q.Title,
		Description:   q.Description,
		RewardPoints:  q.RewardPoints,
		PenaltyPoints: q.PenaltyPoints,
		ScheduledDay:  model.DayOf(q.ScheduledDay, time.UTC),
		Completed:     q.Completed,
		CompletedAt:   q.CompletedAt,
		Pinned:        q.Pinned,
		Category:      q.Category,
		Color:         q.Color,
		RemindAt:      q.RemindAt,
		CreatedAt:     q.CreatedAt,
	}
	if q.TemplateKey.Valid {
		key := q.TemplateKey.UUID
		quest.TemplateKey = &key
	}
	return quest
}

func nullKey(key *uuid.UUID) uuid.NullUUID {
	if key == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *key, Valid: true}
}

func questValues(q *model.Quest) map[string]interface{} {
	return map[string]interface{}{
		"id":             q.ID,
		"user_id":        q.UserID,
		"title":          q.Title,
		"description":    q.Description,
		"reward_points":  q.RewardPoints,
		"penalty_points": q.PenaltyPoints,
		"scheduled_day":  q.ScheduledDay,
		"completed":      q.Completed,
		"completed_at":   q.CompletedAt,
		"pinned":         q.Pinned,
		"template_key":   nullKey(q.TemplateKey),
		"category":       q.Category,
		"color":          q.Color,
		"remind_at":      q.RemindAt,
		"created_at":     q.CreatedAt,
	}
}

func (r *Repository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := squirrel.
		Insert("quests").
		SetMap(questValues(quest)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	if _, err = r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert quest: %w", err)
	}
	return nil
}

// cloneConflictTarget must match the partial unique index on quests in schema.sql.
const cloneConflictTarget = "(user_id, template_key, scheduled_day) WHERE template_key IS NOT NULL"

func questCloneInsert(quest *model.Quest) squirrel.InsertBuilder {
	return squirrel.
		Insert("quests").
		SetMap(questValues(quest)).
		Suffix("ON CONFLICT " + cloneConflictTarget + " DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)
}

// InsertQuestIfAbsent inserts a template clone unless the same template already has a quest on that day.
func (r *Repository) InsertQuestIfAbsent(ctx context.Context, quest *model.Quest) (bool, error) {
	query, args, err := questCloneInsert(quest).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build quest clone query: %w", err)
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert quest clone: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// GetQuestForUpdate locks the quest row until the surrounding transaction ends.
func (r *Repository) GetQuestForUpdate(ctx context.Context, id uuid.UUID) (*model.Quest, error) {
	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var quest Quest
	err = r.conn(ctx).GetContext(ctx, &quest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return quest.toModel(), nil
}

func (r *Repository) selectQuests(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Quest, error) {
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Quest
	if err = r.conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, len(rows))
	for i := range rows {
		quests[i] = rows[i].toModel()
	}
	return quests, nil
}

func (r *Repository) ListQuestsByDay(ctx context.Context, userID int64, day time.Time) ([]*model.Quest, error) {
	quests, err := r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "scheduled_day": day}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list quests by day: %w", err)
	}
	return quests, nil
}

// ListPinnedQuests returns pinned quests scheduled in [from, to], newest day first.
func (r *Repository) ListPinnedQuests(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error) {
	quests, err := r.selectQuests(ctx, squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "pinned": true}).
		Where(squirrel.GtOrEq{"scheduled_day": from}).
		Where(squirrel.LtOrEq{"scheduled_day": to}).
		OrderBy("scheduled_day DESC", "created_at DESC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned quests: %w", err)
	}
	return quests, nil
}

func (r *Repository) UpdateQuestCompletion(ctx context.Context, id uuid.UUID, completed bool, completedAt *time.Time) error {
	query, args, err := squirrel.
		Update("quests").
		SetMap(map[string]interface{}{
			"completed":    completed,
			"completed_at": completedAt,
		}).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func (r *Repository) UpdateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := squirrel.
		Update("quests").
		SetMap(map[string]interface{}{
			"title":          quest.Title,
			"description":    quest.Description,
			"reward_points":  quest.RewardPoints,
			"penalty_points": quest.PenaltyPoints,
			"pinned":         quest.Pinned,
			"template_key":   nullKey(quest.TemplateKey),
			"category":       quest.Category,
			"color":          quest.Color,
			"remind_at":      quest.RemindAt,
		}).
		Where(squirrel.Eq{"id": quest.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

// UnpinTemplate clears the pin flag on every quest of a template lineage.
func (r *Repository) UnpinTemplate(ctx context.Context, userID int64, templateKey uuid.UUID) error {
	query, args, err := squirrel.
		Update("quests").
		Set("pinned", false).
		Where(squirrel.Eq{"user_id": userID, "template_key": templateKey}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) DeleteQuest(ctx context.Context, id uuid.UUID) error {
	query, args, err := squirrel.
		Delete("quests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func (r *Repository) CountCompletedQuests(ctx context.Context, userID int64) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "completed": true}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err = r.conn(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count completed quests: %w", err)
	}
	return count, nil
}

func (r *Repository) execAffecting(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
