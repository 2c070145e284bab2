package repository

import (
	"context"
	"fmt"
	"time"

	"questtracker/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type badgeAward struct {
	UserID    int64     `db:"user_id"`
	BadgeID   string    `db:"badge_id"`
	Name      string    `db:"name"`
	Icon      string    `db:"icon"`
	AwardedAt time.Time `db:"awarded_at"`
}

// SeedBadges writes the badge catalog, refreshing descriptive fields of existing rows.
func (r *Repository) SeedBadges(ctx context.Context, badges []model.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	builder := squirrel.
		Insert("badges").
		Columns("badge_id", "name", "description", "icon", "rule", "threshold")
	for _, b := range badges {
		builder = builder.Values(b.ID, b.Name, b.Description, b.Icon, string(b.Rule), b.Threshold)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (badge_id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, " +
			"icon = EXCLUDED.icon, rule = EXCLUDED.rule, threshold = EXCLUDED.threshold").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build badge seed query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to seed badges: %w", err)
	}
	return nil
}

func awardedBadgeIDsSelect(userID int64) squirrel.SelectBuilder {
	return squirrel.
		Select("COALESCE(array_agg(badge_id), '{}') AS badge_ids").
		From("badge_awards").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *Repository) ListAwardedBadgeIDs(ctx context.Context, userID int64) (map[string]struct{}, error) {
	query, args, err := awardedBadgeIDsSelect(userID).ToSql()
	if err != nil {
		return nil, err
	}

	var ids pq.StringArray
	if err = r.conn(ctx).GetContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list awarded badges: %w", err)
	}

	awarded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		awarded[id] = struct{}{}
	}
	return awarded, nil
}

// CreateBadgeAward records an award and reports whether it was new.
func (r *Repository) CreateBadgeAward(ctx context.Context, userID int64, badgeID string, awardedAt time.Time) (bool, error) {
	query, args, err := squirrel.
		Insert("badge_awards").
		Columns("user_id", "badge_id", "awarded_at").
		Values(userID, badgeID, awardedAt).
		Suffix("ON CONFLICT (user_id, badge_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert badge award: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *Repository) ListAwards(ctx context.Context, userID int64) ([]*model.BadgeAward, error) {
	query, args, err := squirrel.
		Select("ba.user_id", "ba.badge_id", "b.name", "b.icon", "ba.awarded_at").
		From("badge_awards ba").
		Join("badges b ON b.badge_id = ba.badge_id").
		Where(squirrel.Eq{"ba.user_id": userID}).
		OrderBy("ba.awarded_at", "ba.badge_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []badgeAward
	if err = r.conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}

	awards := make([]*model.BadgeAward, len(rows))
	for i, a := range rows {
		awards[i] = &model.BadgeAward{
			UserID:    a.UserID,
			BadgeID:   a.BadgeID,
			Name:      a.Name,
			Icon:      a.Icon,
			AwardedAt: a.AwardedAt,
		}
	}
	return awards, nil
}
