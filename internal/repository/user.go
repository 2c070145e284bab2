package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questtracker/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Handle           string    `db:"handle"`
	Username         string    `db:"username"`
	XP               int       `db:"xp"`
	DailyTarget      int       `db:"daily_target"`
	Streak           int       `db:"streak"`
	IsAdmin          bool      `db:"is_admin"`
	RegistrationDate time.Time `db:"registration_date"`
}

var userColumns = []string{
	"telegram_id", "handle", "username", "xp", "daily_target", "streak", "is_admin", "registration_date",
}

func (u *User) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		XP:               u.XP,
		DailyTarget:      u.DailyTarget,
		Streak:           u.Streak,
		IsAdmin:          u.IsAdmin,
		RegistrationDate: u.RegistrationDate,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":       user.TelegramID,
			"handle":            user.Handle,
			"username":          user.Username,
			"xp":                user.XP,
			"daily_target":      user.DailyTarget,
			"streak":            user.Streak,
			"registration_date": user.RegistrationDate,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *Repository) getUser(ctx context.Context, telegramID int64, forUpdate bool) (*model.User, error) {
	builder := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.conn(ctx).GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user.toModel(), nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getUser(ctx, telegramID, false)
}

func (r *Repository) GetUserForUpdate(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getUser(ctx, telegramID, true)
}

// AddUserXP shifts the cumulative experience total by delta, which may be negative.
func (r *Repository) AddUserXP(ctx context.Context, telegramID int64, delta int) error {
	query, args, err := squirrel.
		Update("users").
		Set("xp", squirrel.Expr("xp + ?", delta)).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func (r *Repository) UpdateUserStreak(ctx context.Context, telegramID int64, streak int) error {
	query, args, err := squirrel.
		Update("users").
		Set("streak", streak).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func (r *Repository) UpdateDailyTarget(ctx context.Context, telegramID int64, target int) error {
	query, args, err := squirrel.
		Update("users").
		Set("daily_target", target).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		OrderBy("xp DESC", "telegram_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []User
	if err = r.conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	users := make([]*model.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
	}
	return users, nil
}
