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

type DayRecord struct {
	ID            uuid.UUID  `db:"id"`
	UserID        int64      `db:"user_id"`
	Day           time.Time  `db:"day"`
	PointsEarned  int        `db:"points_earned"`
	Settled       bool       `db:"settled"`
	RolloverDebt  int        `db:"rollover_debt"`
	TargetReached bool       `db:"target_reached"`
	Note          *string    `db:"note"`
	SettledAt     *time.Time `db:"settled_at"`
}

var dayColumns = []string{
	"id", "user_id", "day", "points_earned", "settled", "rollover_debt", "target_reached", "note", "settled_at",
}

func (d *DayRecord) toModel() *model.DayRecord {
	return &model.DayRecord{
		ID:            d.ID,
		UserID:        d.UserID,
		Day:           model.DayOf(d.Day, time.UTC),
		PointsEarned:  d.PointsEarned,
		Settled:       d.Settled,
		RolloverDebt:  d.RolloverDebt,
		TargetReached: d.TargetReached,
		Note:          d.Note,
		SettledAt:     d.SettledAt,
	}
}

func dayRecordSelect(userID int64, day time.Time, forUpdate bool) squirrel.SelectBuilder {
	builder := squirrel.
		Select(dayColumns...).
		From("day_records").
		Where(squirrel.Eq{"user_id": userID, "day": day}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	return builder
}

func (r *Repository) getDayRecord(ctx context.Context, userID int64, day time.Time, forUpdate bool) (*model.DayRecord, error) {
	query, args, err := dayRecordSelect(userID, day, forUpdate).ToSql()
	if err != nil {
		return nil, err
	}

	var record DayRecord
	err = r.conn(ctx).GetContext(ctx, &record, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record.toModel(), nil
}

func (r *Repository) GetDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	return r.getDayRecord(ctx, userID, day, false)
}

func (r *Repository) GetDayRecordForUpdate(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	return r.getDayRecord(ctx, userID, day, true)
}

// EnsureDayRecord returns the (user, day) ledger row, creating an open one first if needed.
// The row is locked for the rest of the transaction.
func (r *Repository) EnsureDayRecord(ctx context.Context, userID int64, day time.Time) (*model.DayRecord, error) {
	query, args, err := squirrel.
		Insert("day_records").
		SetMap(map[string]interface{}{
			"id":            uuid.New(),
			"user_id":       userID,
			"day":           day,
			"points_earned": 0,
			"settled":       false,
		}).
		Suffix("ON CONFLICT (user_id, day) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build day record insert query: %w", err)
	}

	if _, err = r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert day record: %w", err)
	}

	return r.getDayRecord(ctx, userID, day, true)
}

func (r *Repository) AddDayPoints(ctx context.Context, recordID uuid.UUID, delta int) error {
	query, args, err := squirrel.
		Update("day_records").
		Set("points_earned", squirrel.Expr("points_earned + ?", delta)).
		Where(squirrel.Eq{"id": recordID, "settled": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	return r.execAffecting(ctx, query, args...)
}

func settleDayUpdate(record *model.DayRecord) squirrel.UpdateBuilder {
	return squirrel.
		Update("day_records").
		SetMap(map[string]interface{}{
			"points_earned":  record.PointsEarned,
			"settled":        true,
			"rollover_debt":  record.RolloverDebt,
			"target_reached": record.TargetReached,
			"note":           record.Note,
			"settled_at":     record.SettledAt,
		}).
		Where(squirrel.Eq{"id": record.ID, "settled": false}).
		PlaceholderFormat(squirrel.Dollar)
}

// SettleDayRecord finalizes an open day record. It fails with ErrAlreadySettled when
// the record is already closed.
func (r *Repository) SettleDayRecord(ctx context.Context, record *model.DayRecord) error {
	query, args, err := settleDayUpdate(record).ToSql()
	if err != nil {
		return err
	}

	err = r.execAffecting(ctx, query, args...)
	if errors.Is(err, ErrNotFound) {
		return ErrAlreadySettled
	}
	return err
}

func (r *Repository) ListDayRecords(ctx context.Context, userID int64, from, to time.Time) ([]*model.DayRecord, error) {
	query, args, err := squirrel.
		Select(dayColumns...).
		From("day_records").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"day": from}).
		Where(squirrel.LtOrEq{"day": to}).
		OrderBy("day DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []DayRecord
	if err = r.conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list day records: %w", err)
	}

	records := make([]*model.DayRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toModel()
	}
	return records, nil
}
