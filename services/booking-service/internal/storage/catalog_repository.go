package storage

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// CatalogRepository reads consultation types, the weekly template and blocked dates.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const typeColumns = `id, name, display_names, descriptions, duration_minutes, price_minor, slot_mode, active`

func (r *CatalogRepository) ConsultationType(ctx context.Context, id int64) (model.ConsultationType, error) {
	ct, err := scanType(r.pool.QueryRow(ctx, `SELECT `+typeColumns+` FROM consultation_types WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ConsultationType{}, model.ErrNotFound
	}
	return ct, err
}

func (r *CatalogRepository) ConsultationTypes(ctx context.Context, activeOnly bool) ([]model.ConsultationType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+typeColumns+`
		FROM consultation_types
		WHERE active OR NOT $1
		ORDER BY price_minor, id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConsultationType
	for rows.Next() {
		ct, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) WeeklyTemplate(ctx context.Context) ([]model.WeeklySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, day_of_week, start_time, end_time, active
		FROM weekly_availability
		ORDER BY day_of_week, start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklySlot
	for rows.Next() {
		var slot model.WeeklySlot
		var weekday int16
		var start, end pgtype.Time
		if err := rows.Scan(&slot.ID, &weekday, &start, &end, &slot.Active); err != nil {
			return nil, err
		}
		slot.Weekday = time.Weekday(weekday)
		slot.Start = civilTime(start)
		slot.End = civilTime(end)
		out = append(out, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) BlockedDate(ctx context.Context, date civil.Date) (model.BlockedDate, bool, error) {
	var reason string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(reason, '')
		FROM blocked_dates
		WHERE blocked_date = $1
	`, pgDate(date)).Scan(&reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BlockedDate{}, false, nil
	}
	if err != nil {
		return model.BlockedDate{}, false, err
	}
	return model.BlockedDate{Date: date, Reason: reason}, true, nil
}

func scanType(row pgx.Row) (model.ConsultationType, error) {
	var ct model.ConsultationType
	var mode string
	err := row.Scan(&ct.ID, &ct.Name, &ct.DisplayNames, &ct.Descriptions, &ct.DurationMinutes, &ct.PriceMinor, &mode, &ct.Active)
	if err != nil {
		return model.ConsultationType{}, err
	}
	ct.Mode = model.SlotMode(mode)
	return ct, nil
}
