package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/llcportal/consultations/libs/db"
	"github.com/llcportal/consultations/services/booking-service/internal/audit"
	"github.com/llcportal/consultations/services/booking-service/internal/model"
	"github.com/llcportal/consultations/services/booking-service/internal/outbox"
)

// Index names from migrations/0001_init.sql.
const (
	slotHeldIndex = "bookings_slot_held_uniq"
	codeIndex     = "bookings_code_key"
)

const bookingColumns = `
	id::text, code, account_id, guest_email, guest_name, consultation_type_id,
	scheduled_date, scheduled_time, duration_minutes, status,
	topic, notes, locale, preferred_language, admin_notes,
	confirmed_at, completed_at, cancelled_at, cancel_reason, rescheduled_at,
	reminder_3h_sent_at, reminder_30m_sent_at, created_at, updated_at`

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	audit  *audit.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository, auditRepo *audit.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo, audit: auditRepo}
}

// HeldTimes returns start times on date held by pending or confirmed bookings.
func (r *BookingRepository) HeldTimes(ctx context.Context, date civil.Date) ([]civil.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_time
		FROM bookings
		WHERE scheduled_date = $1 AND status IN ('pending', 'confirmed')
		ORDER BY scheduled_time
	`, pgDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []civil.Time
	for rows.Next() {
		var t pgtype.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, civilTime(t))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Insert relies on the partial unique index over (scheduled_date, scheduled_time) for
// pending and confirmed rows. Concurrent inserts for one slot cannot both commit.
func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) error {
	accountID, guestEmail, guestName, err := ownerColumns(b.Owner)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO bookings
			(id, code, account_id, guest_email, guest_name, consultation_type_id,
			 scheduled_date, scheduled_time, duration_minutes, status,
			 topic, notes, locale, preferred_language, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`, b.ID, b.Code, accountID, guestEmail, guestName, b.TypeID,
		pgDate(b.Date), pgTime(b.Time), b.DurationMinutes, string(b.Status),
		b.Topic, b.Notes, b.Locale, b.Language, b.ConfirmedAt, b.CreatedAt)
	return mapWriteError(err)
}

// Get reports ids that are not UUIDs as not found instead of handing them to the uuid cast.
func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	if !validID(id) {
		return model.Booking{}, model.ErrNotFound
	}
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) FindByCode(ctx context.Context, code string) (model.Booking, error) {
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1`, code)
}

func (r *BookingRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]model.Booking, error) {
	return r.queryMany(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE account_id = $1
		ORDER BY scheduled_date DESC, scheduled_time DESC
		LIMIT $2
	`, accountID, limit)
}

func (r *BookingRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Booking, error) {
	return r.queryMany(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(filter.Status), filter.Limit)
}

// Upcoming returns pending and confirmed bookings scheduled in [from, to].
func (r *BookingRepository) Upcoming(ctx context.Context, from, to civil.Date) ([]model.Booking, error) {
	return r.queryMany(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE scheduled_date BETWEEN $1 AND $2
			AND status IN ('pending', 'confirmed')
		ORDER BY scheduled_date, scheduled_time
	`, pgDate(from), pgDate(to))
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// Mutate locks the booking row, applies the change, re-checks the slot when the date or time
// moves, persists the result and writes the audit entry, all in one transaction.
func (r *BookingRepository) Mutate(ctx context.Context, id string, change model.Change) (model.Booking, model.Booking, error) {
	if !validID(id) {
		return model.Booking{}, model.Booking{}, model.ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return model.Booking{}, model.Booking{}, err
	}
	after, err := change.Apply(before)
	if err != nil {
		return model.Booking{}, model.Booking{}, err
	}

	moved := after.Date != before.Date || after.Time != before.Time
	if moved {
		var taken bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE scheduled_date = $1 AND scheduled_time = $2
					AND status IN ('pending', 'confirmed')
					AND id <> $3
			)
		`, pgDate(after.Date), pgTime(after.Time), id).Scan(&taken)
		if err != nil {
			return model.Booking{}, model.Booking{}, err
		}
		if taken {
			return model.Booking{}, model.Booking{}, model.ErrSlotTaken
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET scheduled_date = $2,
			scheduled_time = $3,
			status = $4,
			admin_notes = $5,
			confirmed_at = $6,
			completed_at = $7,
			cancelled_at = $8,
			cancel_reason = $9,
			rescheduled_at = $10,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, pgDate(after.Date), pgTime(after.Time), string(after.Status), after.AdminNotes,
		after.ConfirmedAt, after.CompletedAt, after.CancelledAt, after.CancelReason, after.RescheduledAt,
	).Scan(&after.UpdatedAt)
	if err != nil {
		return model.Booking{}, model.Booking{}, mapWriteError(err)
	}

	details := map[string]any{
		"from_status": before.Status,
		"to_status":   after.Status,
		"code":        after.Code,
	}
	if moved {
		details["from_slot"] = before.Date.String() + " " + model.FormatClock(before.Time)
		details["to_slot"] = after.Date.String() + " " + model.FormatClock(after.Time)
	}
	if err := r.audit.RecordTx(ctx, tx, audit.Entry{
		Action:   change.Action,
		ActorID:  change.ActorID,
		TargetID: id,
		Details:  details,
	}); err != nil {
		return model.Booking{}, model.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, model.Booking{}, err
	}
	return before, after, nil
}

// ClaimReminder sets the reminder marker and enqueues n in one transaction. It returns
// false without enqueueing when the marker is already set or the booking no longer holds
// its slot.
func (r *BookingRepository) ClaimReminder(ctx context.Context, bookingID string, kind model.ReminderKind, n model.Notification) (bool, error) {
	if !validID(bookingID) {
		return false, nil
	}
	column, err := reminderColumn(kind)
	if err != nil {
		return false, err
	}
	evt, err := outbox.NotificationEvent(n)
	if err != nil {
		return false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE bookings
		SET %[1]s = now()
		WHERE id = $1 AND %[1]s IS NULL AND status IN ('pending', 'confirmed')
	`, column), bookingID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *BookingRepository) queryOne(ctx context.Context, sql string, args ...any) (model.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, sql, args...))
}

func (r *BookingRepository) queryMany(ctx context.Context, sql string, args ...any) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var accountID, guestEmail, guestName *string
	var date pgtype.Date
	var at pgtype.Time
	var status string
	var confirmedAt, completedAt, cancelledAt, rescheduledAt *time.Time
	var sent3h, sent30m *time.Time
	err := row.Scan(
		&b.ID, &b.Code, &accountID, &guestEmail, &guestName, &b.TypeID,
		&date, &at, &b.DurationMinutes, &status,
		&b.Topic, &b.Notes, &b.Locale, &b.Language, &b.AdminNotes,
		&confirmedAt, &completedAt, &cancelledAt, &b.CancelReason, &rescheduledAt,
		&sent3h, &sent30m, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, model.ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.Owner = ownerFromColumns(accountID, guestEmail, guestName)
	b.Date = civilDate(date)
	b.Time = civilTime(at)
	b.Status = model.Status(status)
	b.ConfirmedAt, b.CompletedAt, b.CancelledAt, b.RescheduledAt = confirmedAt, completedAt, cancelledAt, rescheduledAt
	b.Reminder3hSentAt, b.Reminder30mSentAt = sent3h, sent30m
	return b, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case slotHeldIndex:
			return model.ErrSlotTaken
		case codeIndex:
			return model.ErrCodeTaken
		}
	}
	return err
}
