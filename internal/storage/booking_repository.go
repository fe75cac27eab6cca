package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vic-it/epm-booking/internal/model"
	"github.com/vic-it/epm-booking/libs/db"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// TimesOnDate returns the stored start times of all bookings on a date, as
// text. The time column keeps seconds precision; callers truncate.
func (r *BookingRepository) TimesOnDate(ctx context.Context, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT booking_time::text
		FROM bookings
		WHERE booking_date = $1
		ORDER BY booking_time ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return times, nil
}

// AnyOnDateTimes reports whether any booking on the date starts at one of the
// given HH:MM times.
func (r *BookingRepository) AnyOnDateTimes(ctx context.Context, date string, times []string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE booking_date = $1
			  AND booking_time = ANY($2::time[])
		)
	`, date, times).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts the booking and returns the store-assigned id and creation
// timestamp.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) (string, time.Time, error) {
	var id string
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bookings
			(first_name, last_name, email, mobile, service, location,
			 booking_date, booking_time, quantity, payment_type,
			 service_fee, early_late_fee, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`, b.FirstName, b.LastName, b.Email, b.Mobile, b.Service, b.Location,
		b.Date, b.Time, b.Quantity, b.PaymentType,
		b.ServiceFee, b.EarlyLateFee, b.Total).Scan(&id, &createdAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return id, createdAt, nil
}

// IsPolicyDenied reports a storage-level access-control rejection (e.g. a
// row-level security policy), as opposed to a data or connectivity problem.
func IsPolicyDenied(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42501"
}

// IsUniqueViolation reports a violation of the (booking_date, booking_time)
// uniqueness backstop: two clients passed the conflict check concurrently.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
