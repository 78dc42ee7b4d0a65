package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/google/uuid"
)

const bookingColumns = `id, event_id, user_id, seats_booked, status, created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) database.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = entity.BookingStatusConfirmed
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.EventID,
		booking.UserID,
		booking.SeatsBooked,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	if !validID(id) {
		return nil, entity.ErrBookingNotFound
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) GetAll(ctx context.Context) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at`
	return r.query(ctx, query)
}

func (r *bookingRepository) GetByUserID(ctx context.Context, userID string) ([]*entity.Booking, error) {
	if !validID(userID) {
		return []*entity.Booking{}, nil
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	if !validID(booking.ID) {
		return entity.ErrBookingNotFound
	}

	query := `UPDATE bookings SET seats_booked = $1, status = $2, updated_at = $3 WHERE id = $4`

	booking.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query, booking.SeatsBooked, booking.Status, booking.UpdatedAt, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	return expectAffected(result, entity.ErrBookingNotFound)
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return entity.ErrBookingNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	return expectAffected(result, entity.ErrBookingNotFound)
}

func (r *bookingRepository) SumSeatsByEvent(ctx context.Context) (map[string]int, error) {
	query := `SELECT event_id, COALESCE(SUM(seats_booked), 0) FROM bookings GROUP BY event_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum booked seats: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int)
	for rows.Next() {
		var (
			eventID string
			seats   int
		)
		if err := rows.Scan(&eventID, &seats); err != nil {
			return nil, fmt.Errorf("failed to scan booked seats: %w", err)
		}
		sums[eventID] = seats
	}
	return sums, rows.Err()
}

func (r *bookingRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*entity.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return bookings, nil
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&booking.SeatsBooked,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
