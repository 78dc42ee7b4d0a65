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

const eventColumns = `id, title, description, date, location, total_seats, available_seats, price, organizer, created_at, updated_at`

// resolvedSeats mirrors capacity.Resolve inside SQL.
const resolvedSeats = `COALESCE(available_seats, total_seats, 0)`

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) database.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.TotalSeats,
		nullInt(event.AvailableSeats),
		event.Price,
		nullUUID(event.Organizer),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	if !validID(id) {
		return nil, entity.ErrEventNotFound
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	if !validID(event.ID) {
		return entity.ErrEventNotFound
	}

	query := `
		UPDATE events
		SET title = $1, description = $2, date = $3, location = $4, total_seats = $5, price = $6, updated_at = $7
		WHERE id = $8
	`

	event.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.TotalSeats,
		event.Price,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return expectAffected(result, entity.ErrEventNotFound)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return entity.ErrEventNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return expectAffected(result, entity.ErrEventNotFound)
}

// TakeSeats decrements availability in a single guarded UPDATE, so two
// concurrent reservations can never both pass the check on the same seats.
func (r *eventRepository) TakeSeats(ctx context.Context, id string, n int) (int, error) {
	if !validID(id) {
		return 0, entity.ErrEventNotFound
	}

	query := `
		UPDATE events
		SET available_seats = ` + resolvedSeats + ` - $1, updated_at = NOW()
		WHERE id = $2 AND ` + resolvedSeats + ` >= $1
		RETURNING available_seats
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, n, id).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to take seats: %w", err)
	}

	// Either the event is gone or the guard rejected the write.
	var available int
	err = r.db.QueryRowContext(ctx, `SELECT `+resolvedSeats+` FROM events WHERE id = $1`, id).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read available seats: %w", err)
	}
	return available, &entity.InsufficientSeatsError{Requested: n, Available: available}
}

func (r *eventRepository) ReturnSeats(ctx context.Context, id string, n int) (int, error) {
	if !validID(id) {
		return 0, entity.ErrEventNotFound
	}

	query := `
		UPDATE events
		SET available_seats = ` + resolvedSeats + ` + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING available_seats
	`

	var remaining int
	err := r.db.QueryRowContext(ctx, query, n, id).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to return seats: %w", err)
	}
	return remaining, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*entity.Event, error) {
	var (
		event     entity.Event
		available sql.NullInt64
		organizer sql.NullString
	)

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Location,
		&event.TotalSeats,
		&available,
		&event.Price,
		&organizer,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if available.Valid {
		event.AvailableSeats = entity.Seats(int(available.Int64))
	}
	event.Organizer = organizer.String
	return &event, nil
}
