// Package infrastructure provides the PostgreSQL implementation of the
// reminder repository.
package infrastructure

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/metrics"
	"github.com/brukd/attend/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL reminder repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save persists a new reminder event
func (r *PostgresRepository) Save(ctx context.Context, e *domain.ReminderEvent) error {
	query := `
		INSERT INTO attend.reminders (
			id, appointment_id, channel, category,
			scheduled_time, sent_time, status, message,
			delivery_status, message_id, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.AppointmentID, e.Channel, e.Category,
		e.ScheduledTime, e.SentTime, e.Status, e.Message,
		e.DeliveryStatus, e.MessageID, e.ErrorMessage, e.CreatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save reminder")
	}

	return nil
}

// SaveAll persists a batch of planned reminder events in one transaction
func (r *PostgresRepository) SaveAll(ctx context.Context, events []*domain.ReminderEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO attend.reminders (
			id, appointment_id, channel, category,
			scheduled_time, sent_time, status, message,
			delivery_status, message_id, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.ID, e.AppointmentID, e.Channel, e.Category,
			e.ScheduledTime, e.SentTime, e.Status, e.Message,
			e.DeliveryStatus, e.MessageID, e.ErrorMessage, e.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save reminder")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// FindByID loads one reminder event
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.ReminderEvent, error) {
	query := `
		SELECT id, appointment_id, channel, category,
			scheduled_time, sent_time, status, message,
			delivery_status, message_id, error_message, created_at
		FROM attend.reminders
		WHERE id = $1`

	e := &domain.ReminderEvent{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.AppointmentID, &e.Channel, &e.Category,
		&e.ScheduledTime, &e.SentTime, &e.Status, &e.Message,
		&e.DeliveryStatus, &e.MessageID, &e.ErrorMessage, &e.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("reminder", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find reminder")
	}

	return e, nil
}

// FindByAppointment lists all reminder events for an appointment
func (r *PostgresRepository) FindByAppointment(ctx context.Context, appointmentID types.ID) ([]*domain.ReminderEvent, error) {
	query := `
		SELECT id, appointment_id, channel, category,
			scheduled_time, sent_time, status, message,
			delivery_status, message_id, error_message, created_at
		FROM attend.reminders
		WHERE appointment_id = $1
		ORDER BY scheduled_time`

	rows, err := r.pool.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminders")
	}
	defer rows.Close()

	return scanReminders(rows)
}

// FindDue returns scheduled events whose time has passed, oldest first
func (r *PostgresRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ReminderEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, appointment_id, channel, category,
			scheduled_time, sent_time, status, message,
			delivery_status, message_id, error_message, created_at
		FROM attend.reminders
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time
		LIMIT $2`

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find due reminders")
	}
	defer rows.Close()
	metrics.RecordDBQuery("reminders_find_due", time.Since(start))

	return scanReminders(rows)
}

// Transition persists a status change guarded on the stored row still being
// scheduled. Reports false when a concurrent processor already transitioned
// the event.
func (r *PostgresRepository) Transition(ctx context.Context, e *domain.ReminderEvent) (bool, error) {
	query := `
		UPDATE attend.reminders SET
			status = $2, sent_time = $3,
			delivery_status = $4, message_id = $5, error_message = $6
		WHERE id = $1 AND status = 'scheduled'`

	result, err := r.pool.Exec(ctx, query,
		e.ID, e.Status, e.SentTime,
		e.DeliveryStatus, e.MessageID, e.ErrorMessage,
	)

	if err != nil {
		return false, errors.Wrap(err, "failed to transition reminder")
	}

	return result.RowsAffected() > 0, nil
}

// CancelByAppointment cancels every scheduled reminder for an appointment
func (r *PostgresRepository) CancelByAppointment(ctx context.Context, appointmentID types.ID) (int, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE attend.reminders SET status = 'cancelled'
		 WHERE appointment_id = $1 AND status = 'scheduled'`,
		appointmentID)

	if err != nil {
		return 0, errors.Wrap(err, "failed to cancel reminders")
	}

	return int(result.RowsAffected()), nil
}

// Stats summarizes reminder outcomes
func (r *PostgresRepository) Stats(ctx context.Context) (domain.Stats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM attend.reminders GROUP BY status`)
	if err != nil {
		return domain.Stats{}, errors.Wrap(err, "failed to load reminder stats")
	}
	defer rows.Close()

	var stats domain.Stats
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.Stats{}, errors.Wrap(err, "failed to scan reminder stats")
		}

		stats.Total += count
		switch status {
		case domain.StatusSent:
			stats.Sent = count
		case domain.StatusFailed:
			stats.Failed = count
		case domain.StatusScheduled:
			stats.Scheduled = count
		case domain.StatusCancelled:
			stats.Cancelled = count
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Sent) / float64(stats.Total) * 100
	}

	return stats, nil
}

func scanReminders(rows pgx.Rows) ([]*domain.ReminderEvent, error) {
	var events []*domain.ReminderEvent
	for rows.Next() {
		e := &domain.ReminderEvent{}
		err := rows.Scan(
			&e.ID, &e.AppointmentID, &e.Channel, &e.Category,
			&e.ScheduledTime, &e.SentTime, &e.Status, &e.Message,
			&e.DeliveryStatus, &e.MessageID, &e.ErrorMessage, &e.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		events = append(events, e)
	}

	return events, nil
}
