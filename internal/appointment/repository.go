package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brukd/attend/internal/risk"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// historyWindowMonths is the trailing window used to derive a patient's
// visit frequency.
const historyWindowMonths = 6

// Repository provides database operations for appointments. It also serves
// as the history supplier for the risk pipeline and the source of recorded
// outcomes for training.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new appointment repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a new appointment
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO attend.appointments (
			id, patient_id, clinic_id, scheduled_time,
			appointment_type, duration_minutes, status, notes,
			weather_condition, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PatientID, a.ClinicID, a.ScheduledTime,
		a.AppointmentType, a.DurationMinutes, a.Status, a.Notes,
		a.WeatherCondition, a.CreatedAt, a.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return errors.BadRequest("patient or clinic does not exist")
		}
		return errors.Wrap(err, "failed to create appointment")
	}

	return nil
}

// Get retrieves an appointment by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	query := `
		SELECT id, patient_id, clinic_id, scheduled_time,
			appointment_type, duration_minutes, status, notes,
			weather_condition, created_at, updated_at
		FROM attend.appointments
		WHERE id = $1`

	a := &Appointment{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.PatientID, &a.ClinicID, &a.ScheduledTime,
		&a.AppointmentType, &a.DurationMinutes, &a.Status, &a.Notes,
		&a.WeatherCondition, &a.CreatedAt, &a.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("appointment", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get appointment")
	}

	return a, nil
}

// Update updates an appointment
func (r *Repository) Update(ctx context.Context, a *Appointment) error {
	query := `
		UPDATE attend.appointments SET
			scheduled_time = $2, appointment_type = $3, duration_minutes = $4,
			status = $5, notes = $6, weather_condition = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		a.ID, a.ScheduledTime, a.AppointmentType, a.DurationMinutes,
		a.Status, a.Notes, a.WeatherCondition, a.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update appointment")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("appointment", a.ID.String())
	}

	return nil
}

// List lists appointments with optional filters
func (r *Repository) List(ctx context.Context, filter ListAppointmentsFilter) ([]Appointment, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argNum))
		args = append(args, *filter.PatientID)
		argNum++
	}

	if filter.ClinicID != nil {
		conditions = append(conditions, fmt.Sprintf("clinic_id = $%d", argNum))
		args = append(args, *filter.ClinicID)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_time >= $%d", argNum))
		args = append(args, *filter.From)
		argNum++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_time <= $%d", argNum))
		args = append(args, *filter.To)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attend.appointments %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count appointments")
	}

	// Limit
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT id, patient_id, clinic_id, scheduled_time,
			appointment_type, duration_minutes, status, notes,
			weather_condition, created_at, updated_at
		FROM attend.appointments
		%s
		ORDER BY scheduled_time DESC
		LIMIT $%d OFFSET $%d`, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list appointments")
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		var a Appointment
		err := rows.Scan(
			&a.ID, &a.PatientID, &a.ClinicID, &a.ScheduledTime,
			&a.AppointmentType, &a.DurationMinutes, &a.Status, &a.Notes,
			&a.WeatherCondition, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan appointment")
		}
		appointments = append(appointments, a)
	}

	return appointments, total, nil
}

// UpcomingScheduled returns appointments still scheduled for a future slot,
// soonest first.
func (r *Repository) UpcomingScheduled(ctx context.Context, now time.Time, limit int) ([]Appointment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, patient_id, clinic_id, scheduled_time,
			appointment_type, duration_minutes, status, notes,
			weather_condition, created_at, updated_at
		FROM attend.appointments
		WHERE status = 'scheduled' AND scheduled_time >= $1
		ORDER BY scheduled_time
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list upcoming appointments")
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		var a Appointment
		err := rows.Scan(
			&a.ID, &a.PatientID, &a.ClinicID, &a.ScheduledTime,
			&a.AppointmentType, &a.DurationMinutes, &a.Status, &a.Notes,
			&a.WeatherCondition, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment")
		}
		appointments = append(appointments, a)
	}

	return appointments, nil
}

// History derives a patient's attendance summary: lifetime no-show count
// and visits per month over the trailing window.
func (r *Repository) History(ctx context.Context, patientID types.ID) (risk.History, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'no_show'),
			COUNT(*) FILTER (WHERE scheduled_time >= NOW() - INTERVAL '%d months')
		FROM attend.appointments
		WHERE patient_id = $1`, historyWindowMonths)

	var noShows, recentVisits int
	err := r.pool.QueryRow(ctx, query, patientID).Scan(&noShows, &recentVisits)
	if err != nil {
		return risk.DefaultHistory(), errors.Wrap(err, "failed to derive patient history")
	}

	history := risk.History{
		PreviousNoShows:      noShows,
		AppointmentFrequency: float64(recentVisits) / historyWindowMonths,
	}
	if recentVisits == 0 {
		history.AppointmentFrequency = risk.DefaultHistory().AppointmentFrequency
	}

	return history, nil
}

// Outcomes returns appointments whose attendance outcome has been recorded,
// newest first, for assembling training datasets.
func (r *Repository) Outcomes(ctx context.Context, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 5000
	}

	query := `
		SELECT id, patient_id, clinic_id, scheduled_time,
			appointment_type, duration_minutes, status, notes,
			weather_condition, created_at, updated_at
		FROM attend.appointments
		WHERE status IN ('completed', 'no_show')
		ORDER BY scheduled_time DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointment outcomes")
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		var a Appointment
		err := rows.Scan(
			&a.ID, &a.PatientID, &a.ClinicID, &a.ScheduledTime,
			&a.AppointmentType, &a.DurationMinutes, &a.Status, &a.Notes,
			&a.WeatherCondition, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment")
		}
		appointments = append(appointments, a)
	}

	return appointments, nil
}

// DashboardCounts aggregates the raw dashboard figures. The high-risk count
// is layered on by the service, which owns the risk model.
func (r *Repository) DashboardCounts(ctx context.Context, now time.Time) (DashboardCounts, error) {
	var counts DashboardCounts

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'scheduled' AND scheduled_time >= $1),
			COUNT(*) FILTER (WHERE status IN ('completed', 'no_show') AND scheduled_time >= $1 - INTERVAL '30 days'),
			COUNT(*) FILTER (WHERE status = 'no_show' AND scheduled_time >= $1 - INTERVAL '30 days')
		FROM attend.appointments`

	err := r.pool.QueryRow(ctx, query, now).Scan(
		&counts.Total, &counts.Upcoming, &counts.RecentOutcomes, &counts.RecentNoShows,
	)
	if err != nil {
		return counts, errors.Wrap(err, "failed to aggregate dashboard counts")
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attend.patients WHERE deleted_at IS NULL`,
	).Scan(&counts.Patients)
	if err != nil {
		return counts, errors.Wrap(err, "failed to count patients")
	}

	return counts, nil
}
