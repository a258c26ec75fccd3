package privacy

import (
	"context"
	"time"

	"github.com/brukd/attend/internal/appointment"
	"github.com/brukd/attend/internal/patient"
	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PatientSource resolves patient records for export and consent checks
type PatientSource interface {
	Get(ctx context.Context, id types.ID) (*patient.Patient, error)
}

// AppointmentSource lists a patient's appointment history for export
type AppointmentSource interface {
	List(ctx context.Context, filter appointment.ListAppointmentsFilter) ([]appointment.Appointment, int, error)
}

// Service implements retention reporting and patient data export
type Service struct {
	pool          *pgxpool.Pool
	patients      PatientSource
	appointments  AppointmentSource
	retentionDays int
}

// NewService creates a privacy service
func NewService(pool *pgxpool.Pool, patients PatientSource, appointments AppointmentSource, cfg config.PrivacyConfig) *Service {
	days := cfg.RetentionDays
	if days <= 0 {
		days = 2555 // 7 years
	}

	return &Service{
		pool:          pool,
		patients:      patients,
		appointments:  appointments,
		retentionDays: days,
	}
}

// RetentionReport summarizes records older than the retention window
type RetentionReport struct {
	RetentionDays   int       `json:"retention_days"`
	CutoffDate      time.Time `json:"cutoff_date"`
	OldPatients     int       `json:"old_patients"`
	OldAppointments int       `json:"old_appointments"`
	ActionRequired  bool      `json:"action_required"`
	CheckedAt       time.Time `json:"checked_at"`
}

// CheckRetention reports how many stored records have aged past the
// retention window. It reports; deletion stays a manual, audited step.
func (s *Service) CheckRetention(ctx context.Context) (*RetentionReport, error) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -s.retentionDays)

	report := &RetentionReport{
		RetentionDays: s.retentionDays,
		CutoffDate:    cutoff,
		CheckedAt:     now,
	}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attend.patients
		WHERE created_at < $1 AND deleted_at IS NULL
	`, cutoff).Scan(&report.OldPatients)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count patients past retention")
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attend.appointments
		WHERE scheduled_time < $1
	`, cutoff).Scan(&report.OldAppointments)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count appointments past retention")
	}

	report.ActionRequired = report.OldPatients > 0 || report.OldAppointments > 0

	return report, nil
}

// PatientExport is a patient's complete stored record, assembled for a
// data subject access request.
type PatientExport struct {
	Patient      *patient.Patient          `json:"patient"`
	Appointments []appointment.Appointment `json:"appointments"`
	ExportedAt   time.Time                 `json:"exported_at"`
}

// ExportPatientData assembles everything stored about one patient.
// Export requires recorded consent.
func (s *Service) ExportPatientData(ctx context.Context, patientID types.ID) (*PatientExport, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if !p.ConsentGiven {
		return nil, errors.Forbidden("patient consent required for data export")
	}

	appointments, _, err := s.appointments.List(ctx, appointment.ListAppointmentsFilter{
		PatientID: &patientID,
	})
	if err != nil {
		return nil, err
	}

	return &PatientExport{
		Patient:      p,
		Appointments: appointments,
		ExportedAt:   time.Now().UTC(),
	}, nil
}

// AnonymizedPatient is the masked view of a patient record
type AnonymizedPatient struct {
	ID        types.ID `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	NameHash  string   `json:"name_hash"`
	EmailHash string   `json:"email_hash"`
}

// AnonymizePatient produces the masked view of a patient, with hashes
// that still allow record linkage.
func AnonymizePatient(p *patient.Patient) AnonymizedPatient {
	return AnonymizedPatient{
		ID:        p.ID,
		Name:      AnonymizeName(p.Name),
		Email:     AnonymizeEmail(p.Email),
		Phone:     AnonymizePhone(p.Phone),
		NameHash:  HashPersonalData(p.Name),
		EmailHash: HashPersonalData(p.Email),
	}
}
