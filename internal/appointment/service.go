// Package appointment owns the booking workflow: creating and updating
// appointments, assessing their no-show risk at booking time, and keeping
// the planned reminder cadence in step with reschedules and cancellations.
package appointment

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/brukd/attend/internal/clinic"
	"github.com/brukd/attend/internal/patient"
	remdomain "github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/risk"
	"github.com/brukd/attend/internal/scheduler"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/metrics"
	"github.com/brukd/attend/internal/shared/types"
)

// Store persists appointments and answers the aggregate queries the booking
// workflow needs. *Repository implements it against Postgres.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id types.ID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, filter ListAppointmentsFilter) ([]Appointment, int, error)
	UpcomingScheduled(ctx context.Context, now time.Time, limit int) ([]Appointment, error)
	History(ctx context.Context, patientID types.ID) (risk.History, error)
	Outcomes(ctx context.Context, limit int) ([]Appointment, error)
	DashboardCounts(ctx context.Context, now time.Time) (DashboardCounts, error)
}

// PatientDirectory resolves patients for validation and reminder
// rendering. MRN lookup serves attendance records arriving from the HIS,
// which identifies patients by medical record number.
type PatientDirectory interface {
	Get(ctx context.Context, id types.ID) (*patient.Patient, error)
	GetByMRN(ctx context.Context, mrn types.MRN) (*patient.Patient, error)
}

// ClinicDirectory resolves clinics for validation and reminder rendering.
type ClinicDirectory interface {
	Get(ctx context.Context, id types.ID) (*clinic.Clinic, error)
}

// WeatherSource supplies the current condition snapshot stored on a booking.
// An empty string means unknown; a nil source is treated the same way.
type WeatherSource interface {
	Current(ctx context.Context) string
}

// DashboardCounts are the raw aggregates behind DashboardStats.
type DashboardCounts struct {
	Total          int
	Upcoming       int
	RecentOutcomes int
	RecentNoShows  int
	Patients       int
}

// BookingResult is what a successful booking returns: the persisted
// appointment, its advisory risk assessment, and the reminders planned
// for it.
type BookingResult struct {
	Appointment *Appointment               `json:"appointment"`
	Risk        risk.Assessment            `json:"risk"`
	Reminders   []*remdomain.ReminderEvent `json:"reminders"`
}

// Service coordinates booking with the risk pipeline and reminder planning.
type Service struct {
	store     Store
	patients  PatientDirectory
	clinics   ClinicDirectory
	riskSvc   *risk.Service
	planner   *remdomain.Planner
	reminders remdomain.Repository
	weather   WeatherSource
	bus       *events.Bus
}

// NewService creates the booking service. weather and bus are optional.
func NewService(
	store Store,
	patients PatientDirectory,
	clinics ClinicDirectory,
	riskSvc *risk.Service,
	reminders remdomain.Repository,
	weather WeatherSource,
	bus *events.Bus,
) *Service {
	return &Service{
		store:     store,
		patients:  patients,
		clinics:   clinics,
		riskSvc:   riskSvc,
		planner:   remdomain.NewPlanner(),
		reminders: reminders,
		weather:   weather,
		bus:       bus,
	}
}

// Book creates an appointment, assesses its no-show risk and plans its
// reminder cadence. Risk assessment is advisory: it can fall back but it
// cannot fail the booking. A reminder persistence failure does not undo
// the booking either; it is logged and the appointment stands.
func (s *Service) Book(ctx context.Context, req CreateAppointmentRequest) (*BookingResult, error) {
	p, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	c, err := s.clinics.Get(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}

	appt, err := NewAppointment(
		req.PatientID, req.ClinicID, req.ScheduledTime,
		req.AppointmentType, req.DurationMinutes, req.Notes,
	)
	if err != nil {
		return nil, errors.BadRequest(err.Error())
	}

	if s.weather != nil {
		appt.WeatherCondition = s.weather.Current(ctx)
	}

	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}

	metrics.RecordAppointmentCreated(appt.AppointmentType, appt.ClinicID.String())

	assessment := s.assess(ctx, appt)

	planned, err := s.planReminders(ctx, appt, p, c, assessment)
	if err != nil {
		log.Printf("Failed to plan reminders for appointment %s: %v", appt.ID, err)
		planned = nil
	}

	s.publish(ctx, "appointment.created", appt, map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"clinic_id":      appt.ClinicID,
		"risk_level":     assessment.Tier,
		"probability":    assessment.Probability,
	})

	return &BookingResult{Appointment: appt, Risk: assessment, Reminders: planned}, nil
}

// Update applies an update request. A new scheduled time reschedules the
// appointment and replans its reminders; a move to cancelled cancels every
// pending reminder while leaving sent and failed ones as history.
func (s *Service) Update(ctx context.Context, id types.ID, req UpdateAppointmentRequest) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fromStatus := appt.Status
	rescheduled := false

	if req.ScheduledTime != nil && !req.ScheduledTime.Equal(appt.ScheduledTime) {
		if err := appt.Reschedule(*req.ScheduledTime); err != nil {
			return nil, errors.Conflict(err.Error())
		}
		rescheduled = true
	}

	if req.Status != nil && *req.Status != appt.Status {
		if !req.Status.Valid() {
			return nil, errors.BadRequest("unknown appointment status: " + string(*req.Status))
		}
		if err := appt.TransitionTo(*req.Status); err != nil {
			return nil, errors.Conflict(err.Error())
		}
	}

	if req.Notes != nil {
		appt.Notes = *req.Notes
	}
	if req.DurationMinutes != nil && *req.DurationMinutes > 0 {
		appt.DurationMinutes = *req.DurationMinutes
	}

	if err := s.store.Update(ctx, appt); err != nil {
		return nil, err
	}

	if fromStatus != appt.Status {
		metrics.RecordAppointmentStatusChange(string(fromStatus), string(appt.Status))
	}

	// A cancelled booking needs no reminders; a rescheduled one needs them
	// planned against the new slot.
	if appt.Status == StatusCancelled || rescheduled {
		if n, err := s.reminders.CancelByAppointment(ctx, appt.ID); err != nil {
			log.Printf("Failed to cancel reminders for appointment %s: %v", appt.ID, err)
		} else if n > 0 {
			log.Printf("Cancelled %d reminders for appointment %s", n, appt.ID)
		}
	}

	if rescheduled && appt.Status == StatusScheduled {
		if err := s.replanReminders(ctx, appt); err != nil {
			log.Printf("Failed to replan reminders for appointment %s: %v", appt.ID, err)
		}
	}

	eventType := "appointment.updated"
	if appt.Status == StatusCancelled {
		eventType = "appointment.cancelled"
	}
	s.publish(ctx, eventType, appt, map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"status":         appt.Status,
		"rescheduled":    rescheduled,
	})

	return appt, nil
}

// Get returns one appointment
func (s *Service) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	return s.store.Get(ctx, id)
}

// List lists appointments with filters
func (s *Service) List(ctx context.Context, filter ListAppointmentsFilter) ([]Appointment, int, error) {
	return s.store.List(ctx, filter)
}

// Assess runs the risk pipeline for one appointment. Never fails; missing
// history degrades to the documented defaults.
func (s *Service) Assess(ctx context.Context, id types.ID) (risk.Assessment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return risk.Assessment{}, err
	}
	return s.assess(ctx, appt), nil
}

// Predictions assesses every upcoming scheduled appointment.
func (s *Service) Predictions(ctx context.Context, now time.Time) ([]NoShowPrediction, error) {
	upcoming, err := s.store.UpcomingScheduled(ctx, now, 0)
	if err != nil {
		return nil, err
	}

	predictions := make([]NoShowPrediction, 0, len(upcoming))
	for i := range upcoming {
		appt := &upcoming[i]
		assessment := s.assess(ctx, appt)

		name := ""
		if p, err := s.patients.Get(ctx, appt.PatientID); err == nil {
			name = p.Name
		}

		predictions = append(predictions, NoShowPrediction{
			AppointmentID:      appt.ID,
			PatientName:        name,
			ScheduledTime:      appt.ScheduledTime,
			NoShowProbability:  assessment.Probability,
			RiskLevel:          string(assessment.Tier),
			RecommendedActions: assessment.RecommendedActions,
		})
	}

	return predictions, nil
}

// Dashboard summarizes clinic activity, layering the model-derived
// high-risk count onto the stored aggregates.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (DashboardStats, error) {
	counts, err := s.store.DashboardCounts(ctx, now)
	if err != nil {
		return DashboardStats{}, err
	}

	noShowRate := 0.0
	if counts.RecentOutcomes > 0 {
		noShowRate = float64(counts.RecentNoShows) / float64(counts.RecentOutcomes) * 100
	}

	highRisk := 0
	if predictions, err := s.Predictions(ctx, now); err == nil {
		for _, p := range predictions {
			if p.RiskLevel == string(risk.TierHigh) {
				highRisk++
			}
		}
	}

	return DashboardStats{
		TotalAppointments:    counts.Total,
		UpcomingAppointments: counts.Upcoming,
		NoShowRate:           math.Round(noShowRate*100) / 100,
		TotalPatients:        counts.Patients,
		HighRiskAppointments: highRisk,
	}, nil
}

// TrainingSamples assembles labeled samples from recorded outcomes, the
// dataset behind a real (non-synthetic) training run. Implements the risk
// handler's sample source.
func (s *Service) TrainingSamples(ctx context.Context) ([]risk.Sample, error) {
	outcomes, err := s.store.Outcomes(ctx, 0)
	if err != nil {
		return nil, err
	}

	histories := make(map[types.ID]risk.History)
	samples := make([]risk.Sample, 0, len(outcomes))

	for i := range outcomes {
		appt := &outcomes[i]

		history, ok := histories[appt.PatientID]
		if !ok {
			history = s.history(ctx, appt.PatientID)
			histories[appt.PatientID] = history
		}

		samples = append(samples, s.riskSvc.BuildSample(
			riskInput(appt), history, appt.Status == StatusNoShow,
		))
	}

	return samples, nil
}

// attendanceWindow bounds how far a HIS visit time may drift from the
// booked slot and still resolve to that booking.
const attendanceWindow = 12 * time.Hour

// RecordAttendance applies a visit outcome reported by the HIS: the
// booking nearest the visit time is marked completed or no-show. Visits
// that match no open booking are ignored, walk-ins are not tracked here.
func (s *Service) RecordAttendance(ctx context.Context, mrn types.MRN, visitTime time.Time, attended bool) (*Appointment, error) {
	p, err := s.patients.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}

	from := visitTime.Add(-attendanceWindow)
	to := visitTime.Add(attendanceWindow)
	candidates, _, err := s.store.List(ctx, ListAppointmentsFilter{
		PatientID: &p.ID,
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return nil, err
	}

	var match *Appointment
	for i := range candidates {
		appt := &candidates[i]
		if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
			continue
		}
		if match == nil || absDuration(appt.ScheduledTime.Sub(visitTime)) < absDuration(match.ScheduledTime.Sub(visitTime)) {
			match = appt
		}
	}
	if match == nil {
		return nil, errors.NotFound("appointment", "for visit at "+visitTime.Format(time.RFC3339))
	}

	fromStatus := match.Status
	if attended {
		err = match.Complete()
	} else {
		err = match.MarkNoShow()
	}
	if err != nil {
		return nil, errors.Conflict(err.Error())
	}

	if err := s.store.Update(ctx, match); err != nil {
		return nil, err
	}

	metrics.RecordAppointmentStatusChange(string(fromStatus), string(match.Status))

	// Any reminders still pending for a resolved visit are moot.
	if n, err := s.reminders.CancelByAppointment(ctx, match.ID); err != nil {
		log.Printf("Failed to cancel reminders for appointment %s: %v", match.ID, err)
	} else if n > 0 {
		log.Printf("Cancelled %d reminders for resolved appointment %s", n, match.ID)
	}

	s.publish(ctx, "appointment.attendance_recorded", match, map[string]any{
		"appointment_id": match.ID,
		"patient_id":     match.PatientID,
		"status":         match.Status,
		"source":         "his",
	})

	return match, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Resolve implements the scheduler's contact lookup: who a due reminder
// goes to. A missing appointment or patient surfaces as not-found, which
// the sweep records as a failed delivery.
func (s *Service) Resolve(ctx context.Context, appointmentID types.ID) (*scheduler.Contact, error) {
	appt, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	p, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}

	return &scheduler.Contact{
		PatientName:     p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		AppointmentTime: appt.ScheduledTime,
	}, nil
}

// assess builds features and predicts. History lookup failures fall back
// to the documented defaults rather than blocking the assessment.
func (s *Service) assess(ctx context.Context, appt *Appointment) risk.Assessment {
	return s.riskSvc.Assess(riskInput(appt), s.history(ctx, appt.PatientID))
}

func (s *Service) history(ctx context.Context, patientID types.ID) risk.History {
	history, err := s.store.History(ctx, patientID)
	if err != nil {
		return risk.DefaultHistory()
	}
	return history
}

func (s *Service) planReminders(ctx context.Context, appt *Appointment, p *patient.Patient, c *clinic.Clinic, assessment risk.Assessment) ([]*remdomain.ReminderEvent, error) {
	planned, err := s.planner.Plan(remdomain.AppointmentDetails{
		AppointmentID:   appt.ID,
		ScheduledTime:   appt.ScheduledTime,
		AppointmentType: appt.AppointmentType,
		PatientName:     p.Name,
		ClinicName:      c.Name,
		ClinicPhone:     c.Phone,
	}, string(assessment.Tier))
	if err != nil {
		return nil, err
	}

	if err := s.reminders.SaveAll(ctx, planned); err != nil {
		return nil, err
	}

	for _, e := range planned {
		metrics.RecordReminderScheduled(string(e.Channel), string(e.Category))
	}

	return planned, nil
}

func (s *Service) replanReminders(ctx context.Context, appt *Appointment) error {
	p, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return err
	}
	c, err := s.clinics.Get(ctx, appt.ClinicID)
	if err != nil {
		return err
	}

	_, err = s.planReminders(ctx, appt, p, c, s.assess(ctx, appt))
	return err
}

func (s *Service) publish(ctx context.Context, eventType string, appt *Appointment, data map[string]any) {
	if s.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "appointment", data)
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event for appointment %s: %v", eventType, appt.ID, err)
	}
}

// riskInput is the read-only view of a booking the feature extractor sees.
func riskInput(appt *Appointment) risk.Input {
	return risk.Input{
		ScheduledTime:    appt.ScheduledTime,
		CreatedTime:      appt.CreatedAt,
		AppointmentType:  appt.AppointmentType,
		WeatherCondition: appt.WeatherCondition,
	}
}
