package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brukd/attend/internal/appointment"
	"github.com/brukd/attend/internal/clinic"
	"github.com/brukd/attend/internal/dispatch"
	"github.com/brukd/attend/internal/patient"
	remdomain "github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/reminder/infrastructure"
	"github.com/brukd/attend/internal/risk"
	"github.com/brukd/attend/internal/scheduler"
	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
)

// TestBookingToDeliveryWorkflow walks the whole pipeline: book an
// appointment, assess its risk, plan the reminder cadence, then let the
// scheduler sweep due reminders into the dispatch providers.
func TestBookingToDeliveryWorkflow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// 1. Book an appointment one hour out. Every cadence slot is already
	// in the past, so all reminders are due immediately.
	result, err := env.booking.Book(ctx, appointment.CreateAppointmentRequest{
		PatientID:       env.patient.ID,
		ClinicID:        env.clinic.ID,
		ScheduledTime:   time.Now().Add(time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if result.Appointment.Status != appointment.StatusScheduled {
		t.Errorf("New appointment should be scheduled, got %s", result.Appointment.Status)
	}
	if len(result.Reminders) != 4 {
		t.Fatalf("Expected 4 planned reminders, got %d", len(result.Reminders))
	}
	if result.Risk.Probability <= 0 || result.Risk.Probability >= 1 {
		t.Errorf("Risk probability out of range: %f", result.Risk.Probability)
	}

	// 2. Sweep due reminders.
	processed, err := env.scheduler.ProcessDue(ctx)
	if err != nil {
		t.Fatalf("ProcessDue failed: %v", err)
	}
	if processed != 4 {
		t.Errorf("Expected 4 reminders processed, got %d", processed)
	}

	// 3. The cadence is two emails and two SMS.
	if got := len(env.email.SentMessages()); got != 2 {
		t.Errorf("Expected 2 emails sent, got %d", got)
	}
	if got := len(env.sms.SentMessages()); got != 2 {
		t.Errorf("Expected 2 SMS sent, got %d", got)
	}
	for _, msg := range env.email.SentMessages() {
		if msg.To != env.patient.Email {
			t.Errorf("Email sent to %s, want %s", msg.To, env.patient.Email)
		}
	}

	// 4. Every reminder transitioned to sent.
	reminders, err := env.reminders.FindByAppointment(ctx, result.Appointment.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}
	for _, r := range reminders {
		if r.Status != remdomain.StatusSent {
			t.Errorf("Reminder %s should be sent, got %s", r.ID, r.Status)
		}
	}

	// 5. A second sweep finds nothing.
	processed, err = env.scheduler.ProcessDue(ctx)
	if err != nil {
		t.Fatalf("Second ProcessDue failed: %v", err)
	}
	if processed != 0 {
		t.Errorf("Second sweep should process 0 reminders, got %d", processed)
	}
}

// TestCancellationStopsReminders verifies that cancelling a booking
// cancels its pending reminders before the sweep reaches them.
func TestCancellationStopsReminders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	result, err := env.booking.Book(ctx, appointment.CreateAppointmentRequest{
		PatientID:       env.patient.ID,
		ClinicID:        env.clinic.ID,
		ScheduledTime:   time.Now().Add(time.Hour),
		AppointmentType: "consultation",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	cancelled := appointment.StatusCancelled
	if _, err := env.booking.Update(ctx, result.Appointment.ID, appointment.UpdateAppointmentRequest{
		Status: &cancelled,
	}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	processed, err := env.scheduler.ProcessDue(ctx)
	if err != nil {
		t.Fatalf("ProcessDue failed: %v", err)
	}
	if processed != 0 {
		t.Errorf("Cancelled booking should leave nothing to process, got %d", processed)
	}
	if got := len(env.email.SentMessages()) + len(env.sms.SentMessages()); got != 0 {
		t.Errorf("No messages should be sent for a cancelled booking, got %d", got)
	}

	reminders, err := env.reminders.FindByAppointment(ctx, result.Appointment.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}
	for _, r := range reminders {
		if r.Status != remdomain.StatusCancelled {
			t.Errorf("Reminder %s should be cancelled, got %s", r.ID, r.Status)
		}
	}
}

// TestOutcomeFeedsTrainingData verifies that recorded visit outcomes
// become labeled samples and that a model trained on them changes the
// assessment away from the fallback.
func TestOutcomeFeedsTrainingData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Book several appointments and record outcomes via the HIS path.
	times := []time.Time{
		time.Now().Add(time.Hour),
		time.Now().Add(2 * time.Hour),
		time.Now().Add(3 * time.Hour),
	}
	for i, at := range times {
		result, err := env.booking.Book(ctx, appointment.CreateAppointmentRequest{
			PatientID:       env.patient.ID,
			ClinicID:        env.clinic.ID,
			ScheduledTime:   at,
			AppointmentType: "checkup",
		})
		if err != nil {
			t.Fatalf("Book %d failed: %v", i, err)
		}

		attended := i != 2 // last one is a no-show
		appt, err := env.booking.RecordAttendance(ctx, env.patient.MRN, at, attended)
		if err != nil {
			t.Fatalf("RecordAttendance %d failed: %v", i, err)
		}
		want := appointment.StatusCompleted
		if !attended {
			want = appointment.StatusNoShow
		}
		if appt.Status != want {
			t.Errorf("Outcome %d: status %s, want %s", i, appt.Status, want)
		}
		if appt.ID != result.Appointment.ID {
			t.Errorf("Outcome %d matched appointment %s, want %s", i, appt.ID, result.Appointment.ID)
		}
	}

	samples, err := env.booking.TrainingSamples(ctx)
	if err != nil {
		t.Fatalf("TrainingSamples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}

	noShows := 0
	for _, s := range samples {
		if s.Label == 1 {
			noShows++
		}
	}
	if noShows != 1 {
		t.Errorf("Expected 1 no-show label, got %d", noShows)
	}

	// A trained model replaces the fallback probability.
	env.risk.TrainSynthetic(300)
	if !env.risk.Loaded() {
		t.Fatal("Model should be loaded after training")
	}

	result, err := env.booking.Book(ctx, appointment.CreateAppointmentRequest{
		PatientID:       env.patient.ID,
		ClinicID:        env.clinic.ID,
		ScheduledTime:   time.Now().Add(48 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book after training failed: %v", err)
	}
	if result.Risk.Probability <= 0 || result.Risk.Probability >= 1 {
		t.Errorf("Trained probability out of range: %f", result.Risk.Probability)
	}
}

// --- Test environment ---

type testEnv struct {
	booking   *appointment.Service
	scheduler *scheduler.Service
	reminders *infrastructure.MemoryRepository
	risk      *risk.Service
	email     *dispatch.MockEmailProvider
	sms       *dispatch.MockSMSProvider
	patient   *patient.Patient
	clinic    *clinic.Clinic
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	p := &patient.Patient{
		ID:    types.NewID(),
		MRN:   types.MRN("1234567897"),
		Name:  "Ana Petrova",
		Email: "ana@example.com",
		Phone: "555-123-4567",
	}
	c := &clinic.Clinic{
		ID:   types.NewID(),
		Name: "Downtown Clinic",
	}

	riskSvc := risk.NewService(config.ModelConfig{
		Path:             filepath.Join(t.TempDir(), "model.json"),
		SyntheticSamples: 200,
		AppointmentTypes: []string{"checkup", "follow_up", "consultation"},
	})

	reminderRepo := infrastructure.NewMemoryRepository()
	email := dispatch.NewMockEmailProvider()
	sms := dispatch.NewMockSMSProvider()
	dispatchSvc := dispatch.NewService(email, sms, config.DispatchConfig{
		EmailPerMinute: 600,
		SMSPerMinute:   600,
	})

	store := newMemStore()
	booking := appointment.NewService(store, &staticPatients{p}, &staticClinics{c}, riskSvc, reminderRepo, nil, nil)
	schedulerSvc := scheduler.NewService(reminderRepo, booking, dispatchSvc, nil, time.Minute)

	return &testEnv{
		booking:   booking,
		scheduler: schedulerSvc,
		reminders: reminderRepo,
		risk:      riskSvc,
		email:     email,
		sms:       sms,
		patient:   p,
		clinic:    c,
	}
}

// memStore is an in-memory appointment store for cross-package tests.
type memStore struct {
	appointments map[types.ID]*appointment.Appointment
}

func newMemStore() *memStore {
	return &memStore{appointments: make(map[types.ID]*appointment.Appointment)}
}

func (s *memStore) Create(ctx context.Context, a *appointment.Appointment) error {
	stored := *a
	s.appointments[a.ID] = &stored
	return nil
}

func (s *memStore) Get(ctx context.Context, id types.ID) (*appointment.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, errors.NotFound("appointment", string(id))
	}
	copied := *a
	return &copied, nil
}

func (s *memStore) Update(ctx context.Context, a *appointment.Appointment) error {
	if _, ok := s.appointments[a.ID]; !ok {
		return errors.NotFound("appointment", string(a.ID))
	}
	stored := *a
	s.appointments[a.ID] = &stored
	return nil
}

func (s *memStore) List(ctx context.Context, filter appointment.ListAppointmentsFilter) ([]appointment.Appointment, int, error) {
	var result []appointment.Appointment
	for _, a := range s.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.ClinicID != nil && a.ClinicID != *filter.ClinicID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.From != nil && a.ScheduledTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.ScheduledTime.After(*filter.To) {
			continue
		}
		result = append(result, *a)
	}
	return result, len(result), nil
}

func (s *memStore) UpcomingScheduled(ctx context.Context, now time.Time, limit int) ([]appointment.Appointment, error) {
	var result []appointment.Appointment
	for _, a := range s.appointments {
		if a.IsUpcoming(now) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (s *memStore) History(ctx context.Context, patientID types.ID) (risk.History, error) {
	h := risk.DefaultHistory()
	for _, a := range s.appointments {
		if a.PatientID == patientID && a.Status == appointment.StatusNoShow {
			h.PreviousNoShows++
		}
	}
	return h, nil
}

func (s *memStore) Outcomes(ctx context.Context, limit int) ([]appointment.Appointment, error) {
	var result []appointment.Appointment
	for _, a := range s.appointments {
		if a.Status == appointment.StatusCompleted || a.Status == appointment.StatusNoShow {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (s *memStore) DashboardCounts(ctx context.Context, now time.Time) (appointment.DashboardCounts, error) {
	counts := appointment.DashboardCounts{Total: len(s.appointments), Patients: 1}
	for _, a := range s.appointments {
		if a.IsUpcoming(now) {
			counts.Upcoming++
		}
		switch a.Status {
		case appointment.StatusCompleted:
			counts.RecentOutcomes++
		case appointment.StatusNoShow:
			counts.RecentOutcomes++
			counts.RecentNoShows++
		}
	}
	return counts, nil
}

type staticPatients struct {
	patient *patient.Patient
}

func (d *staticPatients) Get(ctx context.Context, id types.ID) (*patient.Patient, error) {
	if d.patient.ID != id {
		return nil, errors.NotFound("patient", string(id))
	}
	return d.patient, nil
}

func (d *staticPatients) GetByMRN(ctx context.Context, mrn types.MRN) (*patient.Patient, error) {
	if d.patient.MRN != mrn {
		return nil, errors.NotFound("patient", string(mrn))
	}
	return d.patient, nil
}

type staticClinics struct {
	clinic *clinic.Clinic
}

func (d *staticClinics) Get(ctx context.Context, id types.ID) (*clinic.Clinic, error) {
	if d.clinic.ID != id {
		return nil, errors.NotFound("clinic", string(id))
	}
	return d.clinic, nil
}
