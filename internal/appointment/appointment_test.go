package appointment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brukd/attend/internal/clinic"
	"github.com/brukd/attend/internal/patient"
	remdomain "github.com/brukd/attend/internal/reminder/domain"
	"github.com/brukd/attend/internal/reminder/infrastructure"
	"github.com/brukd/attend/internal/risk"
	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/types"
)

// --- Model tests ---

func TestAppointmentLifecycle(t *testing.T) {
	appt, err := NewAppointment(types.NewID(), types.NewID(), time.Now().Add(48*time.Hour), "checkup", 0, "")
	if err != nil {
		t.Fatalf("NewAppointment failed: %v", err)
	}

	if appt.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", appt.Status)
	}
	if appt.DurationMinutes != 60 {
		t.Errorf("expected default duration 60, got %d", appt.DurationMinutes)
	}

	if err := appt.Confirm(); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if err := appt.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !appt.Status.IsTerminal() {
		t.Error("completed should be terminal")
	}
	if err := appt.Cancel(); err == nil {
		t.Error("expected error cancelling a completed appointment")
	}
}

func TestAppointmentTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    AppointmentStatus
		to      AppointmentStatus
		wantErr bool
	}{
		{"scheduled to confirmed", StatusScheduled, StatusConfirmed, false},
		{"scheduled to completed", StatusScheduled, StatusCompleted, false},
		{"scheduled to no-show", StatusScheduled, StatusNoShow, false},
		{"scheduled to cancelled", StatusScheduled, StatusCancelled, false},
		{"confirmed to completed", StatusConfirmed, StatusCompleted, false},
		{"completed to no-show", StatusCompleted, StatusNoShow, true},
		{"cancelled to confirmed", StatusCancelled, StatusConfirmed, true},
		{"no-show to scheduled", StatusNoShow, StatusScheduled, true},
		{"scheduled to scheduled", StatusScheduled, StatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appt, err := NewAppointment(types.NewID(), types.NewID(), time.Now().Add(time.Hour), "checkup", 30, "")
			if err != nil {
				t.Fatalf("NewAppointment failed: %v", err)
			}
			appt.Status = tt.from

			err = appt.TransitionTo(tt.to)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %s -> %s", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestRescheduleResetsStatus(t *testing.T) {
	appt, err := NewAppointment(types.NewID(), types.NewID(), time.Now().Add(24*time.Hour), "checkup", 30, "")
	if err != nil {
		t.Fatalf("NewAppointment failed: %v", err)
	}
	if err := appt.Confirm(); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	newTime := time.Now().Add(96 * time.Hour)
	if err := appt.Reschedule(newTime); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	if appt.Status != StatusScheduled {
		t.Errorf("expected scheduled after reschedule, got %s", appt.Status)
	}
	if !appt.ScheduledTime.Equal(newTime.UTC()) {
		t.Errorf("expected scheduled time %v, got %v", newTime.UTC(), appt.ScheduledTime)
	}
}

// --- Service test fixtures ---

type stubStore struct {
	appointments map[types.ID]*Appointment
	history      risk.History
	historyErr   error
	counts       DashboardCounts
}

func newStubStore() *stubStore {
	return &stubStore{
		appointments: make(map[types.ID]*Appointment),
		history:      risk.DefaultHistory(),
	}
}

func (s *stubStore) Create(ctx context.Context, a *Appointment) error {
	copied := *a
	s.appointments[a.ID] = &copied
	return nil
}

func (s *stubStore) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return nil, errors.NotFound("appointment", id.String())
	}
	copied := *a
	return &copied, nil
}

func (s *stubStore) Update(ctx context.Context, a *Appointment) error {
	if _, ok := s.appointments[a.ID]; !ok {
		return errors.NotFound("appointment", a.ID.String())
	}
	copied := *a
	s.appointments[a.ID] = &copied
	return nil
}

func (s *stubStore) List(ctx context.Context, filter ListAppointmentsFilter) ([]Appointment, int, error) {
	out := make([]Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
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
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (s *stubStore) UpcomingScheduled(ctx context.Context, now time.Time, limit int) ([]Appointment, error) {
	out := make([]Appointment, 0)
	for _, a := range s.appointments {
		if a.IsUpcoming(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) History(ctx context.Context, patientID types.ID) (risk.History, error) {
	if s.historyErr != nil {
		return risk.History{}, s.historyErr
	}
	return s.history, nil
}

func (s *stubStore) Outcomes(ctx context.Context, limit int) ([]Appointment, error) {
	out := make([]Appointment, 0)
	for _, a := range s.appointments {
		if a.Status.IsOutcome() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) DashboardCounts(ctx context.Context, now time.Time) (DashboardCounts, error) {
	return s.counts, nil
}

type stubPatients struct {
	patients map[types.ID]*patient.Patient
}

func (s *stubPatients) Get(ctx context.Context, id types.ID) (*patient.Patient, error) {
	p, ok := s.patients[id]
	if !ok {
		return nil, errors.NotFound("patient", id.String())
	}
	return p, nil
}

func (s *stubPatients) GetByMRN(ctx context.Context, mrn types.MRN) (*patient.Patient, error) {
	for _, p := range s.patients {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, errors.NotFound("patient", string(mrn))
}

type stubClinics struct {
	clinics map[types.ID]*clinic.Clinic
}

func (s *stubClinics) Get(ctx context.Context, id types.ID) (*clinic.Clinic, error) {
	c, ok := s.clinics[id]
	if !ok {
		return nil, errors.NotFound("clinic", id.String())
	}
	return c, nil
}

type stubWeather struct {
	condition string
}

func (s *stubWeather) Current(ctx context.Context) string { return s.condition }

type fixture struct {
	service   *Service
	store     *stubStore
	reminders *infrastructure.MemoryRepository
	patientID types.ID
	clinicID  types.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patientID := types.NewID()
	clinicID := types.NewID()

	store := newStubStore()
	reminders := infrastructure.NewMemoryRepository()

	riskSvc := risk.NewService(config.ModelConfig{
		Path:             t.TempDir() + "/model.json",
		SyntheticSamples: 200,
		AppointmentTypes: []string{"checkup", "follow_up", "consultation"},
	})

	patients := &stubPatients{patients: map[types.ID]*patient.Patient{
		patientID: {ID: patientID, MRN: types.MRN("1234567897"), Name: "Ana Petrova", Email: "ana@example.com", Phone: "555-123-4567"},
	}}
	clinics := &stubClinics{clinics: map[types.ID]*clinic.Clinic{
		clinicID: {ID: clinicID, Name: "Downtown Clinic", Phone: "555-000-1111"},
	}}

	service := NewService(store, patients, clinics, riskSvc, reminders, &stubWeather{condition: "rain"}, nil)

	return &fixture{
		service:   service,
		store:     store,
		reminders: reminders,
		patientID: patientID,
		clinicID:  clinicID,
	}
}

// --- Service tests ---

func TestBookPlansReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(96 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if result.Appointment.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", result.Appointment.Status)
	}
	if result.Appointment.WeatherCondition != "rain" {
		t.Errorf("expected weather snapshot rain, got %q", result.Appointment.WeatherCondition)
	}

	// No artifact is loaded, so the assessment is the fallback.
	if result.Risk.Probability != risk.FallbackProbability {
		t.Errorf("expected fallback probability %.2f, got %.2f", risk.FallbackProbability, result.Risk.Probability)
	}

	if len(result.Reminders) != 4 {
		t.Fatalf("expected 4 planned reminders, got %d", len(result.Reminders))
	}

	saved, err := f.reminders.FindByAppointment(ctx, result.Appointment.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}
	if len(saved) != 4 {
		t.Errorf("expected 4 persisted reminders, got %d", len(saved))
	}
	for _, e := range saved {
		if e.Status != remdomain.StatusScheduled {
			t.Errorf("expected scheduled reminder, got %s", e.Status)
		}
	}
}

func TestBookUnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Book(context.Background(), CreateAppointmentRequest{
		PatientID:       types.NewID(),
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(48 * time.Hour),
		AppointmentType: "checkup",
	})
	if !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestBookFallbackOnHistoryError(t *testing.T) {
	f := newFixture(t)
	f.store.historyErr = errors.Internal(fmt.Errorf("history query failed"))

	result, err := f.service.Book(context.Background(), CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(48 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if result.Risk.Probability != risk.FallbackProbability {
		t.Errorf("history failure should not block booking, got probability %.2f", result.Risk.Probability)
	}
}

func TestUpdateCancelledCancelsReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(96 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	cancelled := StatusCancelled
	appt, err := f.service.Update(ctx, result.Appointment.ID, UpdateAppointmentRequest{Status: &cancelled})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if appt.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", appt.Status)
	}

	saved, err := f.reminders.FindByAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}
	for _, e := range saved {
		if e.Status != remdomain.StatusCancelled {
			t.Errorf("expected cancelled reminder, got %s", e.Status)
		}
	}
}

func TestUpdateRescheduleReplansReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(96 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	newTime := time.Now().Add(200 * time.Hour)
	appt, err := f.service.Update(ctx, result.Appointment.ID, UpdateAppointmentRequest{ScheduledTime: &newTime})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !appt.ScheduledTime.Equal(newTime.UTC()) {
		t.Errorf("expected scheduled time %v, got %v", newTime.UTC(), appt.ScheduledTime)
	}

	saved, err := f.reminders.FindByAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}

	// The original cadence is cancelled and a fresh one planned against
	// the new slot.
	var scheduled, cancelled int
	for _, e := range saved {
		switch e.Status {
		case remdomain.StatusScheduled:
			scheduled++
			if !e.ScheduledTime.Before(newTime.UTC()) {
				t.Errorf("reminder slot %v not before appointment %v", e.ScheduledTime, newTime.UTC())
			}
		case remdomain.StatusCancelled:
			cancelled++
		}
	}
	if scheduled != 4 {
		t.Errorf("expected 4 scheduled reminders after replan, got %d", scheduled)
	}
	if cancelled != 4 {
		t.Errorf("expected 4 cancelled reminders after replan, got %d", cancelled)
	}
}

func TestUpdateTerminalConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(48 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	completed := StatusCompleted
	if _, err := f.service.Update(ctx, result.Appointment.ID, UpdateAppointmentRequest{Status: &completed}); err != nil {
		t.Fatalf("Update to completed failed: %v", err)
	}

	noShow := StatusNoShow
	_, err = f.service.Update(ctx, result.Appointment.ID, UpdateAppointmentRequest{Status: &noShow})
	if err == nil {
		t.Fatal("expected conflict on terminal transition")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.HTTPStatus != 409 {
		t.Errorf("expected 409 conflict, got %v", err)
	}
}

func TestPredictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Book(ctx, CreateAppointmentRequest{
			PatientID:       f.patientID,
			ClinicID:        f.clinicID,
			ScheduledTime:   time.Now().Add(time.Duration(24*(i+1)) * time.Hour),
			AppointmentType: "checkup",
		})
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
	}

	predictions, err := f.service.Predictions(ctx, time.Now())
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	if len(predictions) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(predictions))
	}
	for _, p := range predictions {
		if p.PatientName != "Ana Petrova" {
			t.Errorf("expected patient name resolved, got %q", p.PatientName)
		}
		if p.NoShowProbability < 0 || p.NoShowProbability > 1 {
			t.Errorf("probability out of range: %f", p.NoShowProbability)
		}
		if p.RiskLevel == "" {
			t.Error("expected a risk level")
		}
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.store.counts = DashboardCounts{
		Total:          120,
		Upcoming:       15,
		RecentOutcomes: 40,
		RecentNoShows:  6,
		Patients:       80,
	}

	stats, err := f.service.Dashboard(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}

	if stats.TotalAppointments != 120 {
		t.Errorf("expected 120 total, got %d", stats.TotalAppointments)
	}
	if stats.UpcomingAppointments != 15 {
		t.Errorf("expected 15 upcoming, got %d", stats.UpcomingAppointments)
	}
	if stats.NoShowRate != 15.0 {
		t.Errorf("expected no-show rate 15.0, got %f", stats.NoShowRate)
	}
	if stats.TotalPatients != 80 {
		t.Errorf("expected 80 patients, got %d", stats.TotalPatients)
	}
}

func TestResolveContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   time.Now().Add(48 * time.Hour),
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	contact, err := f.service.Resolve(ctx, result.Appointment.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if contact.PatientName != "Ana Petrova" {
		t.Errorf("expected patient name, got %q", contact.PatientName)
	}
	if contact.Email != "ana@example.com" || contact.Phone != "555-123-4567" {
		t.Errorf("unexpected contact details: %+v", contact)
	}

	if _, err := f.service.Resolve(ctx, types.NewID()); !errors.IsNotFound(err) {
		t.Errorf("expected not found for unknown appointment, got %v", err)
	}
}

func TestRecordAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot := time.Now().Add(48 * time.Hour)
	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   slot,
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// Check-in ten minutes after the booked slot resolves it.
	appt, err := f.service.RecordAttendance(ctx, types.MRN("1234567897"), slot.Add(10*time.Minute), true)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if appt.ID != result.Appointment.ID {
		t.Errorf("attendance resolved to the wrong booking")
	}
	if appt.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", appt.Status)
	}

	saved, err := f.reminders.FindByAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("FindByAppointment failed: %v", err)
	}
	for _, e := range saved {
		if e.Status == remdomain.StatusScheduled {
			t.Error("expected pending reminders cancelled after attendance")
		}
	}
}

func TestRecordAttendanceNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot := time.Now().Add(24 * time.Hour)
	result, err := f.service.Book(ctx, CreateAppointmentRequest{
		PatientID:       f.patientID,
		ClinicID:        f.clinicID,
		ScheduledTime:   slot,
		AppointmentType: "checkup",
	})
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	appt, err := f.service.RecordAttendance(ctx, types.MRN("1234567897"), slot, false)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if appt.ID != result.Appointment.ID {
		t.Errorf("attendance resolved to the wrong booking")
	}
	if appt.Status != StatusNoShow {
		t.Errorf("expected no_show, got %s", appt.Status)
	}
}

func TestRecordAttendanceNoMatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RecordAttendance(context.Background(), types.MRN("1234567897"), time.Now(), true)
	if !errors.IsNotFound(err) {
		t.Errorf("expected not found when no open booking matches, got %v", err)
	}
}

func TestTrainingSamples(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses := []AppointmentStatus{StatusCompleted, StatusNoShow, StatusCompleted}
	for _, status := range statuses {
		appt, err := NewAppointment(f.patientID, f.clinicID, time.Now().Add(-48*time.Hour), "checkup", 30, "")
		if err != nil {
			t.Fatalf("NewAppointment failed: %v", err)
		}
		appt.Status = status
		if err := f.store.Create(ctx, appt); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	samples, err := f.service.TrainingSamples(ctx)
	if err != nil {
		t.Fatalf("TrainingSamples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	var noShows int
	for _, s := range samples {
		if s.Label == 1 {
			noShows++
		}
	}
	if noShows != 1 {
		t.Errorf("expected 1 no-show label, got %d", noShows)
	}
}
