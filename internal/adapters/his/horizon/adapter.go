// Package horizon implements the HIS adapter against a Horizon SQL Server
// schema. Attendance is discovered by polling: visits whose check-in or
// no-show timestamp moved past the last poll mark become events.
package horizon

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/brukd/attend/internal/adapters/his"
)

// Adapter implements his.Adapter for Horizon HIS
type Adapter struct {
	db     *sql.DB
	config Config

	attendanceChan chan his.AttendanceEvent

	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// Config holds Horizon adapter configuration
type Config struct {
	his.Config

	// Horizon-specific settings
	PatientTable string `json:"patient_table"`
	VisitTable   string `json:"visit_table"`
}

// DefaultHorizonConfig returns default Horizon configuration
func DefaultHorizonConfig() Config {
	return Config{
		Config:       his.DefaultConfig(),
		PatientTable: "dbo.Patients",
		VisitTable:   "dbo.Visits",
	}
}

// New creates a new Horizon adapter
func New(cfg Config) (*Adapter, error) {
	return &Adapter{
		config:         cfg,
		attendanceChan: make(chan his.AttendanceEvent, cfg.EventBufferSize),
	}, nil
}

// Start initializes the database connection and starts polling
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)

	if a.config.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now().Add(-a.config.PollInterval)

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	return nil
}

// Stop stops the adapter and closes connections
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(a.attendanceChan)

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks database connectivity
func (a *Adapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("adapter not running")
	}

	return a.db.PingContext(ctx)
}

// SourceSystem returns the source system name
func (a *Adapter) SourceSystem() string {
	return "horizon"
}

// IsConnected returns connection status
func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running && a.db != nil
}

// FetchVisitOutcomes retrieves visit outcomes for a patient in a window
func (a *Adapter) FetchVisitOutcomes(ctx context.Context, mrn string, from, to time.Time) ([]his.VisitOutcome, error) {
	if !a.IsConnected() {
		return nil, fmt.Errorf("adapter not connected")
	}

	query := fmt.Sprintf(`
		SELECT
			v.VisitID,
			p.MRN,
			v.ScheduledTime,
			v.Department,
			v.ProviderName,
			v.CheckinTime,
			v.CheckoutTime,
			v.NoShowTime
		FROM %s v
		INNER JOIN %s p ON v.PatientID = p.PatientID
		WHERE p.MRN = @mrn
		  AND v.ScheduledTime >= @from
		  AND v.ScheduledTime < @to
		  AND (v.CheckinTime IS NOT NULL OR v.NoShowTime IS NOT NULL)
		ORDER BY v.ScheduledTime ASC
	`, a.config.VisitTable, a.config.PatientTable)

	rows, err := a.db.QueryContext(ctx, query,
		sql.Named("mrn", mrn),
		sql.Named("from", from),
		sql.Named("to", to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch visit outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []his.VisitOutcome
	for rows.Next() {
		outcome, err := a.scanOutcome(rows)
		if err != nil {
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}

// SubscribeAttendance registers a handler for visit outcome events
func (a *Adapter) SubscribeAttendance(ctx context.Context, handler his.AttendanceHandler) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-a.attendanceChan:
				if !ok {
					return
				}
				handler(event)
			}
		}
	}()
	return nil
}

// pollLoop periodically polls for newly resolved visits
func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			lastPoll := a.lastPoll
			a.lastPoll = time.Now()
			a.mu.Unlock()

			if err := a.pollAttendance(ctx, lastPoll); err != nil {
				// Log error but continue
				fmt.Printf("Error polling attendance: %v\n", err)
			}
		}
	}
}

// pollAttendance checks for visits resolved since lastPoll. A visit is
// resolved when the HIS stamps either a check-in or a no-show time.
func (a *Adapter) pollAttendance(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
		SELECT
			v.VisitID,
			p.MRN,
			p.FirstName + ' ' + p.LastName as PatientName,
			v.ScheduledTime,
			v.Department,
			v.CheckinTime,
			v.NoShowTime
		FROM %s v
		INNER JOIN %s p ON v.PatientID = p.PatientID
		WHERE (v.CheckinTime > @since OR v.NoShowTime > @since)
		ORDER BY v.ScheduledTime ASC
	`, a.config.VisitTable, a.config.PatientTable)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var event his.AttendanceEvent
		var department sql.NullString
		var checkin, noShow sql.NullTime

		err := rows.Scan(
			&event.EventID,
			&event.PatientMRN,
			&event.PatientName,
			&event.VisitTime,
			&department,
			&checkin,
			&noShow,
		)
		if err != nil {
			continue
		}

		if department.Valid {
			event.Department = department.String
		}

		event.Attended = checkin.Valid
		if checkin.Valid {
			event.Timestamp = checkin.Time
		} else if noShow.Valid {
			event.Timestamp = noShow.Time
		}

		event.SourceSystem = a.SourceSystem()

		select {
		case a.attendanceChan <- event:
		default:
			// Channel full, skip event
		}
	}

	return rows.Err()
}

func (a *Adapter) scanOutcome(rows *sql.Rows) (his.VisitOutcome, error) {
	var outcome his.VisitOutcome
	var department, provider sql.NullString
	var checkin, checkout, noShow sql.NullTime

	err := rows.Scan(
		&outcome.VisitID,
		&outcome.PatientMRN,
		&outcome.VisitTime,
		&department,
		&provider,
		&checkin,
		&checkout,
		&noShow,
	)
	if err != nil {
		return outcome, err
	}

	if department.Valid {
		outcome.Department = department.String
	}
	if provider.Valid {
		outcome.Provider = provider.String
	}
	if checkin.Valid {
		outcome.CheckinTime = &checkin.Time
		outcome.Attended = true
	}
	if checkout.Valid {
		outcome.CheckoutTime = &checkout.Time
	}

	outcome.SourceSystem = a.SourceSystem()

	return outcome, nil
}

var _ his.Adapter = (*Adapter)(nil)
