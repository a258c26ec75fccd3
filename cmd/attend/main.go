package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brukd/attend/internal/adapters/his"
	"github.com/brukd/attend/internal/adapters/his/horizon"
	"github.com/brukd/attend/internal/adapters/weather"
	"github.com/brukd/attend/internal/appointment"
	"github.com/brukd/attend/internal/audit"
	session "github.com/brukd/attend/internal/auth"
	"github.com/brukd/attend/internal/clinic"
	"github.com/brukd/attend/internal/dispatch"
	"github.com/brukd/attend/internal/patient"
	"github.com/brukd/attend/internal/privacy"
	reminderapi "github.com/brukd/attend/internal/reminder/api"
	"github.com/brukd/attend/internal/reminder/infrastructure"
	"github.com/brukd/attend/internal/risk"
	"github.com/brukd/attend/internal/scheduler"
	"github.com/brukd/attend/internal/shared/auth"
	"github.com/brukd/attend/internal/shared/config"
	"github.com/brukd/attend/internal/shared/database"
	"github.com/brukd/attend/internal/shared/errors"
	"github.com/brukd/attend/internal/shared/events"
	"github.com/brukd/attend/internal/shared/metrics"
	secmiddleware "github.com/brukd/attend/internal/shared/middleware"
	"github.com/brukd/attend/internal/shared/policy"
	"github.com/brukd/attend/internal/shared/types"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Bus    *events.Bus
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Initialize database (optional - skip if not available)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("Warning: Database not available: %v\n", err)
		fmt.Println("Running in limited mode without database...")
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	// Initialize event bus with KurrentDB (optional - skip if not available)
	bus, err := events.NewBus(ctx, cfg.KurrentDB)
	if err != nil {
		fmt.Printf("Warning: KurrentDB not available: %v\n", err)
		fmt.Println("Running without event streaming...")
	} else {
		app.Bus = bus
		defer bus.Close()
		fmt.Println("KurrentDB Event Bus initialized")
	}

	// Risk model: load the persisted artifact if one exists; assessments
	// fall back to the baseline probability until a model is trained.
	riskSvc := risk.NewService(cfg.Model)
	if err := riskSvc.Load(); err != nil {
		fmt.Printf("No model artifact loaded: %v\n", err)
		fmt.Println("Risk assessments will use the fallback probability until trained")
	} else {
		fmt.Printf("Risk model loaded from %s\n", cfg.Model.Path)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(secmiddleware.NewIPRateLimiter(100, 200).Middleware)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// Background services started below, stopped on shutdown
	var dispatchSvc *dispatch.Service
	var schedulerSvc *scheduler.Service
	var hisAdapter his.Adapter

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required for now in dev mode)
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		} else {
			// Development convenience: mint a signed token for any role
			issuer := session.NewTokenIssuer(cfg.Auth)
			r.Post("/auth/dev-token", devTokenHandler(issuer))
		}

		if app.DB != nil {
			patientRepo := patient.NewRepository(app.DB.Pool)
			clinicRepo := clinic.NewRepository(app.DB.Pool)
			appointmentRepo := appointment.NewRepository(app.DB.Pool)
			reminderRepo := infrastructure.NewPostgresRepository(app.DB.Pool)

			// Weather snapshots are optional; no source means bookings
			// store an unknown condition.
			var weatherSrc appointment.WeatherSource
			if cfg.Weather.Enabled {
				weatherSrc = weather.NewClient(cfg.Weather)
				fmt.Printf("Weather source enabled (%s)\n", cfg.Weather.URL)
			}

			bookingSvc := appointment.NewService(
				appointmentRepo, patientRepo, clinicRepo,
				riskSvc, reminderRepo, weatherSrc, app.Bus,
			)

			// Dispatch workers deliver reminder messages
			dispatchSvc = dispatch.NewService(
				dispatch.NewConsoleEmailProvider(cfg.Dispatch.FromEmail),
				dispatch.NewConsoleSMSProvider(cfg.Dispatch.FromPhone),
				cfg.Dispatch,
			)
			if err := dispatchSvc.Start(ctx); err != nil {
				fmt.Printf("Warning: Dispatch service failed to start: %v\n", err)
			}

			// The scheduler sweeps due reminders on an interval.
			// Start blocks for the lifetime of the loop, so it runs
			// on its own goroutine; Stop ends it during shutdown.
			schedulerSvc = scheduler.NewService(reminderRepo, bookingSvc, dispatchSvc, app.Bus, cfg.Reminder.Interval)
			if cfg.Reminder.Enabled {
				sweeper := schedulerSvc
				go func() {
					if err := sweeper.Start(ctx); err != nil {
						fmt.Printf("Reminder scheduler stopped: %v\n", err)
					}
				}()
				fmt.Printf("Reminder scheduler started (interval %s)\n", cfg.Reminder.Interval)
			}

			// OPA decisions gate PHI-bearing routes; the client
			// allows everything when OPA is disabled.
			opaClient := policy.NewClient(cfg.OPA)
			if cfg.OPA.Enabled {
				fmt.Printf("OPA policy engine enabled (%s)\n", cfg.OPA.URL)
			}

			// Patient module
			patientHandler := patient.NewHandler(patientRepo, app.Bus)
			r.With(policy.Middleware(opaClient, "patient")).
				Mount("/patients", patientHandler.Routes())

			// Clinic module
			clinicHandler := clinic.NewHandler(clinicRepo)
			r.Mount("/clinics", clinicHandler.Routes())

			// Appointment module + analytics
			appointmentHandler := appointment.NewHandler(bookingSvc)
			r.With(policy.Middleware(opaClient, "appointment")).
				Mount("/appointments", appointmentHandler.Routes())
			r.Mount("/analytics", appointmentHandler.AnalyticsRoutes())

			// Reminder module
			reminderHandler := reminderapi.NewHandler(reminderRepo, schedulerSvc)
			r.Mount("/reminders", reminderHandler.Routes())

			// Model operations, trained from stored outcomes when enough exist
			riskHandler := risk.NewHandler(riskSvc, bookingSvc, cfg.Model.RetrainThreshold, app.Bus)
			r.Mount("/risk", riskHandler.Routes())

			// Privacy module
			privacySvc := privacy.NewService(app.DB.Pool, patientRepo, appointmentRepo, cfg.Privacy)
			privacyHandler := privacy.NewHandler(privacySvc, app.Bus)
			r.Mount("/privacy", privacyHandler.Routes())

			// Audit module
			if cfg.Privacy.AuditEnabled {
				auditRepo := audit.NewRepository(app.DB.Pool)
				if err := auditRepo.Initialize(ctx); err != nil {
					fmt.Printf("Warning: Audit initialization failed: %v\n", err)
				}
				auditHandler := audit.NewHandler(auditRepo)
				r.Mount("/audit", auditHandler.Routes())

				if app.Bus != nil {
					auditSubscriber := audit.NewSubscriber(auditRepo, app.Bus)
					if err := auditSubscriber.Start(ctx); err != nil {
						fmt.Printf("Warning: Audit subscriber failed to start: %v\n", err)
					} else {
						fmt.Println("Audit subscriber started")
					}
				}
			}

			// HIS integration: attendance outcomes flow back from Horizon
			if cfg.HIS.Enabled {
				adapter, err := newHISAdapter(cfg.HIS)
				if err != nil {
					fmt.Printf("Warning: HIS adapter setup failed: %v\n", err)
				} else if err := adapter.Start(ctx); err != nil {
					fmt.Printf("Warning: HIS adapter failed to start: %v\n", err)
				} else {
					hisAdapter = adapter
					adapter.SubscribeAttendance(ctx, attendanceHandler(ctx, bookingSvc))
					fmt.Printf("HIS adapter started (%s at %s:%d)\n",
						adapter.SourceSystem(), cfg.HIS.Host, cfg.HIS.Port)
				}
			}
		} else {
			// Limited mode: answer API calls with 503 instead of 404
			r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
				appErr := errors.Unavailable("database")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(appErr.HTTPStatus)
				json.NewEncoder(w).Encode(map[string]any{
					"error": appErr.Message,
					"code":  appErr.Code,
				})
			})
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if schedulerSvc != nil {
			schedulerSvc.Stop()
		}
		if dispatchSvc != nil {
			dispatchSvc.Stop()
		}
		if hisAdapter != nil {
			if err := hisAdapter.Stop(ctx); err != nil {
				fmt.Printf("HIS adapter shutdown error: %v\n", err)
			}
		}

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Attend - Appointment & No-Show Platform")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Model Path:     %s\n", cfg.Model.Path)
	fmt.Printf("Reminders:      %v\n", cfg.Reminder.Enabled)
	fmt.Printf("HIS:            %v\n", cfg.HIS.Enabled)
	fmt.Printf("KurrentDB:      %s:%d\n", cfg.KurrentDB.Host, cfg.KurrentDB.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

// newHISAdapter builds the Horizon adapter from flat HIS settings
func newHISAdapter(cfg config.HISConfig) (his.Adapter, error) {
	hcfg := horizon.DefaultHorizonConfig()
	hcfg.Host = cfg.Host
	hcfg.Port = cfg.Port
	hcfg.Database = cfg.Database
	hcfg.User = cfg.Username
	hcfg.Password = cfg.Password
	if cfg.PollInterval > 0 {
		hcfg.PollInterval = cfg.PollInterval
	}

	return horizon.New(hcfg)
}

// attendanceHandler applies HIS visit outcomes to bookings
func attendanceHandler(ctx context.Context, bookingSvc *appointment.Service) his.AttendanceHandler {
	return func(event his.AttendanceEvent) {
		mrn, err := types.ParseMRN(event.PatientMRN)
		if err != nil {
			fmt.Printf("Ignoring attendance event with invalid MRN %q: %v\n", event.PatientMRN, err)
			return
		}

		appt, err := bookingSvc.RecordAttendance(ctx, mrn, event.VisitTime, event.Attended)
		if err != nil {
			fmt.Printf("Failed to record attendance for MRN %s: %v\n", mrn.Masked(), err)
			return
		}

		fmt.Printf("Recorded %s for appointment %s from %s\n", appt.Status, appt.ID, event.SourceSystem)
	}
}

// devTokenHandler mints signed tokens for local testing. Never mounted
// in production.
func devTokenHandler(issuer *session.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string   `json:"user_id"`
			UserType string   `json:"user_type"`
			ClinicID string   `json:"clinic_id"`
			Roles    []string `json:"roles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
			return
		}

		if req.UserID == "" {
			req.UserID = "dev-user"
		}
		if req.UserType == "" {
			req.UserType = "staff"
		}
		roles := make([]session.Role, 0, len(req.Roles))
		for _, role := range req.Roles {
			roles = append(roles, session.Role(role))
		}
		if len(roles) == 0 {
			roles = append(roles, session.RoleAdmin)
		}

		token, expiresAt, err := issuer.Issue(req.UserID, req.UserType, req.ClinicID, roles)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "failed to issue token"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"token":      token,
			"expires_at": expiresAt,
		})
	}
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Attend - Appointment & No-Show Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		// Check database
		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		// Check KurrentDB
		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["kurrentdb"] = "not ready: " + err.Error()
			} else {
				checks["kurrentdb"] = "ready"
			}
		} else {
			checks["kurrentdb"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
