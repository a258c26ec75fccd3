package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
	OPA       OPAConfig
	Model     ModelConfig
	Reminder  ReminderConfig
	Dispatch  DispatchConfig
	HIS       HISConfig
	Weather   WeatherConfig
	Privacy   PrivacyConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC/HTTP port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type OPAConfig struct {
	URL     string
	Enabled bool
}

// ModelConfig holds configuration for the no-show risk model.
type ModelConfig struct {
	// Path is where the trained artifact is persisted
	Path string
	// RetrainThreshold is the outcome count an operator uses to decide on retraining
	RetrainThreshold int
	// SyntheticSamples is the bootstrap dataset size when stored outcomes are scarce
	SyntheticSamples int
	// AppointmentTypes is the closed vocabulary baked into the artifact at training time
	AppointmentTypes []string
}

// ReminderConfig holds configuration for the due-reminder processing loop.
type ReminderConfig struct {
	// Enabled controls the background due-scan loop
	Enabled bool
	// Interval between due scans
	Interval time.Duration
}

// DispatchConfig holds configuration for outbound reminder delivery.
type DispatchConfig struct {
	// FromEmail is the sender address for email reminders
	FromEmail string
	// FromPhone is the sender number for SMS reminders
	FromPhone string
	// Workers is the async send worker count
	Workers int
	// BufferSize is the async send queue depth
	BufferSize int
	// EmailPerMinute and SMSPerMinute throttle each channel
	EmailPerMinute int
	SMSPerMinute   int
}

// HISConfig holds configuration for the hospital information system adapter.
type HISConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	PollInterval time.Duration
}

type WeatherConfig struct {
	URL     string
	APIKey  string
	Enabled bool
}

// PrivacyConfig holds configuration for audit logging and data retention.
type PrivacyConfig struct {
	// AuditEnabled controls the activity audit trail
	AuditEnabled bool
	// RetentionDays is the personal-data retention window (default 7 years)
	RetentionDays int
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "attend"),
			Password: getEnv("DB_PASSWORD", "attend"),
			Database: getEnv("DB_NAME", "attend"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		KurrentDB: KurrentDBConfig{
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "attend"),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 8*time.Hour),
		},
		OPA: OPAConfig{
			URL:     getEnv("OPA_URL", "http://localhost:8181"),
			Enabled: getEnvBool("OPA_ENABLED", false),
		},
		Model: ModelConfig{
			Path:             getEnv("MODEL_PATH", "data/noshow_model.json"),
			RetrainThreshold: getEnvInt("RETRAIN_THRESHOLD", 100),
			SyntheticSamples: getEnvInt("MODEL_SYNTHETIC_SAMPLES", 1000),
			AppointmentTypes: getEnvSlice("MODEL_APPOINTMENT_TYPES", []string{
				"consultation", "follow_up", "treatment", "emergency",
				"checkup", "therapy", "surgery",
			}),
		},
		Reminder: ReminderConfig{
			Enabled:  getEnvBool("REMINDER_ENABLED", true),
			Interval: getEnvDuration("REMINDER_INTERVAL", time.Minute),
		},
		Dispatch: DispatchConfig{
			FromEmail:      getEnv("FROM_EMAIL", "noreply@clinic.com"),
			FromPhone:      getEnv("FROM_PHONE", ""),
			Workers:        getEnvInt("DISPATCH_WORKERS", 3),
			BufferSize:     getEnvInt("DISPATCH_BUFFER_SIZE", 100),
			EmailPerMinute: getEnvInt("DISPATCH_EMAIL_PER_MINUTE", 60),
			SMSPerMinute:   getEnvInt("DISPATCH_SMS_PER_MINUTE", 30),
		},
		HIS: HISConfig{
			Enabled:      getEnvBool("HIS_ENABLED", false),
			Host:         getEnv("HIS_HOST", "localhost"),
			Port:         getEnvInt("HIS_PORT", 1433),
			Database:     getEnv("HIS_DATABASE", "horizon"),
			Username:     getEnv("HIS_USERNAME", ""),
			Password:     getEnv("HIS_PASSWORD", ""),
			PollInterval: getEnvDuration("HIS_POLL_INTERVAL", 30*time.Second),
		},
		Weather: WeatherConfig{
			URL:     getEnv("WEATHER_URL", ""),
			APIKey:  getEnv("WEATHER_API_KEY", ""),
			Enabled: getEnvBool("WEATHER_ENABLED", false),
		},
		Privacy: PrivacyConfig{
			AuditEnabled:  getEnvBool("AUDIT_LOG_ENABLED", true),
			RetentionDays: getEnvInt("DATA_RETENTION_DAYS", 2555),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
