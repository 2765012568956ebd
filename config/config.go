package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ar-classroom/backend/internal/lectures"
)

// Store drivers.
const (
	DriverMongo     = "mongo"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Gateway GatewayConfig
	Lecture LectureConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Driver             string
	MongoURL           string
	DatabaseName       string
	PostgresURL        string // e.g. postgres://localhost:5432/lectures?sslmode=disable
	FirestoreProjectID string
	LecturesCollection string
	UsersCollection    string
}

// GatewayConfig holds Vertex AI (Gemini) settings.
type GatewayConfig struct {
	ProjectID     string
	Region        string
	Model         string
	TimeoutSec    int
	QuestionCount int
}

// LectureConfig holds lifecycle settings.
type LectureConfig struct {
	ActiveSessionPolicy lectures.Policy
	MaxUploadMB         int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 120),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Driver:             strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
			MongoURL:           getEnv("MONGODB_URL", "mongodb://localhost:27017"),
			DatabaseName:       getEnv("DATABASE_NAME", "classroom"),
			PostgresURL:        getEnv("DATABASE_URL", "postgres://localhost:5432/classroom?sslmode=disable"),
			FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", os.Getenv("GCP_PROJECT_ID")),
			LecturesCollection: getEnv("LECTURES_COLLECTION", "lecture-entries"),
			UsersCollection:    getEnv("USERS_COLLECTION", "user-entries"),
		},
		Gateway: GatewayConfig{
			ProjectID:     getEnv("GCP_PROJECT_ID", ""),
			Region:        getEnv("VERTEX_AI_REGION", "us-central1"),
			Model:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			TimeoutSec:    getEnvInt("GATEWAY_TIMEOUT_SEC", 60),
			QuestionCount: getEnvInt("QUESTION_COUNT", 3),
		},
		Lecture: LectureConfig{
			ActiveSessionPolicy: lectures.Policy(strings.ToLower(getEnv("ACTIVE_SESSION_POLICY", string(lectures.PolicyAllowMultiple)))),
			MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 25),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverFirestore, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	// FIRESTORE_PROJECT_ID falls back to this.
	if c.Gateway.ProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required")
	}
	if c.Gateway.Region == "" {
		return fmt.Errorf("VERTEX_AI_REGION must not be empty")
	}
	if !c.Lecture.ActiveSessionPolicy.Valid() {
		return fmt.Errorf("unknown ACTIVE_SESSION_POLICY %q", c.Lecture.ActiveSessionPolicy)
	}
	if c.Gateway.TimeoutSec <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SEC must be positive")
	}
	if c.Gateway.QuestionCount <= 0 {
		return fmt.Errorf("QUESTION_COUNT must be positive")
	}
	if c.Lecture.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// MaxUploadBytes returns the per-file upload cap in bytes.
func (c LectureConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
