package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable at startup
const (
	BackendSQL   = "sql"
	BackendMongo = "mongo"
)

// SQL drivers for the sql backend
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Duplicate evaluation policies
const (
	DuplicatesReject = "reject"
	DuplicatesAllow  = "allow"
)

const devJWTSecret = "default_super_secret_key"

type Config struct {
	Port     string
	Env      string // development|production
	GinMode  string
	LogLevel string

	StoreBackend string
	DBDriver     string
	DatabaseDSN  string
	SQLitePath   string
	MongoURI     string
	MongoDB      string

	JWTSecret []byte
	JWTTTL    time.Duration

	CORSOrigins          []string
	EvaluationDuplicates string
	SentryDSN            string
}

// Load reads configs/.env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	cfg := &Config{
		Port:                 getenv("PORT", "8080"),
		Env:                  getenv("APP_ENV", "development"),
		GinMode:              os.Getenv("GIN_MODE"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		StoreBackend:         strings.ToLower(getenv("STORE_BACKEND", BackendSQL)),
		DBDriver:             strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
		DatabaseDSN:          os.Getenv("DATABASE_DSN"),
		SQLitePath:           getenv("SQLITE_PATH", "ideahub.db"),
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDB:              getenv("MONGODB_DATABASE", "ideahub"),
		CORSOrigins:          splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		EvaluationDuplicates: strings.ToLower(getenv("EVALUATION_DUPLICATES", DuplicatesReject)),
		SentryDSN:            os.Getenv("SENTRY_DSN"),
	}

	if cfg.DatabaseDSN == "" && cfg.DBDriver == DriverPostgres {
		cfg.DatabaseDSN = postgresDSNFromParts()
	}

	ttl, err := time.ParseDuration(getenv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if cfg.IsRelease() {
			return nil, errors.New("JWT_SECRET environment variable is required in production mode")
		}
		secret = devJWTSecret // development fallback only
	}
	cfg.JWTSecret = []byte(secret)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsRelease reports whether the process runs with production settings
func (c *Config) IsRelease() bool {
	return c.GinMode == "release" || c.Env == "production"
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQL:
		if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
			return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("STORE_BACKEND: unsupported backend %q", c.StoreBackend)
	}
	if c.EvaluationDuplicates != DuplicatesReject && c.EvaluationDuplicates != DuplicatesAllow {
		return fmt.Errorf("EVALUATION_DUPLICATES: expected %q or %q", DuplicatesReject, DuplicatesAllow)
	}
	return nil
}

func postgresDSNFromParts() string {
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", "postgres")
	password := getenv("DB_PASSWORD", "postgres")
	name := getenv("DB_NAME", "postgres")
	sslMode := getenv("DB_SSLMODE", "disable")
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
