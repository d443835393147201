package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StrategySimulated = "simulated"
	StrategyDownload  = "download"
	StrategyObject    = "object"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Endpoint        string
	Prefix          string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Config struct {
	Port        string
	Environment string
	JWTSecret   string
	FrontendURL string
	CorsConfig  cors.Options

	DBDriver string
	DB_URL   string

	// RequireAuth gates saving behind a logged-in session. When false,
	// uploads go to the global "uploads" list.
	RequireAuth bool

	// AuthLatency delays register and login to mimic a remote auth server.
	AuthLatency time.Duration

	SaveStrategy    string
	SaveLatency     time.Duration
	SaveConcurrency int
	MaxUploadBytes  int64
	DateLayout      string

	R2     R2Config
	Google GoogleConfig
}

// Load reads .env (or ENV_FILE) when present, then the process environment.
func Load() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	frontend := getEnv("FRONTEND_URL", "http://localhost:5173")

	return Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		FrontendURL: frontend,
		CorsConfig:  CorsConfig(getEnvList("CORS_ORIGINS", []string{frontend})),

		DBDriver: getEnv("DB_DRIVER", DriverMemory),
		DB_URL:   getEnv("DB_URL", ""),

		RequireAuth: getEnvBool("REQUIRE_AUTH", true),
		AuthLatency: getEnvDuration("AUTH_LATENCY", 0),

		SaveStrategy:    getEnv("SAVE_STRATEGY", StrategySimulated),
		SaveLatency:     getEnvDuration("SAVE_LATENCY", 100*time.Millisecond),
		SaveConcurrency: getEnvInt("SAVE_CONCURRENCY", 1),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 100)) << 20,
		DateLayout:      getEnv("DATE_LAYOUT", "1/2/2006"),

		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
			Prefix:          getEnv("R2_PREFIX", "uploads"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func CorsConfig(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
