package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string
	DatabaseURL     string

	ImageStore         string
	LocalStoreDir      string
	ImagePublicBaseURL string
	UploadURL          string
	UploadTimeout      time.Duration
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string

	ServiceAURL          string
	ServiceBURL          string
	DispatchTimeout      time.Duration
	FemaleAdviceFallback bool
	ContentValidatorURL  string
	PhaseScale           float64

	ProfileURL     string
	ProfileEditURL string
	LoginURL       string
	SessionTTL     time.Duration

	ResultsQueueURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     dbURL,

		ImageStore:         normalizeStoreType(getEnv("IMAGE_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		ImagePublicBaseURL: strings.TrimRight(getEnv("IMAGE_PUBLIC_BASE_URL", ""), "/"),
		UploadURL:          getEnv("UPLOAD_URL", ""),
		UploadTimeout:      getSeconds("UPLOAD_TIMEOUT_SECONDS", 60),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),

		ServiceAURL:          getEnv("SERVICE_A_URL", ""),
		ServiceBURL:          getEnv("SERVICE_B_URL", ""),
		DispatchTimeout:      getSeconds("DISPATCH_TIMEOUT_SECONDS", 120),
		FemaleAdviceFallback: getBool("FEMALE_ADVICE_FALLBACK", false),
		ContentValidatorURL:  getEnv("CONTENT_VALIDATOR_URL", ""),
		PhaseScale:           getFloat("PHASE_SCALE", 1),

		ProfileURL:     getEnv("PROFILE_URL", ""),
		ProfileEditURL: getEnv("PROFILE_EDIT_URL", ""),
		LoginURL:       getEnv("LOGIN_URL", "/api/v1/auth/google/start"),
		SessionTTL:     time.Duration(getInt("SESSION_TTL_MINUTES", 30)) * time.Minute,

		ResultsQueueURL: getEnv("RESULTS_QUEUE_URL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return v
}

func getSeconds(key string, def int) time.Duration {
	return time.Duration(getInt(key, def)) * time.Second
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Printf("config %s invalid number %q, using %g", key, raw, def)
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "remote":
		return "remote"
	default:
		return "local"
	}
}
