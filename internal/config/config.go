package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

// S3Config describes the optional object storage for exported reports.
type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PresignTTLSeconds int
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

// DiagnosticsSummary returns a loggable summary with secrets masked.
func (c S3Config) DiagnosticsSummary() string {
	accessKey := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" {
		accessKey = "set"
	}
	secretKey := "not set"
	if strings.TrimSpace(c.SecretAccessKey) != "" {
		secretKey = "set"
	}
	return "endpoint=" + nonEmptyOrDash(c.Endpoint) +
		" region=" + nonEmptyOrDash(c.Region) +
		" bucket=" + nonEmptyOrDash(c.Bucket) +
		" presign_ttl=" + strconv.Itoa(c.PresignTTLSeconds) + "s" +
		" access_key_id=" + accessKey +
		" secret_access_key=" + secretKey
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

// BlobConfig selects where exported report PDFs are kept.
type BlobConfig struct {
	Mode string // local|s3|auto
	S3   S3Config
}

// Config holds the web client configuration.
type Config struct {
	Env      string // local | staging | prod
	Port     int
	LogLevel string

	// External DataPulse API
	BackendBaseURL        string
	BackendTimeoutSeconds int

	// Defaults sent with the AI summary request
	BusinessGoal string
	Audience     string

	// Optional file-backed bearer token cache. Never authoritative.
	TokenCachePath string

	// Uploads
	UploadMaxMB int

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	// Exported reports
	ReportsDir string
	Blob       BlobConfig
}

// Load reads configuration from environment variables.
func Load() *Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env == "" {
		env = "local"
	}

	port := envInt("PORT", 8080)

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "debug"
	}

	// ---------- Backend ----------
	backendBaseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")), "/")
	if backendBaseURL == "" {
		backendBaseURL = "https://data-pulse-api.vercel.app"
	}

	backendTimeout := envInt("BACKEND_TIMEOUT_SECONDS", 60)
	if backendTimeout <= 0 {
		backendTimeout = 60
	}

	// ---------- AI summary defaults ----------
	businessGoal := strings.TrimSpace(os.Getenv("BUSINESS_GOAL"))
	if businessGoal == "" {
		businessGoal = "improve profitability"
	}

	audience := strings.ToLower(strings.TrimSpace(os.Getenv("AUDIENCE")))
	switch audience {
	case "executive", "analyst", "product", "sales":
	case "":
		audience = "executive"
	default:
		log.Printf("WARNING: unknown AUDIENCE=%q, fallback to executive", audience)
		audience = "executive"
	}

	// TOKEN_CACHE_PATH: empty means the bearer token is held in memory only.
	tokenCachePath := strings.TrimSpace(os.Getenv("TOKEN_CACHE_PATH"))

	uploadMaxMB := envInt("UPLOAD_MAX_MB", 25)
	if uploadMaxMB <= 0 {
		uploadMaxMB = 25
	}

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := os.Getenv("CORS_ALLOW_CREDENTIALS") == "1"

	// ---------- Rate Limiting ----------
	rateLimitRPS := envInt("RATE_LIMIT_RPS", 0)
	rateLimitBurst := envInt("RATE_LIMIT_BURST", 0)

	// ---------- Reports / Blob ----------
	reportsDir := strings.TrimSpace(os.Getenv("REPORTS_DIR"))
	if reportsDir == "" {
		reportsDir = "./reports"
	}

	blobMode := strings.ToLower(strings.TrimSpace(os.Getenv("BLOB_MODE")))
	if blobMode == "" {
		blobMode = BlobModeLocal
	}
	if blobMode != BlobModeLocal && blobMode != BlobModeS3 && blobMode != BlobModeAuto {
		log.Printf("WARNING: unknown BLOB_MODE=%q, fallback to %s", blobMode, BlobModeLocal)
		blobMode = BlobModeLocal
	}

	presignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if presignTTL <= 0 {
		presignTTL = 900
	}

	s3Cfg := S3Config{
		Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		PresignTTLSeconds: presignTTL,
	}

	return &Config{
		Env:      env,
		Port:     port,
		LogLevel: logLevel,

		BackendBaseURL:        backendBaseURL,
		BackendTimeoutSeconds: backendTimeout,

		BusinessGoal: businessGoal,
		Audience:     audience,

		TokenCachePath: tokenCachePath,

		UploadMaxMB: uploadMaxMB,

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   rateLimitRPS,
		RateLimitBurst: rateLimitBurst,

		ReportsDir: reportsDir,
		Blob: BlobConfig{
			Mode: blobMode,
			S3:   s3Cfg,
		},
	}
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost dev origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
