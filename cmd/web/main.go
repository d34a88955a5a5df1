package main

import (
	"log"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/datapulse/webclient/internal/config"
	"github.com/datapulse/webclient/internal/httpserver"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)
	validateProductionConfig(cfg)

	server, err := httpserver.New(cfg)
	if err != nil {
		log.Fatalf("FATAL startup: %v", err)
	}

	log.Fatal(server.Start())
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// No secrets are ever printed, only masked indicators ("set" / "not set").
func printStartupBanner(cfg *config.Config) {
	log.Println("========== DataPulse Web Client ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	// ---- Backend ----
	log.Println("---- backend ----")
	log.Printf("  base_url         = %s", cfg.BackendBaseURL)
	log.Printf("  timeout          = %ds", cfg.BackendTimeoutSeconds)
	log.Printf("  business_goal    = %s", cfg.BusinessGoal)
	log.Printf("  audience         = %s", cfg.Audience)

	// ---- Session ----
	log.Println("---- session ----")
	log.Printf("  token_cache      = %s", describeTokenCache(cfg.TokenCachePath))

	// ---- Uploads ----
	log.Println("---- uploads ----")
	log.Printf("  max_upload_mb    = %d", cfg.UploadMaxMB)

	// ---- Blob / S3 ----
	log.Println("---- reports ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	log.Printf("  reports_dir      = %s", cfg.ReportsDir)
	if cfg.Blob.Mode != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	// ---- HTTP ----
	log.Println("---- http ----")
	log.Printf("  cors_origins     = %s", describeOrigins(cfg.CORSAllowedOrigins))
	log.Printf("  rate_limit_rps   = %d", cfg.RateLimitRPS)

	log.Println("==========================================")
}

// validateProductionConfig performs fatal checks that only matter outside
// local development.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "staging"

	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if isProd && len(cfg.CORSAllowedOrigins) == 0 {
		log.Printf("WARNING: no CORS_ALLOWED_ORIGINS configured in %s, browsers will be blocked", cfg.Env)
	}
}

// ---- helpers (no secrets) ----

func describeTokenCache(path string) string {
	if strings.TrimSpace(path) == "" {
		return "memory only"
	}
	return path
}

func describeOrigins(origins []string) string {
	if len(origins) == 0 {
		return "(none)"
	}
	return strings.Join(origins, ",")
}
