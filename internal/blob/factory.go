package blob

import (
	"fmt"
	"strings"

	appcfg "github.com/datapulse/webclient/internal/config"
)

type Logger interface {
	Printf(format string, v ...any)
}

// NewBlobStore builds the report store using mode local|s3|auto. The
// returned mode string reflects what was actually selected.
func NewBlobStore(cfg appcfg.BlobConfig, reportsDir string, logger Logger) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	local := func(note string) (Store, string, error) {
		store, err := NewLocalStore(reportsDir)
		if err != nil {
			return nil, "", err
		}
		logf(logger, "INFO blob: mode=local (%s) dir=%s", note, reportsDir)
		return store, appcfg.BlobModeLocal, nil
	}

	switch mode {
	case appcfg.BlobModeLocal:
		return local("forced")

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			logf(logger, "INFO blob.s3: not configured, missing=%v", cfg.S3.MissingRequired())
			return local("auto, S3 not configured")
		}
		store, err := NewS3Store(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			logf(logger, "WARNING: blob.s3 init failed=%q, fallback=local", err.Error())
			return local("auto, S3 init failed")
		}
		logf(logger, "INFO blob: mode=s3 (auto) %s", cfg.S3.DiagnosticsSummary())
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			logf(logger, "FATAL blob.s3: config incomplete missing=%v", missing)
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}
		store, err := NewS3Store(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}
		logf(logger, "INFO blob: mode=s3 (forced) %s", cfg.S3.DiagnosticsSummary())
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func logf(logger Logger, format string, v ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, v...)
}
