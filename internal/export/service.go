package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datapulse/webclient/internal/analyze"
	"github.com/datapulse/webclient/internal/blob"
	appcfg "github.com/datapulse/webclient/internal/config"
)

var ErrReportNotFound = errors.New("export: report not found")

// Download is either a presigned URL or the raw PDF bytes, depending on
// the storage mode.
type Download struct {
	URL      string
	Data     []byte
	FileName string
}

// Service generates report PDFs from analysis results and keeps them in
// the blob store. The index lives in memory; the blobs are the durable
// part.
type Service struct {
	store      blob.Store
	mode       string
	presignTTL int

	mu      sync.Mutex
	reports map[string]Report
}

func NewService(store blob.Store, mode string, presignTTL int) *Service {
	return &Service{
		store:      store,
		mode:       mode,
		presignTTL: presignTTL,
		reports:    make(map[string]Report),
	}
}

// CreateReport renders the result into a PDF and stores it.
func (s *Service) CreateReport(ctx context.Context, result *analyze.AnalysisResult) (Report, error) {
	doc := BuildDocument(result)
	data, err := RenderPDF(doc)
	if err != nil {
		return Report{}, fmt.Errorf("generate report: %w", err)
	}

	id := uuid.New().String()
	key := "reports/" + id + ".pdf"
	size, err := s.store.PutObject(ctx, key, data, "application/pdf")
	if err != nil {
		return Report{}, fmt.Errorf("store report: %w", err)
	}

	report := Report{
		ID:         id,
		Title:      doc.Title,
		FileName:   "DataPulse-Report.pdf",
		SizeBytes:  size,
		CreatedAt:  time.Now().UTC(),
		StorageKey: key,
	}

	s.mu.Lock()
	s.reports[id] = report
	s.mu.Unlock()

	log.Printf("INFO export: report generated id=%s size=%d", id, size)
	return report, nil
}

// ListReports returns known reports, newest first.
func (s *Service) ListReports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DownloadReport fetches a stored report. In s3 mode it returns a
// presigned URL instead of streaming through this process.
func (s *Service) DownloadReport(ctx context.Context, id string) (*Download, error) {
	s.mu.Lock()
	report, ok := s.reports[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrReportNotFound
	}

	if s.mode == appcfg.BlobModeS3 {
		url, err := s.store.PresignGet(ctx, report.StorageKey, s.presignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign report: %w", err)
		}
		return &Download{URL: url, FileName: report.FileName}, nil
	}

	data, err := s.store.GetObject(ctx, report.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return &Download{Data: data, FileName: report.FileName}, nil
}

func (s *Service) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	report, ok := s.reports[id]
	if ok {
		delete(s.reports, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrReportNotFound
	}

	if err := s.store.DeleteObject(ctx, report.StorageKey); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}
