package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/datapulse/webclient/internal/analyze"
)

func sampleResult() *analyze.AnalysisResult {
	pct := 0.4
	return &analyze.AnalysisResult{
		Profiling: analyze.Profiling{
			Rows:           120,
			Columns:        6,
			MissingTotal:   2,
			NumericColumns: []string{"revenue", "units"},
		},
		KPIs: analyze.KPIs{
			TotalRows:     120,
			TotalColumns:  6,
			MissingPct:    &pct,
			DuplicateRows: 1,
			OutliersTotal: 3,
		},
		DetailedSummary: &analyze.DetailedSummary{
			ExecutiveOverview:    "Revenue grew steadily.",
			KeyTrends:            []string{"Q3 uptick"},
			ActionItemsQuickWins: []string{"renegotiate supplier"},
			RiskAlerts:           []string{"inventory overhang"},
		},
	}
}

func headings(doc Document) []string {
	out := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		out = append(out, s.Heading)
	}
	return out
}

func hasHeading(doc Document, heading string) bool {
	for _, s := range doc.Sections {
		if s.Heading == heading {
			return true
		}
	}
	return false
}

func TestBuildDocument_FullResult(t *testing.T) {
	doc := BuildDocument(sampleResult())

	if doc.Title != "DataPulse Analysis Report" {
		t.Errorf("title = %q", doc.Title)
	}

	for _, want := range []string{"Data Profile", "Key Performance Indicators", "AI Executive Summary", "Key Trends", "Quick Wins", "Risk Alerts"} {
		if !hasHeading(doc, want) {
			t.Errorf("missing section %q in %v", want, headings(doc))
		}
	}

	// Sections for absent fields must not appear.
	for _, notWant := range []string{"Business Implications", "Industry Comparison", "Predictive Insights"} {
		if hasHeading(doc, notWant) {
			t.Errorf("unexpected section %q", notWant)
		}
	}
}

func TestBuildDocument_InsightsFallbackOverview(t *testing.T) {
	result := sampleResult()
	result.DetailedSummary = nil
	result.Insights = &analyze.Insights{Summary: "120 rows across 6 columns."}

	doc := BuildDocument(result)
	if !hasHeading(doc, "AI Executive Summary") {
		t.Fatalf("sections = %v, want the summary built from insights", headings(doc))
	}

	var found bool
	for _, s := range doc.Sections {
		if s.Heading == "AI Executive Summary" {
			for _, p := range s.Paragraphs {
				if strings.Contains(p, "120 rows") {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("insights summary must feed the overview paragraph")
	}
}

func TestBuildDocument_NoAIContent(t *testing.T) {
	result := sampleResult()
	result.DetailedSummary = nil
	result.Insights = nil

	doc := BuildDocument(result)
	if hasHeading(doc, "AI Executive Summary") {
		t.Error("no AI section without any AI content")
	}
	if !hasHeading(doc, "Data Profile") || !hasHeading(doc, "Key Performance Indicators") {
		t.Errorf("profile and KPI sections are unconditional, got %v", headings(doc))
	}
}

func TestBuildDocument_NumericColumnsTruncated(t *testing.T) {
	result := sampleResult()
	result.Profiling.NumericColumns = make([]string, 20)
	for i := range result.Profiling.NumericColumns {
		result.Profiling.NumericColumns[i] = "col"
	}

	doc := BuildDocument(result)
	for _, s := range doc.Sections {
		if s.Heading != "Data Profile" {
			continue
		}
		for _, p := range s.Paragraphs {
			if strings.HasPrefix(p, "Numeric Columns:") {
				if got := strings.Count(p, "col"); got != 12 {
					t.Errorf("numeric columns listed = %d, want 12", got)
				}
			}
		}
	}
}

func TestRenderPDF_ProducesDocument(t *testing.T) {
	doc := BuildDocument(sampleResult())

	data, err := RenderPDF(doc)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(8, len(data))])
	}
}
