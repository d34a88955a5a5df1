package export

import (
	"fmt"
	"strings"

	"github.com/datapulse/webclient/internal/analyze"
)

// Section is one heading of the report with paragraphs and bullet items.
type Section struct {
	Heading    string
	Paragraphs []string
	Bullets    []string
}

// Document is the text-only report layout, independent of the PDF engine
// so the content can be asserted on directly.
type Document struct {
	Title    string
	Sections []Section
}

// BuildDocument turns a normalized result into the report layout: data
// profile, KPIs, then the AI sections that are actually present.
func BuildDocument(result *analyze.AnalysisResult) Document {
	doc := Document{Title: "DataPulse Analysis Report"}

	p := result.Profiling
	profile := Section{Heading: "Data Profile"}
	profile.Paragraphs = append(profile.Paragraphs,
		fmt.Sprintf("Rows: %d    Columns: %d", p.Rows, p.Columns),
		fmt.Sprintf("Missing Values: %d", p.MissingTotal),
	)
	if len(p.NumericColumns) > 0 {
		cols := p.NumericColumns
		if len(cols) > 12 {
			cols = cols[:12]
		}
		profile.Paragraphs = append(profile.Paragraphs,
			"Numeric Columns: "+strings.Join(cols, ", "))
	}
	doc.Sections = append(doc.Sections, profile)

	k := result.KPIs
	kpis := Section{Heading: "Key Performance Indicators"}
	totalRows := k.TotalRows
	if totalRows == 0 {
		totalRows = p.Rows
	}
	totalCols := k.TotalColumns
	if totalCols == 0 {
		totalCols = p.Columns
	}
	kpis.Paragraphs = append(kpis.Paragraphs,
		fmt.Sprintf("Total Rows: %d", totalRows),
		fmt.Sprintf("Total Columns: %d", totalCols),
	)
	if k.MissingPct != nil {
		kpis.Paragraphs = append(kpis.Paragraphs, fmt.Sprintf("Missing %%: %g%%", *k.MissingPct))
	}
	kpis.Paragraphs = append(kpis.Paragraphs,
		fmt.Sprintf("Duplicates: %d", k.DuplicateRows),
		fmt.Sprintf("Outliers: %d", k.OutliersTotal),
	)
	doc.Sections = append(doc.Sections, kpis)

	ai := result.DetailedSummary
	overview := ""
	if ai != nil {
		overview = ai.ExecutiveOverview
	}
	if overview == "" && result.Insights != nil {
		overview = result.Insights.Summary
	}

	hasAI := overview != "" ||
		(ai != nil && (len(ai.KeyTrends) > 0 || len(ai.ActionItemsQuickWins) > 0))
	if hasAI {
		summary := Section{Heading: "AI Executive Summary"}
		if overview != "" {
			summary.Paragraphs = append(summary.Paragraphs, overview)
		}
		doc.Sections = append(doc.Sections, summary)

		if ai != nil && len(ai.KeyTrends) > 0 {
			doc.Sections = append(doc.Sections, Section{Heading: "Key Trends", Bullets: ai.KeyTrends})
		}
		if ai != nil && len(ai.ActionItemsQuickWins) > 0 {
			doc.Sections = append(doc.Sections, Section{Heading: "Quick Wins", Bullets: ai.ActionItemsQuickWins})
		}
	}

	if ai != nil {
		if ai.DataQualityAssessment != "" {
			doc.Sections = append(doc.Sections, Section{
				Heading:    "Data Quality Assessment",
				Paragraphs: []string{ai.DataQualityAssessment},
			})
		}
		if len(ai.BusinessImplications) > 0 {
			doc.Sections = append(doc.Sections, Section{Heading: "Business Implications", Bullets: ai.BusinessImplications})
		}
		if rec := ai.Recommendations; rec != nil && (len(rec.ShortTerm) > 0 || len(rec.LongTerm) > 0) {
			if len(rec.ShortTerm) > 0 {
				doc.Sections = append(doc.Sections, Section{Heading: "Short-Term Recommendations", Bullets: rec.ShortTerm})
			}
			if len(rec.LongTerm) > 0 {
				doc.Sections = append(doc.Sections, Section{Heading: "Long-Term Recommendations", Bullets: rec.LongTerm})
			}
		}
		if len(ai.RiskAlerts) > 0 {
			doc.Sections = append(doc.Sections, Section{Heading: "Risk Alerts", Bullets: ai.RiskAlerts})
		}
		if len(ai.PredictiveInsights) > 0 {
			doc.Sections = append(doc.Sections, Section{Heading: "Predictive Insights", Bullets: ai.PredictiveInsights})
		}
		if ai.IndustryComparison != "" {
			doc.Sections = append(doc.Sections, Section{
				Heading:    "Industry Comparison",
				Paragraphs: []string{ai.IndustryComparison},
			})
		}
	}

	return doc
}
