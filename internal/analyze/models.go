package analyze

import "encoding/json"

// Profiling describes the structural summary the backend computes for an
// uploaded dataset.
type Profiling struct {
	Rows           int               `json:"rows"`
	Columns        int               `json:"columns"`
	MissingTotal   int               `json:"missing_total"`
	Dtypes         map[string]string `json:"dtypes,omitempty"`
	NumericColumns []string          `json:"numeric_columns,omitempty"`
}

// TimeKPIs covers the optional date-coverage block of the KPI payload.
type TimeKPIs struct {
	DateColumn     *string  `json:"date_column,omitempty"`
	MinDate        *string  `json:"min_date,omitempty"`
	MaxDate        *string  `json:"max_date,omitempty"`
	DaysCovered    *float64 `json:"days_covered,omitempty"`
	LatestIsRecent *bool    `json:"latest_is_recent,omitempty"`
}

type KPIs struct {
	TotalRows              int               `json:"total_rows"`
	TotalColumns           int               `json:"total_columns"`
	MissingPct             *float64          `json:"missing_pct"`
	DuplicateRows          int               `json:"duplicate_rows"`
	OutliersTotal          int               `json:"outliers_total"`
	RowsPerDay             *float64          `json:"rows_per_day"`
	WorstOutlierColumn     *string           `json:"worst_outlier_column,omitempty"`
	SuspectedKeys          []string          `json:"suspected_keys,omitempty"`
	CardinalityTop3        []json.RawMessage `json:"cardinality_top3,omitempty"`
	TopVarianceNumericCols []string          `json:"top_variance_numeric_cols,omitempty"`
	Time                   *TimeKPIs         `json:"time,omitempty"`
}

type LinePoint struct {
	X any     `json:"x"`
	Y float64 `json:"y"`
}

type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FixedCharts is the classic chart triple always present in a quick analysis.
type FixedCharts struct {
	Line []LinePoint  `json:"line"`
	Bar  []NamedValue `json:"bar"`
	Pie  []NamedValue `json:"pie"`
}

// AIChartMetadata annotates an AI-recommended chart.
type AIChartMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Insights      []string `json:"insights,omitempty"`
	RecommendedBy string   `json:"recommended_by,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

type AIChartConfig struct {
	XAxis       string `json:"x_axis,omitempty"`
	YAxis       string `json:"y_axis,omitempty"`
	ColorBy     string `json:"color_by,omitempty"`
	Category    string `json:"category,omitempty"`
	IsHistogram bool   `json:"is_histogram,omitempty"`
}

// AIChart is one dynamically recommended chart in the enriched payload.
type AIChart struct {
	Type     string            `json:"type"`
	Data     []json.RawMessage `json:"data"`
	Config   AIChartConfig     `json:"config"`
	Metadata AIChartMetadata   `json:"ai_metadata"`
}

// Charts carries either the fixed triple or a dynamic named chart map,
// depending on what the backend produced. Exactly one side is populated.
type Charts struct {
	Fixed   *FixedCharts       `json:"-"`
	Dynamic map[string]AIChart `json:"-"`
}

// UnmarshalJSON dispatches on the payload shape: an object whose keys are
// the literal line/bar/pie arrays decodes as the fixed triple, anything
// else decodes as an AI chart map.
func (c *Charts) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if isFixedTriple(probe) {
		var fixed FixedCharts
		if err := json.Unmarshal(data, &fixed); err != nil {
			return err
		}
		c.Fixed = &fixed
		c.Dynamic = nil
		return nil
	}

	var dynamic map[string]AIChart
	if err := json.Unmarshal(data, &dynamic); err != nil {
		return err
	}
	c.Dynamic = dynamic
	c.Fixed = nil
	return nil
}

func (c Charts) MarshalJSON() ([]byte, error) {
	if c.Fixed != nil {
		return json.Marshal(c.Fixed)
	}
	if c.Dynamic != nil {
		return json.Marshal(c.Dynamic)
	}
	return []byte("null"), nil
}

func isFixedTriple(probe map[string]json.RawMessage) bool {
	if len(probe) == 0 {
		return true
	}
	for key, raw := range probe {
		switch key {
		case "line", "bar", "pie":
		default:
			return false
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return false
		}
	}
	return true
}

// Recommendations splits AI advice by time horizon.
type Recommendations struct {
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// DetailedSummary is the normalized AI narrative attached to a result.
// The first three fields are always present after normalization; the rest
// only appear when the AI produced them.
type DetailedSummary struct {
	ExecutiveOverview     string           `json:"executive_overview"`
	KeyTrends             []string         `json:"key_trends"`
	ActionItemsQuickWins  []string         `json:"action_items_quick_wins"`
	DataQualityAssessment string           `json:"data_quality_assessment,omitempty"`
	BusinessImplications  []string         `json:"business_implications,omitempty"`
	Recommendations       *Recommendations `json:"recommendations,omitempty"`
	RiskAlerts            []string         `json:"risk_alerts,omitempty"`
	PredictiveInsights    []string         `json:"predictive_insights,omitempty"`
	IndustryComparison    string           `json:"industry_comparison,omitempty"`
}

// Insights is the short machine summary of the quick analysis.
type Insights struct {
	Summary string `json:"summary,omitempty"`
}

// AnalysisResult is the normalized result served to the page. UploadID is
// the backend's handle for the upload; when the backend omits it the
// client's content hash stands in.
type AnalysisResult struct {
	UploadID        string           `json:"upload_id,omitempty"`
	Profiling       Profiling        `json:"profiling"`
	KPIs            KPIs             `json:"kpis"`
	Charts          Charts           `json:"charts"`
	Insights        *Insights        `json:"insights,omitempty"`
	DetailedSummary *DetailedSummary `json:"detailed_summary,omitempty"`
}
