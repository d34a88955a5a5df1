package analyze

import "encoding/json"

// NormalizeDetailedSummary interprets an AI enrichment payload. The AI
// returns one of three shapes: the structured summary, a bare {"summary"}
// wrapper, or neither. Nil means the payload carried no usable summary and
// the caller keeps whatever the quick analysis produced.
func NormalizeDetailedSummary(payload []byte) *DetailedSummary {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil
	}
	return normalizeSummaryMap(raw)
}

func normalizeSummaryMap(raw map[string]any) *DetailedSummary {
	if raw == nil {
		return nil
	}

	// Structured shape: any of the three base fields present.
	_, hasOverview := raw["executive_overview"]
	_, hasTrends := raw["key_trends"]
	_, hasActions := raw["action_items_quick_wins"]
	if hasOverview || hasTrends || hasActions {
		ds := &DetailedSummary{
			ExecutiveOverview:     stringField(raw, "executive_overview"),
			KeyTrends:             stringListField(raw, "key_trends"),
			ActionItemsQuickWins:  stringListField(raw, "action_items_quick_wins"),
			DataQualityAssessment: stringField(raw, "data_quality_assessment"),
			IndustryComparison:    stringField(raw, "industry_comparison"),
		}
		if list, ok := raw["business_implications"]; ok && list != nil {
			ds.BusinessImplications = coerceStringList(list)
		}
		if list, ok := raw["risk_alerts"]; ok && list != nil {
			ds.RiskAlerts = coerceStringList(list)
		}
		if list, ok := raw["predictive_insights"]; ok && list != nil {
			ds.PredictiveInsights = coerceStringList(list)
		}
		if rec, ok := raw["recommendations"].(map[string]any); ok {
			ds.Recommendations = &Recommendations{
				ShortTerm: stringListField(rec, "short_term"),
				LongTerm:  stringListField(rec, "long_term"),
			}
		}
		return ds
	}

	// Bare wrapper: a lone summary string becomes the overview.
	if summary, ok := raw["summary"].(string); ok {
		return &DetailedSummary{
			ExecutiveOverview:    summary,
			KeyTrends:            []string{},
			ActionItemsQuickWins: []string{},
		}
	}

	return nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// stringListField coerces a field to a string slice. Missing or malformed
// values come back as an empty slice, never nil.
func stringListField(raw map[string]any, key string) []string {
	list := coerceStringList(raw[key])
	if list == nil {
		return []string{}
	}
	return list
}

func coerceStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ensureListsNonNil fills in empty slices on a summary decoded straight
// from the quick-analysis payload, where absent arrays decode as nil.
func ensureListsNonNil(ds *DetailedSummary) {
	if ds == nil {
		return
	}
	if ds.KeyTrends == nil {
		ds.KeyTrends = []string{}
	}
	if ds.ActionItemsQuickWins == nil {
		ds.ActionItemsQuickWins = []string{}
	}
}
