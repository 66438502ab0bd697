package dashboard

import "strings"

// ChartTypes is the fixed vocabulary for chart recommendation, in
// tie-break order: when a message matches several types, the first one
// listed here wins.
var ChartTypes = []string{"bar", "line", "pie", "scatter", "area", "table"}

var chartKeywords = map[string][]string{
	"bar":     {"bar", "compare", "comparison", "ranking", "versus"},
	"line":    {"line", "trend", "over time", "timeline", "history"},
	"pie":     {"pie", "share", "proportion", "percentage", "breakdown"},
	"scatter": {"scatter", "correlation", "relationship", "distribution"},
	"area":    {"area", "cumulative", "stacked"},
	"table":   {"table", "list", "detail", "raw"},
}

// RecommendChart guesses a chart type from free text. The first
// keyword hit per type counts; ties go to ChartTypes order. Alternatives
// are the remaining matched types. Defaults to "table" with no
// alternatives when nothing matches.
func RecommendChart(message string) (recommended string, alternatives []string) {
	lower := strings.ToLower(message)
	var matched []string
	for _, t := range ChartTypes {
		for _, kw := range chartKeywords[t] {
			if strings.Contains(lower, kw) {
				matched = append(matched, t)
				break
			}
		}
	}
	if len(matched) == 0 {
		return "table", nil
	}
	return matched[0], matched[1:]
}
