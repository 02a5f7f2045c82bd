package narrative

import (
	"fmt"

	"github.com/grainwise/grainwise/internal/domain"
)

// AnalysisType selects which canned template backs a failed enrichment.
type AnalysisType string

const (
	AnalysisSignalRationale AnalysisType = "signal_rationale"
	AnalysisMarketOutlook   AnalysisType = "market_outlook"
)

// FallbackNarrative returns the canned template for an analysis type.
// Used when the LLM call fails or its output cannot be parsed; the
// caller still gets usable text, never an error.
func FallbackNarrative(analysisType AnalysisType, commodity domain.Commodity, strength domain.Strength) string {
	switch analysisType {
	case AnalysisMarketOutlook:
		return fmt.Sprintf(
			"SUMMARY: %s futures are trading within their recent range. "+
				"Detailed market commentary is temporarily unavailable.\n"+
				"RECOMMENDATIONS: Review your break-even levels and current signal strength (%s) "+
				"before committing bushels.\n"+
				"RISK_ASSESSMENT: Standard production and price risk apply; consult your local elevator for current basis.",
			commodity, strength,
		)
	default:
		return fmt.Sprintf(
			"SUMMARY: A %s opportunity was identified for %s based on your break-even and current prices.\n"+
				"RECOMMENDATIONS: Compare the recommended bushels against unsold inventory and "+
				"consider spreading sales across multiple windows.\n"+
				"RISK_ASSESSMENT: Prices can move quickly around USDA reports; signals expire and are recalculated daily.",
			strength, commodity,
		)
	}
}
