package learning

import (
	"math"
	"time"

	"github.com/grainwise/grainwise/internal/domain"
)

// RiskScore maps a user's average sale margin to a 0-100 risk score.
// Selling only at fat margins reads as conservative (low score); comfort
// with thin margins reads as aggressive (high score).
func RiskScore(avgPctAboveBE float64) int {
	switch {
	case avgPctAboveBE > 0.20:
		return 30
	case avgPctAboveBE > 0.15:
		return 40
	case avgPctAboveBE > 0.10:
		return 50
	case avgPctAboveBE > 0.05:
		return 60
	default:
		return 70
	}
}

// Confidence saturates at 20 decisions: each one is worth 5 points.
func Confidence(decisionCount int) int {
	score := int(math.Min(100, float64(decisionCount)/20*100))
	return score
}

// WindowFor buckets a month into the sell-timing thirds.
func WindowFor(month time.Month) Window {
	switch {
	case month <= time.April:
		return WindowEarly
	case month <= time.August:
		return WindowMid
	default:
		return WindowLate
	}
}

// ThresholdsFromAvg derives personalized cutoffs from the user's average
// percent-above-break-even at sale: the BUY trigger sits just under
// where they historically sell (floored at 5%), STRONG_BUY just above.
func ThresholdsFromAvg(avgPctAboveBE float64) (buy, strongBuy float64) {
	buy = math.Max(0.05, avgPctAboveBE-0.02)
	strongBuy = avgPctAboveBE + 0.05
	return buy, strongBuy
}

// BuildProfile recomputes the full profile from a user's decision
// history. totalSignals is how many signals the user has been shown,
// used for the act rate; zero leaves the rate at 0.
func BuildProfile(userID, businessID string, decisions []Decision, totalSignals int) *Profile {
	profile := &Profile{
		UserID:          userID,
		BusinessID:      businessID,
		PreferredWindow: WindowMid,
		CommodityUsage:  map[string]float64{},
		ToolUsage:       map[string]float64{},
		DecisionCount:   len(decisions),
		UpdatedAt:       time.Now().Unix(),
	}
	if len(decisions) == 0 {
		profile.LearnedRiskScore = 50
		return profile
	}

	var pctSum, responseSum float64
	responseCount := 0
	windowCounts := map[Window]int{}

	for _, d := range decisions {
		pctSum += d.PctAboveBE
		if d.ResponseHours != nil {
			responseSum += *d.ResponseHours
			responseCount++
		}
		windowCounts[WindowFor(time.Unix(d.DecidedAt, 0).Month())]++
		profile.CommodityUsage[string(d.Commodity)]++
		profile.ToolUsage[string(d.SignalType)]++
	}

	n := float64(len(decisions))
	profile.AvgPctAboveBE = pctSum / n
	profile.LearnedRiskScore = RiskScore(profile.AvgPctAboveBE)
	profile.ConfidenceScore = Confidence(len(decisions))

	if responseCount > 0 {
		profile.AvgResponseHours = responseSum / float64(responseCount)
	}
	if totalSignals > 0 {
		profile.ActRate = n / float64(totalSignals)
		if profile.ActRate > 1 {
			profile.ActRate = 1
		}
	}

	// Modal window, ties broken by chronology of the buckets
	best := 0
	for _, w := range []Window{WindowEarly, WindowMid, WindowLate} {
		if windowCounts[w] > best {
			best = windowCounts[w]
			profile.PreferredWindow = w
		}
	}

	for k := range profile.CommodityUsage {
		profile.CommodityUsage[k] /= n
	}
	for k := range profile.ToolUsage {
		profile.ToolUsage[k] /= n
	}

	return profile
}

// BuildThresholds derives per-(commodity, tool) cutoffs from the
// decision history. Commodities with fewer than the minimum decisions
// produce no rows; the caller keeps serving defaults for them.
func BuildThresholds(userID string, decisions []Decision) []LearnedThreshold {
	type key struct {
		commodity domain.Commodity
	}
	byCommodity := map[key][]Decision{}
	for _, d := range decisions {
		k := key{commodity: d.Commodity}
		byCommodity[k] = append(byCommodity[k], d)
	}

	now := time.Now().Unix()
	var out []LearnedThreshold
	for k, group := range byCommodity {
		if len(group) < minDecisionsForCommodity {
			continue
		}

		var pctSum float64
		tools := map[domain.SignalType]bool{}
		for _, d := range group {
			pctSum += d.PctAboveBE
			tools[d.SignalType] = true
		}
		buy, strongBuy := ThresholdsFromAvg(pctSum / float64(len(group)))

		for tool := range tools {
			out = append(out, LearnedThreshold{
				UserID:             userID,
				Commodity:          k.commodity,
				SignalType:         tool,
				BuyThreshold:       buy,
				StrongBuyThreshold: strongBuy,
				DataPoints:         len(group),
				UpdatedAt:          now,
			})
		}
	}
	return out
}
