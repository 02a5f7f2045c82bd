package signals

import (
	"fmt"
	"math"

	"github.com/grainwise/grainwise/internal/clients/marketdata"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/pkg/formulas"
)

// Thresholds are the BUY/STRONG_BUY percent-margin cutoffs used by the
// evaluator, either the defaults or a user's learned overrides.
type Thresholds struct {
	Buy       float64
	StrongBuy float64
}

// DefaultThresholds returns the stock cutoffs: BUY at 10% above
// break-even, STRONG_BUY at 15%.
func DefaultThresholds() Thresholds {
	return Thresholds{Buy: 0.10, StrongBuy: 0.15}
}

// Sell-down fractions per strength. A STRONG_BUY recommends committing a
// quarter of remaining bushels; a BUY somewhat less.
const (
	strongBuyPct = 0.25
	buyPct       = 0.15
)

// rsiOverbought is the RSI level above which a downtrending market is
// treated as due for a reversal.
const rsiOverbought = 70

// weakBasisCutoff flags basis weak enough that locking futures while
// leaving basis open beats a straight cash sale.
const weakBasisCutoff = -0.15

// knockoutProximityPct is how close (fractionally) price must get to an
// accumulator knockout barrier before a warning fires.
const knockoutProximityPct = 0.05

// minDaysToHarvest is the shortest accumulation window worth opening a
// new accumulator contract over.
const minDaysToHarvest = 60

// Input carries everything one evaluation needs. The evaluator itself is
// pure: it touches no storage and no clock.
type Input struct {
	SignalType domain.SignalType
	Snapshot   *marketdata.Snapshot

	BreakEven          float64
	RiskTolerance      domain.RiskTolerance
	TargetProfitMargin float64 // $/bu
	MinAboveBreakEven  float64 // fraction
	Thresholds         Thresholds

	// TotalBushels is the caller-supplied remaining unsold inventory.
	// Recommended bushels never exceed it.
	TotalBushels int64

	// Accumulator monitoring
	Accumulators []AccumulatorPosition

	// Accumulator inquiry
	DaysToHarvest int
}

// Evaluation is the outcome of one threshold evaluation, before any
// persistence decision.
type Evaluation struct {
	Strength           domain.Strength
	Title              string
	Summary            string
	Rationale          string
	RecommendedAction  string
	RecommendedBushels *int64

	// Actionable marks evaluations worth storing as signals. Weak
	// classifications are computed for callers but suppressed.
	Actionable bool
}

// PctMargin computes the fractional margin of price over break-even,
// guarded to 0 when break-even is not positive.
func PctMargin(price, breakEven float64) float64 {
	if breakEven <= 0 {
		return 0
	}
	return (price - breakEven) / breakEven
}

// Evaluate classifies one (commodity, tool) pair against the market
// snapshot. Returns nil when the tool type is not evaluator-driven.
func Evaluate(in Input) *Evaluation {
	switch in.SignalType {
	case domain.SignalCashSale:
		return evaluateCashSale(in)
	case domain.SignalBasisContract:
		return evaluateBasisContract(in)
	case domain.SignalHedgeToArrive:
		return evaluateHedgeToArrive(in)
	case domain.SignalAccumulator:
		return evaluateAccumulator(in)
	case domain.SignalAccumulatorInquiry:
		return evaluateAccumulatorInquiry(in)
	default:
		return nil
	}
}

// evaluateCashSale classifies an outright cash sale opportunity.
// Thresholds are divided by the risk multiplier, so an aggressive user
// (0.7x) needs a larger margin before being nudged to sell and a
// conservative user (1.5x) is nudged earlier.
func evaluateCashSale(in Input) *Evaluation {
	mult := in.RiskTolerance.Multiplier()
	price := in.Snapshot.CashPrice
	margin := price - in.BreakEven
	pctMargin := PctMargin(price, in.BreakEven)

	strongBuyCutoff := in.Thresholds.StrongBuy / mult
	buyCutoff := in.Thresholds.Buy / mult

	overboughtDowntrend := in.Snapshot.Trend == formulas.TrendDown &&
		in.Snapshot.RSI != nil && *in.Snapshot.RSI > rsiOverbought

	var strength domain.Strength
	switch {
	case pctMargin >= strongBuyCutoff && overboughtDowntrend:
		strength = domain.StrengthStrongBuy
	case pctMargin >= buyCutoff && margin >= in.TargetProfitMargin:
		strength = domain.StrengthBuy
	case pctMargin >= in.MinAboveBreakEven:
		strength = domain.StrengthHold
	case pctMargin >= 0:
		strength = domain.StrengthSell
	default:
		strength = domain.StrengthStrongSell
	}

	eval := &Evaluation{
		Strength:   strength,
		Actionable: strength.Actionable(),
	}
	if !eval.Actionable {
		return eval
	}

	eval.RecommendedBushels = recommendBushels(in.TotalBushels, strength)
	eval.Title = fmt.Sprintf("%s cash sale opportunity", in.Snapshot.Commodity)
	eval.Summary = fmt.Sprintf("Cash price $%.2f is %.1f%% above your $%.2f break-even.",
		price, pctMargin*100, in.BreakEven)
	eval.RecommendedAction = actionText(eval.RecommendedBushels, "cash sale")

	if strength == domain.StrengthStrongBuy {
		eval.Rationale = fmt.Sprintf(
			"Margin of %.1f%% clears the %.1f%% strong-signal cutoff while the market is "+
				"trending down with RSI at %.0f. Prices this stretched in a downtrend tend to fade; "+
				"locking in gains now protects the margin.",
			pctMargin*100, strongBuyCutoff*100, *in.Snapshot.RSI)
	} else {
		eval.Rationale = fmt.Sprintf(
			"Margin of %.1f%% clears the %.1f%% cutoff and the $%.2f/bu profit exceeds your "+
				"$%.2f/bu target. Selling a tranche here locks profit without going all-in.",
			pctMargin*100, buyCutoff*100, margin, in.TargetProfitMargin)
	}
	return eval
}

// evaluateBasisContract signals when local basis is historically strong.
func evaluateBasisContract(in Input) *Evaluation {
	if in.Snapshot.BasisPercentile == nil {
		return &Evaluation{Strength: domain.StrengthHold}
	}

	mult := in.RiskTolerance.Multiplier()
	percentile := *in.Snapshot.BasisPercentile

	var strength domain.Strength
	switch {
	case percentile >= 75/mult:
		strength = domain.StrengthStrongBuy
	case percentile >= 50/mult:
		strength = domain.StrengthBuy
	default:
		return &Evaluation{Strength: domain.StrengthHold}
	}

	eval := &Evaluation{
		Strength:           strength,
		Actionable:         true,
		RecommendedBushels: recommendBushels(in.TotalBushels, strength),
	}
	eval.Title = fmt.Sprintf("%s basis contract opportunity", in.Snapshot.Commodity)
	eval.Summary = fmt.Sprintf("Local basis of %+.2f is stronger than %.0f%% of the trailing year.",
		in.Snapshot.Basis, percentile)
	eval.Rationale = fmt.Sprintf(
		"Basis at the %.0f percentile of its trailing-12-month range is unusually strong. "+
			"A basis contract locks that strength now while leaving the futures side open.",
		percentile)
	eval.RecommendedAction = actionText(eval.RecommendedBushels, "basis contract")
	return eval
}

// evaluateHedgeToArrive signals when futures carry the margin but local
// basis is weak enough to leave open.
func evaluateHedgeToArrive(in Input) *Evaluation {
	mult := in.RiskTolerance.Multiplier()
	futuresAboveBE := PctMargin(in.Snapshot.FuturesPrice+in.Snapshot.Basis, in.BreakEven)
	weakBasis := in.Snapshot.Basis < weakBasisCutoff

	var strength domain.Strength
	switch {
	case weakBasis && futuresAboveBE >= in.Thresholds.StrongBuy/mult:
		strength = domain.StrengthStrongBuy
	case weakBasis && futuresAboveBE >= in.Thresholds.Buy/mult:
		strength = domain.StrengthBuy
	default:
		return &Evaluation{Strength: domain.StrengthHold}
	}

	eval := &Evaluation{
		Strength:           strength,
		Actionable:         true,
		RecommendedBushels: recommendBushels(in.TotalBushels, strength),
	}
	eval.Title = fmt.Sprintf("%s hedge-to-arrive opportunity", in.Snapshot.Commodity)
	eval.Summary = fmt.Sprintf("Futures at $%.2f carry a %.1f%% margin over break-even while basis sits at %+.2f.",
		in.Snapshot.FuturesPrice, futuresAboveBE*100, in.Snapshot.Basis)
	eval.Rationale = fmt.Sprintf(
		"Futures alone clear the margin cutoff but basis (%+.2f) is weaker than %.2f. "+
			"An HTA locks the futures price now and leaves basis open to improve before delivery.",
		in.Snapshot.Basis, weakBasisCutoff)
	eval.RecommendedAction = actionText(eval.RecommendedBushels, "hedge-to-arrive contract")
	return eval
}

// evaluateAccumulator monitors open accumulator contracts for barrier
// events. The knockout warning is the most urgent signal the engine
// produces and is always surfaced.
func evaluateAccumulator(in Input) *Evaluation {
	price := in.Snapshot.FuturesPrice

	for _, pos := range in.Accumulators {
		if pos.KnockoutBarrier != nil && !pos.KnockoutReached {
			ko := *pos.KnockoutBarrier
			if price < ko && price >= ko*(1-knockoutProximityPct) {
				return &Evaluation{
					Strength:   domain.StrengthStrongSell,
					Actionable: true,
					Title:      fmt.Sprintf("%s accumulator near knockout", in.Snapshot.Commodity),
					Summary: fmt.Sprintf("Futures at $%.2f are within %.0f%% of the $%.2f knockout barrier.",
						price, knockoutProximityPct*100, ko),
					Rationale: "If the knockout triggers, accumulation stops and remaining bushels " +
						"lose their contracted price. Consider pricing uncommitted bushels before the barrier is hit.",
					RecommendedAction: "Review the accumulator contract and price exposed bushels now.",
				}
			}
		}
		if pos.DoubleUpBarrier != nil && price < *pos.DoubleUpBarrier {
			return &Evaluation{
				Strength:   domain.StrengthBuy,
				Actionable: true,
				Title:      fmt.Sprintf("%s accumulator double-up active", in.Snapshot.Commodity),
				Summary: fmt.Sprintf("Futures at $%.2f are below the $%.2f double-up barrier.",
					price, *pos.DoubleUpBarrier),
				Rationale: "While price stays below the double-up barrier the contract accumulates " +
					"bushels at twice the daily rate. Factor the faster commitment pace into remaining-inventory plans.",
				RecommendedAction: "Verify remaining unsold bushels cover the doubled accumulation rate.",
			}
		}
	}

	return &Evaluation{Strength: domain.StrengthHold}
}

// evaluateAccumulatorInquiry gates a prospective accumulator contract on
// margin, volatility regime, and time to harvest. All three gates plus a
// strong margin make STRONG_BUY; two of three make BUY; anything less is
// an informational HOLD.
func evaluateAccumulatorInquiry(in Input) *Evaluation {
	mult := in.RiskTolerance.Multiplier()
	pctMargin := PctMargin(in.Snapshot.CashPrice, in.BreakEven)

	marginOK := pctMargin >= in.Thresholds.Buy/mult
	volatilityOK := in.Snapshot.Volatility != nil && *in.Snapshot.Volatility != formulas.VolatilityHigh
	timingOK := in.DaysToHarvest > minDaysToHarvest

	passed := 0
	for _, ok := range []bool{marginOK, volatilityOK, timingOK} {
		if ok {
			passed++
		}
	}

	var strength domain.Strength
	switch {
	case passed == 3 && pctMargin >= in.Thresholds.StrongBuy/mult:
		strength = domain.StrengthStrongBuy
	case passed >= 2:
		strength = domain.StrengthBuy
	default:
		strength = domain.StrengthHold
	}

	eval := &Evaluation{
		Strength:   strength,
		Actionable: strength.Actionable(),
	}

	gates := fmt.Sprintf("margin %.1f%% (%s), volatility %s (%s), %d days to harvest (%s)",
		pctMargin*100, passFail(marginOK),
		volatilityLabel(in.Snapshot.Volatility), passFail(volatilityOK),
		in.DaysToHarvest, passFail(timingOK))

	if !eval.Actionable {
		eval.Rationale = "Conditions do not favor opening an accumulator: " + gates
		return eval
	}

	eval.RecommendedBushels = recommendBushels(in.TotalBushels, strength)
	eval.Title = fmt.Sprintf("%s accumulator entry conditions", in.Snapshot.Commodity)
	eval.Summary = fmt.Sprintf("%d of 3 entry conditions hold for a new accumulator contract.", passed)
	eval.Rationale = "Accumulators need a profitable corridor, calm markets, and a long accumulation " +
		"window to work. Current read: " + gates
	eval.RecommendedAction = actionText(eval.RecommendedBushels, "accumulator contract")
	return eval
}

// recommendBushels converts a strength into a bushel quantity: a fixed
// fraction of remaining inventory, rounded to the nearest bushel and
// never exceeding what is left.
func recommendBushels(totalBushels int64, strength domain.Strength) *int64 {
	if totalBushels <= 0 {
		return nil
	}

	pct := buyPct
	if strength == domain.StrengthStrongBuy {
		pct = strongBuyPct
	}

	bushels := int64(math.Round(float64(totalBushels) * pct))
	if bushels > totalBushels {
		bushels = totalBushels
	}
	if bushels <= 0 {
		return nil
	}
	return &bushels
}

func actionText(bushels *int64, instrument string) string {
	if bushels == nil {
		return fmt.Sprintf("Discuss a %s with your elevator.", instrument)
	}
	return fmt.Sprintf("Price %d bushels via %s.", *bushels, instrument)
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func volatilityLabel(v *formulas.VolatilityRegime) string {
	if v == nil {
		return "UNKNOWN"
	}
	return string(*v)
}
