// Package stats holds the pure statistical functions used by the analyzers:
// Wilson score intervals, the exact binomial test, Bonferroni correction,
// sample-size estimation and the teammate baseline model.
package stats

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/mathx"
	moremath "github.com/aclements/go-moremath/stats"
)

const (
	DefaultConfidence = 0.95
	DefaultAlpha      = 0.05
	DefaultPower      = 0.80
)

// relativeTolerance absorbs floating point noise when comparing binomial
// probabilities against the observed outcome.
const relativeTolerance = 1 + 1e-7

// ZScore returns the two-sided standard normal quantile for confidence,
// 1.959964 for 0.95. Values outside (0, 1) fall back to DefaultConfidence.
func ZScore(confidence float64) float64 {
	if !(confidence > 0 && confidence < 1) {
		confidence = DefaultConfidence
	}
	return moremath.StdNormal.InvCDF(1 - (1-confidence)/2)
}

// WilsonCI returns the Wilson score interval for wins out of total. A zero
// total yields (0, 0). Bounds are clamped to [0, 1].
func WilsonCI(wins, total int, confidence float64) (lower, upper float64) {
	if total <= 0 {
		return 0.0, 0.0
	}
	if wins < 0 {
		wins = 0
	}
	if wins > total {
		wins = total
	}

	n := float64(total)
	p := float64(wins) / n
	z := ZScore(confidence)
	z2 := z * z

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom

	lower = clamp01(center - margin)
	upper = clamp01(center + margin)

	// The closed forms reach the bounds exactly; rounding must not pull
	// them inside.
	if wins == 0 {
		lower = 0.0
	}
	if wins == total {
		upper = 1.0
	}
	return Native(lower), Native(upper)
}

// BinomialResult is the outcome of an exact binomial test.
type BinomialResult struct {
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// BinomialTest runs a two-sided exact binomial test of H0: p = expected. The
// p-value sums the probabilities of every outcome no more likely than the
// observed one. A zero total is never significant.
func BinomialTest(wins, total int, expected, alpha float64) BinomialResult {
	if total <= 0 || wins < 0 || wins > total {
		return BinomialResult{PValue: 1.0}
	}
	expected = clamp01(expected)

	var pValue float64
	switch {
	case expected == 0:
		pValue = indicator(wins == 0)
	case expected == 1:
		pValue = indicator(wins == total)
	default:
		pValue = twoSidedExact(wins, total, expected)
	}
	pValue = Native(math.Min(pValue, 1.0))
	return BinomialResult{
		PValue:      pValue,
		Significant: pValue < alpha,
	}
}

func twoSidedExact(k, n int, p float64) float64 {
	if float64(k) == float64(n)*p {
		return 1.0
	}
	logP := math.Log(p)
	logQ := math.Log1p(-p)
	logPMF := func(i int) float64 {
		return mathx.Lchoose(n, i) + float64(i)*logP + float64(n-i)*logQ
	}

	observed := math.Exp(logPMF(k)) * relativeTolerance
	var sum float64
	for i := 0; i <= n; i++ {
		if d := math.Exp(logPMF(i)); d <= observed {
			sum += d
		}
	}
	return sum
}

// Corrected annotates a record with its Bonferroni-adjusted significance.
type Corrected[T any] struct {
	Record               T
	PValue               float64
	CorrectedAlpha       float64
	SignificantCorrected bool
}

// Bonferroni returns a new slice in which every record is tested against
// alpha / len(records). The input is not modified. An empty input returns an
// empty slice.
func Bonferroni[T any](records []T, pValue func(T) float64, alpha float64) []Corrected[T] {
	out := make([]Corrected[T], 0, len(records))
	if len(records) == 0 {
		return out
	}
	corrected := Native(alpha / float64(len(records)))
	for _, r := range records {
		p := pValue(r)
		out = append(out, Corrected[T]{
			Record:               r,
			PValue:               p,
			CorrectedAlpha:       corrected,
			SignificantCorrected: p < corrected,
		})
	}
	return out
}

// RequiredSampleSize returns the number of games needed to detect a win rate
// that differs from baseline by effect, using a two-sided test at alpha with
// the given power:
//
//	n = ((z(1-alpha/2)*sqrt(p0*q0) + z(power)*sqrt(p1*q1)) / effect)^2
//
// with p1 = baseline + effect, or baseline - effect when that would exceed 1.
func RequiredSampleSize(baseline, effect, alpha, power float64) (int, error) {
	if !(effect > 0 && effect < 1) {
		return 0, fmt.Errorf("effect size must be in (0, 1), got %v", effect)
	}
	if !(alpha > 0 && alpha < 1) {
		return 0, fmt.Errorf("alpha must be in (0, 1), got %v", alpha)
	}
	if !(power > 0 && power < 1) {
		return 0, fmt.Errorf("power must be in (0, 1), got %v", power)
	}
	if !(baseline >= 0 && baseline <= 1) {
		return 0, fmt.Errorf("baseline must be in [0, 1], got %v", baseline)
	}

	p0 := baseline
	p1 := baseline + effect
	if p1 > 1 {
		p1 = baseline - effect
	}
	if p1 < 0 {
		return 0, fmt.Errorf("effect %v is not reachable from baseline %v", effect, baseline)
	}

	zAlpha := moremath.StdNormal.InvCDF(1 - alpha/2)
	zBeta := moremath.StdNormal.InvCDF(power)
	num := zAlpha*math.Sqrt(p0*(1-p0)) + zBeta*math.Sqrt(p1*(1-p1))
	n := math.Pow(num/effect, 2)
	return int(math.Ceil(n)), nil
}

// ExpectedWinRateAverage is the average baseline model: teammates share one
// match outcome, so the pair is expected to win at the mean of their solo
// win rates.
func ExpectedWinRateAverage(a, b float64) float64 {
	return Native((a + b) / 2)
}

// ExpectedWinRateMultiplicative is the independence model a*b. It treats the
// two outcomes as independent events and understates the baseline for
// teammates; it is reported for comparison only.
func ExpectedWinRateMultiplicative(a, b float64) float64 {
	return Native(a * b)
}

// Native maps NaN and infinities to 0 so only finite float64 values reach
// storage.
func Native(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0.0
	}
	return float64(x)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func indicator(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
