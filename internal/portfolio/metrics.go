package portfolio

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/copilot/internal/contracts"
)

// ComputeMetrics calculates concentration metrics and advisory constraint violations.
// Fails only when holdings plus cash are more than WeightSumTolerance away from 1.0.
// profile may be nil, in which case no violations are reported.
func (e *Engine) ComputeMetrics(p contracts.Portfolio, profile *contracts.InvestorProfile) (*contracts.PortfolioMetrics, error) {
	total := p.Total()
	if math.Abs(total-1.0) > e.policy.WeightSumTolerance {
		return nil, &contracts.ValidationError{
			Field:   "weights",
			Message: fmt.Sprintf("Weights sum to %.4f, expected ~1.0", total),
		}
	}

	weights := make([]float64, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		weights = append(weights, h.Weight)
	}
	sorted := append([]float64(nil), weights...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	hhi := 0.0
	if len(weights) > 0 {
		hhi = floats.Dot(weights, weights)
	}
	if p.CashWeight > 0 {
		hhi += p.CashWeight * p.CashWeight
	}

	totalHoldings := len(p.Holdings)
	if p.CashWeight > 0 {
		totalHoldings++ // 현금도 한 자리
	}

	sectorAllocation := make(map[string]float64)
	tickerSectors := make(map[string]string, len(p.Holdings))
	for _, h := range p.Holdings {
		ticker := contracts.NormalizeTicker(h.Ticker)
		sector := e.sectorOf(ticker)
		tickerSectors[ticker] = sector
		sectorAllocation[sector] += h.Weight
	}

	m := &contracts.PortfolioMetrics{
		TotalHoldings:        totalHoldings,
		Top1Weight:           topN(sorted, 1),
		Top3Weight:           topN(sorted, 3),
		Top5Weight:           topN(sorted, 5),
		HerfindahlIndex:      hhi,
		ConstraintViolations: make([]string, 0),
		SectorAllocation:     sectorAllocation,
		TickerSectors:        tickerSectors,
	}

	if profile != nil {
		m.ConstraintViolations = constraintViolations(p, profile, totalHoldings)
	}

	return m, nil
}

// constraintViolations lists advisory violations; they never fail the call
func constraintViolations(p contracts.Portfolio, profile *contracts.InvestorProfile, totalHoldings int) []string {
	violations := make([]string, 0)

	if maxHoldings := profile.Constraints.MaxHoldings; totalHoldings > maxHoldings {
		violations = append(violations, fmt.Sprintf("Too many holdings: %d > %d", totalHoldings, maxHoldings))
	}

	maxPos := profile.MaxPosition()
	for _, h := range p.Holdings {
		if h.Weight > maxPos+1e-9 {
			violations = append(violations, fmt.Sprintf("%s: %.1f%% > %.1f%% max",
				contracts.NormalizeTicker(h.Ticker), h.Weight*100, profile.Constraints.MaxPositionPct))
		}
	}

	for _, h := range p.Holdings {
		if exclusion, ok := profile.MatchExclusion(h.Ticker); ok {
			violations = append(violations, fmt.Sprintf("%s violates exclusion: %s",
				contracts.NormalizeTicker(h.Ticker), exclusion))
		}
	}

	return violations
}

// topN sums the first n weights of a descending slice
func topN(sorted []float64, n int) float64 {
	n = min(n, len(sorted))
	if n == 0 {
		return 0
	}
	return floats.Sum(sorted[:n])
}
