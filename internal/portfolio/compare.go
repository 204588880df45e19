package portfolio

import (
	"fmt"
	"math"

	"github.com/wonny/copilot/internal/contracts"
)

// sectorChangeThreshold hides sector moves smaller than 0.1%p
const sectorChangeThreshold = 0.001

// Compare computes metrics for both portfolios and how the recommendation changes them
func (e *Engine) Compare(current, recommended contracts.Portfolio, profile *contracts.InvestorProfile) (*contracts.PortfolioComparison, error) {
	currentMetrics, err := e.ComputeMetrics(current, profile)
	if err != nil {
		return nil, fmt.Errorf("current portfolio: %w", err)
	}
	recommendedMetrics, err := e.ComputeMetrics(recommended, profile)
	if err != nil {
		return nil, fmt.Errorf("recommended portfolio: %w", err)
	}

	diff := contracts.PortfolioDifferences{
		HoldingsChange:          len(recommended.Holdings) - len(current.Holdings),
		RiskChange:              recommendedMetrics.HerfindahlIndex - currentMetrics.HerfindahlIndex,
		Top1WeightChange:        recommendedMetrics.Top1Weight - currentMetrics.Top1Weight,
		Top3WeightChange:        recommendedMetrics.Top3Weight - currentMetrics.Top3Weight,
		Top5WeightChange:        recommendedMetrics.Top5Weight - currentMetrics.Top5Weight,
		CashWeightChange:        recommended.CashWeight - current.CashWeight,
		SectorAllocationChanges: make(map[string]contracts.SectorChange),
	}

	sectors := make(map[string]bool)
	for s := range currentMetrics.SectorAllocation {
		sectors[s] = true
	}
	for s := range recommendedMetrics.SectorAllocation {
		sectors[s] = true
	}
	for s := range sectors {
		cur := currentMetrics.SectorAllocation[s]
		rec := recommendedMetrics.SectorAllocation[s]
		if math.Abs(rec-cur) > sectorChangeThreshold {
			diff.SectorAllocationChanges[s] = contracts.SectorChange{Current: cur, Recommended: rec, Change: rec - cur}
		}
	}

	return &contracts.PortfolioComparison{
		Current:     currentMetrics,
		Recommended: recommendedMetrics,
		Differences: diff,
	}, nil
}
