package portfolio

import (
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/policy"
)

// ComputeTargetAllocation maps a profile to the four-sleeve target.
// The result always sums to 1.0 with cash ≥ MinCash.
func (e *Engine) ComputeTargetAllocation(profile *contracts.InvestorProfile) contracts.TargetAllocation {
	pol := e.policy
	ap := pol.Allocation
	tier := pol.TierFor(profile.RiskScore)

	// 1. Base equity from risk and horizon
	years := min(float64(profile.HorizonMonths)/12.0, ap.HorizonCapYears)
	base := ap.BaseEquity +
		ap.RiskWeight*float64(profile.RiskScore)/100.0 +
		ap.HorizonWeight*years/ap.HorizonCapYears
	base = min(base, ap.MaxBaseEquity)

	// 2. Thematic sleeve
	thematic := ap.ThematicWithoutPreferences.For(tier)
	if profile.HasPreferredSectors() {
		thematic = ap.ThematicWithPreferences.For(tier)
	}

	// 3. Cash by horizon bucket
	cash := max(ap.Cash.For(profile.HorizonMonths, tier), pol.MinCash)

	// 4. Defensive sleeve
	defensive := ap.Defensive.For(tier)

	// 5. Objective adjustment
	adj := objectiveAdjustment(ap, profile.Objective.Type)
	base *= adj.EquityMultiplier
	defensive += adj.DefensiveBonus
	if tier.IsRiskAverse() {
		defensive += adj.RiskAverseDefensiveBonus
	}

	target := contracts.TargetAllocation{
		Cash:            cash,
		CoreEquity:      base,
		ThematicSectors: thematic,
		Defensive:       defensive,
	}

	// 6. Normalise: over budget → cash pinned, equity sleeves scaled; under budget → core
	if total := target.Sum(); total > 1.0 {
		equity := target.Equity()
		scale := (1.0 - target.Cash) / equity
		target.CoreEquity *= scale
		target.ThematicSectors *= scale
		target.Defensive *= scale
	} else {
		target.CoreEquity += 1.0 - total
	}

	// 7. Final cash floor guard
	if target.Cash < pol.MinCash {
		deficit := pol.MinCash - target.Cash
		target.Cash = pol.MinCash
		target.CoreEquity = max(0, target.CoreEquity-deficit)
	}

	e.logger.WithFields(map[string]interface{}{
		"risk_score": profile.RiskScore,
		"horizon":    profile.HorizonMonths,
		"objective":  profile.Objective.Type,
		"tier":       tier.String(),
		"cash":       target.Cash,
		"core":       target.CoreEquity,
		"thematic":   target.ThematicSectors,
		"defensive":  target.Defensive,
	}).Debug("Target allocation computed")

	return target
}

func objectiveAdjustment(ap policy.AllocationPolicy, objective contracts.ObjectiveType) policy.ObjectiveAdjustment {
	switch objective {
	case contracts.ObjectiveIncome:
		return ap.Income
	case contracts.ObjectiveBalanced:
		return ap.Balanced
	default:
		return ap.Growth
	}
}
