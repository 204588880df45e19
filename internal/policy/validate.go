package policy

import (
	"fmt"

	"github.com/wonny/copilot/internal/contracts"
)

func invalid(field, message string) error {
	return &contracts.ValidationError{Field: field, Message: message}
}

// Validate checks all policy constraints
func Validate(p *Policy) error {
	// === Global ===
	if p.MinCash <= 0 || p.MinCash >= 0.5 {
		return invalid("min_cash", "must be in (0, 0.5)")
	}
	for field, v := range map[string]float64{
		"weight_sum_tolerance": p.WeightSumTolerance,
		"action_threshold":     p.ActionThreshold,
		"rounding_tolerance":   p.RoundingTolerance,
		"normalize_tolerance":  p.NormalizeTolerance,
	} {
		if v <= 0 || v > 0.1 {
			return invalid(field, "must be in (0, 0.1]")
		}
	}

	// === Tiers ===
	t := p.Tiers
	if !(0 < t.VeryRiskAverse && t.VeryRiskAverse <= t.RiskAverse && t.RiskAverse <= t.Moderate && t.Moderate <= 100) {
		return invalid("tiers", "thresholds must satisfy 0 < very_risk_averse <= risk_averse <= moderate <= 100")
	}

	// === Allocation ===
	a := p.Allocation
	if a.MaxBaseEquity <= 0 || a.MaxBaseEquity > 1 {
		return invalid("allocation.max_base_equity", "must be in (0, 1]")
	}
	if a.HorizonCapYears <= 0 {
		return invalid("allocation.horizon_cap_years", "must be > 0")
	}
	if a.BaseEquity < 0 || a.RiskWeight < 0 || a.HorizonWeight < 0 {
		return invalid("allocation", "base_equity, risk_weight and horizon_weight must be >= 0")
	}
	if a.Cash.ShortTermMonths <= 0 || a.Cash.MidTermMonths < a.Cash.ShortTermMonths {
		return invalid("allocation.cash", "require 0 < short_term_months <= mid_term_months")
	}
	for field, v := range map[string]TierValues{
		"allocation.thematic_with_preferences":    a.ThematicWithPreferences,
		"allocation.thematic_without_preferences": a.ThematicWithoutPreferences,
		"allocation.defensive":                    a.Defensive,
		"allocation.cash.short_term":              a.Cash.ShortTerm,
		"allocation.cash.mid_term":                a.Cash.MidTerm,
		"allocation.cash.long_term":               a.Cash.LongTerm,
		"sectors.preferred_minimum":               p.Sectors.PreferredMinimum,
	} {
		if err := validateFractions(field, v, false); err != nil {
			return err
		}
	}
	for field, adj := range map[string]ObjectiveAdjustment{
		"allocation.income":   a.Income,
		"allocation.balanced": a.Balanced,
		"allocation.growth":   a.Growth,
	} {
		if adj.EquityMultiplier <= 0 || adj.EquityMultiplier > 1.5 {
			return invalid(field+".equity_multiplier", "must be in (0, 1.5]")
		}
		if adj.DefensiveBonus < 0 || adj.RiskAverseDefensiveBonus < 0 {
			return invalid(field, "defensive bonuses must be >= 0")
		}
	}

	// === Sectors ===
	if err := validateFractions("sectors.max_weight", p.Sectors.MaxWeight, true); err != nil {
		return err
	}
	m := p.Sectors.MinSectors
	if m.VeryRiskAverse < 1 || m.RiskAverse < 1 || m.Moderate < 1 || m.Aggressive < 1 {
		return invalid("sectors.min_sectors", "must be >= 1 for every tier")
	}
	if p.Sectors.PreferredRatio < 0 || p.Sectors.PreferredRatio > 1 {
		return invalid("sectors.preferred_ratio", "must be in [0, 1]")
	}

	// === Diversification ===
	d := p.Diversification
	if d.LongTermMonths < 0 {
		return invalid("diversification.long_term_months", "must be >= 0")
	}
	if d.MinHoldings < 1 {
		return invalid("diversification.min_holdings", "must be >= 1")
	}
	if d.TopTwoLimit <= 0 || d.TopTwoLimit > 1 {
		return invalid("diversification.top_two_limit", "must be in (0, 1]")
	}

	// === Construction ===
	c := p.Construction
	if c.DefensiveRiskScore < 1 || c.DefensiveRiskScore > 100 {
		return invalid("construction.defensive_risk_score", "must be in [1, 100]")
	}
	if c.MinDefensiveCandidates < 0 || c.MaxDefensiveCandidates < c.MinDefensiveCandidates {
		return invalid("construction", "require 0 <= min_defensive_candidates <= max_defensive_candidates")
	}
	if c.MinStocks < 1 || c.ThematicPerSector < 1 || c.MinThematicPicks < 1 {
		return invalid("construction", "min_stocks, thematic_per_sector and min_thematic_picks must be >= 1")
	}

	return nil
}

func validateFractions(field string, v TierValues, positive bool) error {
	for tier, x := range []float64{v.VeryRiskAverse, v.RiskAverse, v.Moderate, v.Aggressive} {
		if x < 0 || x > 1 || (positive && x == 0) {
			return invalid(fmt.Sprintf("%s.%s", field, Tier(tier)), "must be a fraction in [0, 1]")
		}
	}
	return nil
}
