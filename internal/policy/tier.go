package policy

// Tier is the risk-tolerance bucket derived from risk_score
type Tier int

const (
	TierVeryRiskAverse Tier = iota // risk_score < 35
	TierRiskAverse                 // risk_score < 50
	TierModerate                   // risk_score < 70
	TierAggressive
)

func (t Tier) String() string {
	switch t {
	case TierVeryRiskAverse:
		return "very_risk_averse"
	case TierRiskAverse:
		return "risk_averse"
	case TierModerate:
		return "moderate"
	default:
		return "aggressive"
	}
}

// IsRiskAverse is true for both risk-averse tiers (very risk-averse implies risk-averse)
func (t Tier) IsRiskAverse() bool {
	return t <= TierRiskAverse
}

// IsVeryRiskAverse is true only for the lowest tier
func (t Tier) IsVeryRiskAverse() bool {
	return t == TierVeryRiskAverse
}

// TierFor classifies a risk score
func (p *Policy) TierFor(riskScore int) Tier {
	switch {
	case riskScore < p.Tiers.VeryRiskAverse:
		return TierVeryRiskAverse
	case riskScore < p.Tiers.RiskAverse:
		return TierRiskAverse
	case riskScore < p.Tiers.Moderate:
		return TierModerate
	default:
		return TierAggressive
	}
}

// Limits are the sector/position limits the planner and constructor share
type Limits struct {
	Tier             Tier
	MaxSectorWeight  float64
	MinSectors       int
	PreferredMinimum float64
}

// LimitsFor resolves the tier limits of a risk score
func (p *Policy) LimitsFor(riskScore int) Limits {
	tier := p.TierFor(riskScore)
	return Limits{
		Tier:             tier,
		MaxSectorWeight:  p.Sectors.MaxWeight.For(tier),
		MinSectors:       p.Sectors.MinSectors.For(tier),
		PreferredMinimum: p.Sectors.PreferredMinimum.For(tier),
	}
}
