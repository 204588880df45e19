package portfolio

import (
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/policy"
)

// Constraints are the limits resolved for one profile
// ⭐ SSOT: 플래너와 컨스트럭터가 공유하는 제약조건은 여기서만
type Constraints struct {
	Tier             policy.Tier
	MaxSectorWeight  float64 // 섹터당 최대 비중 (0.0 ~ 1.0)
	MaxPosition      float64 // 종목당 최대 비중 (0.0 ~ 1.0)
	MaxHoldings      int     // 현금 포함 최대 보유 수
	MinSectors       int
	PreferredMinimum float64 // equity 대비 선호 섹터 최소 비중
	reserveCashSlot  bool
}

// ConstraintsFor resolves the tier limits and the investor's own constraints
func (e *Engine) ConstraintsFor(profile *contracts.InvestorProfile) Constraints {
	limits := e.policy.LimitsFor(profile.RiskScore)
	return Constraints{
		Tier:             limits.Tier,
		MaxSectorWeight:  limits.MaxSectorWeight,
		MaxPosition:      profile.MaxPosition(),
		MaxHoldings:      profile.Constraints.MaxHoldings,
		MinSectors:       limits.MinSectors,
		PreferredMinimum: limits.PreferredMinimum,
		reserveCashSlot:  e.policy.Construction.ReserveCashSlot,
	}
}

// StockSlots is the number of equity positions allowed (one slot is kept for cash)
func (c Constraints) StockSlots() int {
	if !c.reserveCashSlot {
		return max(1, c.MaxHoldings)
	}
	return max(1, c.MaxHoldings-1)
}
