package policy

// Policy holds every numeric constant of the allocation engine
// ⭐ SSOT: 정책 상수는 여기서만 정의, 코드 내 리터럴 금지
// 값은 모두 비율(0.0 ~ 1.0), 개월 수, 또는 개수
type Policy struct {
	MinCash            float64 `yaml:"min_cash"`             // 최소 현금 비중
	WeightSumTolerance float64 `yaml:"weight_sum_tolerance"` // 포트폴리오 합계 허용 오차
	ActionThreshold    float64 `yaml:"action_threshold"`     // 이보다 작은 변화는 액션 생략
	RoundingTolerance  float64 `yaml:"rounding_tolerance"`   // 반올림 잔차 허용치
	NormalizeTolerance float64 `yaml:"normalize_tolerance"`  // 정규화 트리거 오차

	Tiers           TierThresholds        `yaml:"tiers"`
	Allocation      AllocationPolicy      `yaml:"allocation"`
	Sectors         SectorPolicy          `yaml:"sectors"`
	Diversification DiversificationPolicy `yaml:"diversification"`
	Construction    ConstructionPolicy    `yaml:"construction"`
	Notes           NotePolicy            `yaml:"notes"`
}

// TierThresholds are exclusive upper bounds on risk_score
type TierThresholds struct {
	VeryRiskAverse int `yaml:"very_risk_averse"`
	RiskAverse     int `yaml:"risk_averse"`
	Moderate       int `yaml:"moderate"`
}

// TierValues is one value per risk tier
type TierValues struct {
	VeryRiskAverse float64 `yaml:"very_risk_averse"`
	RiskAverse     float64 `yaml:"risk_averse"`
	Moderate       float64 `yaml:"moderate"`
	Aggressive     float64 `yaml:"aggressive"`
}

// For returns the value of a tier
func (v TierValues) For(t Tier) float64 {
	switch t {
	case TierVeryRiskAverse:
		return v.VeryRiskAverse
	case TierRiskAverse:
		return v.RiskAverse
	case TierModerate:
		return v.Moderate
	default:
		return v.Aggressive
	}
}

// TierCounts is one count per risk tier
type TierCounts struct {
	VeryRiskAverse int `yaml:"very_risk_averse"`
	RiskAverse     int `yaml:"risk_averse"`
	Moderate       int `yaml:"moderate"`
	Aggressive     int `yaml:"aggressive"`
}

// For returns the count of a tier
func (c TierCounts) For(t Tier) int {
	switch t {
	case TierVeryRiskAverse:
		return c.VeryRiskAverse
	case TierRiskAverse:
		return c.RiskAverse
	case TierModerate:
		return c.Moderate
	default:
		return c.Aggressive
	}
}

// AllocationPolicy drives the four-sleeve target
type AllocationPolicy struct {
	// base_equity = min(max, base + risk·risk_weight + min(years, cap)/cap·horizon_weight)
	BaseEquity      float64 `yaml:"base_equity"`
	RiskWeight      float64 `yaml:"risk_weight"`
	HorizonWeight   float64 `yaml:"horizon_weight"`
	HorizonCapYears float64 `yaml:"horizon_cap_years"`
	MaxBaseEquity   float64 `yaml:"max_base_equity"`

	ThematicWithPreferences    TierValues `yaml:"thematic_with_preferences"`
	ThematicWithoutPreferences TierValues `yaml:"thematic_without_preferences"`
	Defensive                  TierValues `yaml:"defensive"`
	Cash                       CashTable  `yaml:"cash"`

	Income   ObjectiveAdjustment `yaml:"income"`
	Balanced ObjectiveAdjustment `yaml:"balanced"`
	Growth   ObjectiveAdjustment `yaml:"growth"`
}

// CashTable is the cash sleeve by horizon bucket and tier
type CashTable struct {
	ShortTermMonths int        `yaml:"short_term_months"` // horizon < short → ShortTerm
	MidTermMonths   int        `yaml:"mid_term_months"`   // horizon < mid → MidTerm
	ShortTerm       TierValues `yaml:"short_term"`
	MidTerm         TierValues `yaml:"mid_term"`
	LongTerm        TierValues `yaml:"long_term"`
}

// For returns the cash sleeve for a horizon and tier
func (c CashTable) For(horizonMonths int, t Tier) float64 {
	switch {
	case horizonMonths < c.ShortTermMonths:
		return c.ShortTerm.For(t)
	case horizonMonths < c.MidTermMonths:
		return c.MidTerm.For(t)
	default:
		return c.LongTerm.For(t)
	}
}

// ObjectiveAdjustment reshapes the base equity and defensive sleeves per objective
type ObjectiveAdjustment struct {
	EquityMultiplier         float64 `yaml:"equity_multiplier"`
	DefensiveBonus           float64 `yaml:"defensive_bonus"`
	RiskAverseDefensiveBonus float64 `yaml:"risk_averse_defensive_bonus"`
}

// SectorPolicy holds the diversification caps
type SectorPolicy struct {
	MaxWeight        TierValues `yaml:"max_weight"`
	MinSectors       TierCounts `yaml:"min_sectors"`
	PreferredMinimum TierValues `yaml:"preferred_minimum"` // 선호 섹터 최소 비중 (equity 대비)
	PreferredRatio   float64    `yaml:"preferred_ratio"`   // 신규 종목 중 선호 섹터 비율
}

// DiversificationPolicy decides when a rebalance adds holdings
type DiversificationPolicy struct {
	LongTermMonths int     `yaml:"long_term_months"` // horizon > 이 값이면 장기
	MinHoldings    int     `yaml:"min_holdings"`
	TopTwoLimit    float64 `yaml:"top_two_limit"`
}

// ConstructionPolicy drives from-scratch construction
type ConstructionPolicy struct {
	DefensiveRiskScore     int  `yaml:"defensive_risk_score"` // 이 점수 미만이면 방어주 후보
	MinDefensiveCandidates int  `yaml:"min_defensive_candidates"`
	MaxDefensiveCandidates int  `yaml:"max_defensive_candidates"`
	MinStocks              int  `yaml:"min_stocks"`
	ThematicPerSector      int  `yaml:"thematic_per_sector"`
	MinThematicPicks       int  `yaml:"min_thematic_picks"`
	ReserveCashSlot        bool `yaml:"reserve_cash_slot"` // max_holdings 중 한 자리는 현금
}

// NotePolicy holds thresholds of informational notes
type NotePolicy struct {
	HighCash         float64 `yaml:"high_cash"`
	ElevatedThematic float64 `yaml:"elevated_thematic"`
}

// Default returns the production policy
func Default() *Policy {
	return &Policy{
		MinCash:            0.05,
		WeightSumTolerance: 0.01,
		ActionThreshold:    0.001,
		RoundingTolerance:  0.001,
		NormalizeTolerance: 0.01,

		Tiers: TierThresholds{
			VeryRiskAverse: 35,
			RiskAverse:     50,
			Moderate:       70,
		},

		Allocation: AllocationPolicy{
			BaseEquity:      0.40,
			RiskWeight:      0.40,
			HorizonWeight:   0.20,
			HorizonCapYears: 10,
			MaxBaseEquity:   0.80,

			ThematicWithPreferences:    TierValues{VeryRiskAverse: 0.05, RiskAverse: 0.08, Moderate: 0.15, Aggressive: 0.15},
			ThematicWithoutPreferences: TierValues{VeryRiskAverse: 0, RiskAverse: 0.03, Moderate: 0.05, Aggressive: 0.05},
			Defensive:                  TierValues{VeryRiskAverse: 0.20, RiskAverse: 0.15, Moderate: 0, Aggressive: 0},
			Cash: CashTable{
				ShortTermMonths: 12,
				MidTermMonths:   24,
				ShortTerm:       TierValues{VeryRiskAverse: 0.25, RiskAverse: 0.20, Moderate: 0.20, Aggressive: 0.20},
				MidTerm:         TierValues{VeryRiskAverse: 0.15, RiskAverse: 0.12, Moderate: 0.10, Aggressive: 0.10},
				LongTerm:        TierValues{VeryRiskAverse: 0.10, RiskAverse: 0.07, Moderate: 0.05, Aggressive: 0.05},
			},

			Income:   ObjectiveAdjustment{EquityMultiplier: 0.70, DefensiveBonus: 0.10, RiskAverseDefensiveBonus: 0.05},
			Balanced: ObjectiveAdjustment{EquityMultiplier: 0.85},
			Growth:   ObjectiveAdjustment{EquityMultiplier: 1.0},
		},

		Sectors: SectorPolicy{
			MaxWeight:        TierValues{VeryRiskAverse: 0.20, RiskAverse: 0.25, Moderate: 0.35, Aggressive: 0.35},
			MinSectors:       TierCounts{VeryRiskAverse: 5, RiskAverse: 4, Moderate: 3, Aggressive: 3},
			PreferredMinimum: TierValues{VeryRiskAverse: 0.30, RiskAverse: 0.40, Moderate: 0.50, Aggressive: 0.60},
			PreferredRatio:   0.6,
		},

		Diversification: DiversificationPolicy{
			LongTermMonths: 24,
			MinHoldings:    8,
			TopTwoLimit:    0.60,
		},

		Construction: ConstructionPolicy{
			DefensiveRiskScore:     30,
			MinDefensiveCandidates: 3,
			MaxDefensiveCandidates: 5,
			MinStocks:              3,
			ThematicPerSector:      2,
			MinThematicPicks:       3,
			ReserveCashSlot:        true,
		},

		Notes: NotePolicy{
			HighCash:         0.15,
			ElevatedThematic: 0.10,
		},
	}
}

// MaxEquity is the largest equity total that still leaves the cash floor
func (p *Policy) MaxEquity() float64 {
	return 1.0 - p.MinCash
}
