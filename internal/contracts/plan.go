package contracts

// Action represents the direction of a rebalance action
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// TargetAllocation is the four-sleeve target produced by the allocation policy
// ⭐ 불변식: 네 슬리브 합 = 1.0, cash ≥ MIN_CASH
type TargetAllocation struct {
	Cash            float64 `json:"cash" yaml:"cash"`
	CoreEquity      float64 `json:"core_equity" yaml:"core_equity"`
	ThematicSectors float64 `json:"thematic_sectors" yaml:"thematic_sectors"`
	Defensive       float64 `json:"defensive" yaml:"defensive"`
}

// Sum returns the total of all four sleeves
func (t TargetAllocation) Sum() float64 {
	return t.Cash + t.CoreEquity + t.ThematicSectors + t.Defensive
}

// Equity returns the three equity sleeves combined
func (t TargetAllocation) Equity() float64 {
	return t.CoreEquity + t.ThematicSectors + t.Defensive
}

// RebalanceAction is a signed weight adjustment, never an absolute target
type RebalanceAction struct {
	Action      Action  `json:"action"`
	Ticker      string  `json:"ticker"`
	DeltaWeight float64 `json:"delta_weight"`
}

// RebalancePlan is the value object returned by the planner and the constructor
type RebalancePlan struct {
	Actions  []RebalanceAction `json:"actions"`
	Notes    []string          `json:"notes"`
	Warnings []string          `json:"warnings"`
}

// NewRebalancePlan returns a plan with non-nil slices so it encodes as [] rather than null
func NewRebalancePlan() *RebalancePlan {
	return &RebalancePlan{
		Actions:  make([]RebalanceAction, 0),
		Notes:    make([]string, 0),
		Warnings: make([]string, 0),
	}
}

// BuyCount returns the number of BUY actions
func (p *RebalancePlan) BuyCount() int {
	n := 0
	for _, a := range p.Actions {
		if a.Action == ActionBuy {
			n++
		}
	}
	return n
}

// SellCount returns the number of SELL actions
func (p *RebalancePlan) SellCount() int {
	return len(p.Actions) - p.BuyCount()
}

// ApplyPlan simulates executing every action against a portfolio.
// Holdings keep their original order; newly bought tickers follow in action order.
// Positions that fall below dustWeight are dropped; cash absorbs the net flow.
func ApplyPlan(p Portfolio, plan *RebalancePlan) Portfolio {
	const dustWeight = 0.001

	order := make([]string, 0, len(p.Holdings)+len(plan.Actions))
	weights := make(map[string]float64, len(p.Holdings)+len(plan.Actions))
	for _, h := range p.Holdings {
		ticker := NormalizeTicker(h.Ticker)
		if _, ok := weights[ticker]; !ok {
			order = append(order, ticker)
		}
		weights[ticker] += h.Weight
	}

	cash := p.CashWeight
	for _, a := range plan.Actions {
		ticker := NormalizeTicker(a.Ticker)
		current, ok := weights[ticker]
		if !ok {
			order = append(order, ticker)
		}
		switch a.Action {
		case ActionBuy:
			weights[ticker] = current + a.DeltaWeight
			cash -= a.DeltaWeight
		case ActionSell:
			sold := min(a.DeltaWeight, current)
			weights[ticker] = current - sold
			cash += sold
		}
	}

	result := Portfolio{Holdings: make([]Holding, 0, len(order))}
	for _, ticker := range order {
		w := weights[ticker]
		if w < dustWeight {
			cash += w
			continue
		}
		result.Holdings = append(result.Holdings, Holding{Ticker: ticker, Weight: w})
	}
	result.CashWeight = cash
	return result
}
