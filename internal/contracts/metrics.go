package contracts

// PortfolioMetrics holds concentration and constraint-violation metrics
type PortfolioMetrics struct {
	TotalHoldings        int                `json:"total_holdings"`
	Top1Weight           float64            `json:"top_1_weight"`
	Top3Weight           float64            `json:"top_3_weight"`
	Top5Weight           float64            `json:"top_5_weight"`
	HerfindahlIndex      float64            `json:"herfindahl_index"`
	ConstraintViolations []string           `json:"constraint_violations"`
	SectorAllocation     map[string]float64 `json:"sector_allocation"`
	TickerSectors        map[string]string  `json:"ticker_sectors"`
	DriftSummary         *string            `json:"drift_summary"`
}

// SectorChange is the before/after weight of one sector in a comparison
type SectorChange struct {
	Current     float64 `json:"current"`
	Recommended float64 `json:"recommended"`
	Change      float64 `json:"change"`
}

// PortfolioDifferences summarises how a recommended portfolio differs from the current one
type PortfolioDifferences struct {
	HoldingsChange          int                     `json:"holdings_change"`
	RiskChange              float64                 `json:"risk_change"` // HHI 변화
	Top1WeightChange        float64                 `json:"top_1_weight_change"`
	Top3WeightChange        float64                 `json:"top_3_weight_change"`
	Top5WeightChange        float64                 `json:"top_5_weight_change"`
	CashWeightChange        float64                 `json:"cash_weight_change"`
	SectorAllocationChanges map[string]SectorChange `json:"sector_allocation_changes"`
}

// PortfolioComparison is the result of comparing two portfolios
type PortfolioComparison struct {
	Current     *PortfolioMetrics    `json:"current"`
	Recommended *PortfolioMetrics    `json:"recommended"`
	Differences PortfolioDifferences `json:"differences"`
}
