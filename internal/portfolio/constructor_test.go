package portfolio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/policy"
	"github.com/wonny/copilot/pkg/logger"
)

func TestConstructPortfolio_VeryRiskAverseDiversifies(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(20, 60, contracts.ObjectiveBalanced)

	result, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	sectors := e.sectorWeights(result)
	assert.GreaterOrEqual(t, len(sectors), 5)
	for sector, w := range sectors {
		assert.LessOrEqual(t, w, 0.20+1e-9, sector)
	}
	assert.InDelta(t, 0.10, result.CashWeight, 1e-9)
	assert.Equal(t, len(result.Holdings), plan.BuyCount())
	assert.Contains(t, plan.Notes, fmt.Sprintf("Constructed portfolio with %d holdings", len(result.Holdings)))
	assert.Contains(t, plan.Notes, "Cash allocation: 10.0%")
	assert.Empty(t, plan.Warnings)
}

func TestConstructPortfolio_DefensiveFirst(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(20, 60, contracts.ObjectiveIncome)
	profile.Constraints.MaxHoldings = 6

	_, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	// Technology에는 점수 30 미만 종목이 없고, Healthcare는 JNJ(16)가 카탈로그 첫 종목
	tickers := make([]string, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		tickers = append(tickers, a.Ticker)
	}
	assert.Len(t, tickers, 5)
	assert.Contains(t, tickers, "JNJ")
	assert.Contains(t, tickers, "V", "low-risk financials come before JPM")
	assert.NotContains(t, tickers, "JPM")
}

func TestConstructPortfolio_ThematicFocus(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(60, 36, contracts.ObjectiveGrowth, "Technology")

	result, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	assert.Contains(t, plan.Notes, "Thematic allocation (15.0%) focused on: Technology")
	assert.Contains(t, plan.Notes, "Cash allocation set to minimum 5% for safety")
	assert.InDelta(t, 0.05, result.CashWeight, 1e-9)

	sectors := e.sectorWeights(result)
	assert.InDelta(t, 0.35, sectors["Technology"], 1e-9, "preferred sector filled up to the cap")
	aapl, ok := result.GetHolding("AAPL")
	require.True(t, ok)
	assert.Greater(t, aapl.Weight, result.Holdings[len(result.Holdings)-1].Weight)
}

func TestConstructPortfolio_RiskAverseRedistributesThematic(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(40, 36, contracts.ObjectiveGrowth, "Technology")
	target := e.ComputeTargetAllocation(profile)
	require.Greater(t, target.ThematicSectors, 0.0)

	result, plan := e.ConstructPortfolio(profile, target)

	assert.Contains(t, plan.Notes, fmt.Sprintf(
		"Thematic allocation (%.1f%%) redistributed to core equity for enhanced sector diversification (risk-averse portfolio)",
		target.ThematicSectors*100))
	for sector, w := range e.sectorWeights(result) {
		assert.LessOrEqual(t, w, 0.25+1e-9, sector)
	}
}

func TestConstructPortfolio_RespectsExclusionsAndAvoidance(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(70, 120, contracts.ObjectiveGrowth, "Technology")
	profile.Constraints.Exclusions = []string{"AAPL", "MSFT"}
	profile.Preferences.SectorsAvoid = []string{"Energy", "Utilities"}

	_, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	require.NotEmpty(t, plan.Actions)
	for _, a := range plan.Actions {
		assert.False(t, profile.IsExcluded(a.Ticker), a.Ticker)
		sector := e.sectorOf(a.Ticker)
		assert.NotEqual(t, "Energy", sector)
		assert.NotEqual(t, "Utilities", sector)
	}
}

func TestConstructPortfolio_NoStocks(t *testing.T) {
	e := NewEngine(emptyCatalog{}, policy.Default(), logger.Nop())
	profile := newProfile(50, 36, contracts.ObjectiveGrowth)

	result, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	assert.Empty(t, plan.Actions)
	assert.Empty(t, result.Holdings)
	assert.Equal(t, 1.0, result.CashWeight)
	assert.Equal(t, []string{"Unable to construct portfolio - no suitable stocks available"}, plan.Notes)
	assert.Equal(t, []string{"No stocks selected for portfolio construction"}, plan.Warnings)
}

func TestConstructPortfolio_TopsUpToMinimumStocks(t *testing.T) {
	e := newTestEngine(t)
	profile := newProfile(20, 60, contracts.ObjectiveBalanced)
	profile.Constraints.MaxHoldings = 4
	for _, sector := range e.catalog.AllSectorNames() {
		if sector != "Technology" {
			profile.Preferences.SectorsAvoid = append(profile.Preferences.SectorsAvoid, sector)
		}
	}

	result, plan := e.ConstructPortfolio(profile, e.ComputeTargetAllocation(profile))

	// Technology 한도(20%)를 넘는 종목은 비중 단계에서 탈락
	skipped := 0
	for _, w := range plan.Warnings {
		if strings.HasPrefix(w, "Skipping ") {
			skipped++
		}
	}
	assert.Equal(t, 3, len(plan.Actions)+skipped, "actions: %v warnings: %v", plan.Actions, plan.Warnings)
	for _, a := range plan.Actions {
		assert.Equal(t, "Technology", e.sectorOf(a.Ticker), a.Ticker)
	}
	assert.LessOrEqual(t, e.sectorWeights(result)["Technology"], 0.20+1e-9)
	assert.Contains(t, plan.Notes, fmt.Sprintf("Constructed portfolio with %d holdings", len(result.Holdings)))
}

func TestTopUp_SkipsSelectedTickers(t *testing.T) {
	e := newTestEngine(t)
	tech := e.catalog.StocksInSectors([]string{"Technology"})
	require.GreaterOrEqual(t, len(tech), 3)

	cands := &candidates{
		core:     map[string][]contracts.Stock{"Technology": tech},
		sectors:  []string{"Technology"},
		thematic: tech,
	}
	sel := newSelection()
	sel.add(tech[1], 0.2)

	e.topUp(sel, cands, 3)

	tickers := make([]string, 0, len(sel.stocks))
	for _, s := range sel.stocks {
		tickers = append(tickers, s.Ticker)
	}
	assert.Equal(t, []string{tech[1].Ticker, tech[0].Ticker, tech[2].Ticker}, tickers)
	assert.Equal(t, 1, sel.sectors)

	// 이미 충분하면 추가 없음
	e.topUp(sel, cands, 2)
	assert.Len(t, sel.stocks, 3)
}

func TestConstructPortfolio_Invariants(t *testing.T) {
	e := newTestEngine(t)

	for _, risk := range []int{5, 30, 45, 60, 85} {
		for _, horizon := range []int{6, 18, 36, 120} {
			for _, objective := range objectives {
				for _, like := range [][]string{nil, {"Technology"}, {"Technology", "Healthcare"}, {"Clean Energy"}} {
					for _, maxHoldings := range []int{1, 4, 20} {
						profile := newProfile(risk, horizon, objective, like...)
						profile.Constraints.MaxHoldings = maxHoldings
						label := fmt.Sprintf("risk=%d/horizon=%d/%s/prefs=%v/max=%d", risk, horizon, objective, like, maxHoldings)

						target := e.ComputeTargetAllocation(profile)
						result, plan := e.ConstructPortfolio(profile, target)
						limits := e.ConstraintsFor(profile)

						require.NotEmpty(t, plan.Actions, label)
						require.Equal(t, plan.BuyCount(), len(plan.Actions), label)
						require.LessOrEqual(t, len(result.Holdings), limits.StockSlots(), label)
						require.GreaterOrEqual(t, result.CashWeight, 0.05-1e-9, label)

						seen := make(map[string]bool)
						for _, a := range plan.Actions {
							require.False(t, seen[a.Ticker], label)
							seen[a.Ticker] = true
							require.LessOrEqual(t, a.DeltaWeight, profile.MaxPosition()+1e-9, label)
						}
						for sector, w := range e.sectorWeights(result) {
							require.LessOrEqual(t, w, limits.MaxSectorWeight+1e-9, label+"/"+sector)
						}
					}
				}
			}
		}
	}
}
