package portfolio

import (
	"fmt"
	"strings"

	"github.com/wonny/copilot/internal/contracts"
)

// candidates is the stock universe of one construction
type candidates struct {
	thematic  []contracts.Stock
	core      map[string][]contracts.Stock // 섹터별, 방어주 우선 정렬
	sectors   []string                     // core 섹터 (카탈로그 순서)
	defensive map[string]bool
}

// selection accumulates picked stocks and the estimated sector ledger
type selection struct {
	stocks  []contracts.Stock
	seen    map[string]bool
	picked  map[string]int
	ledger  sectorLedger
	sectors int
}

func newSelection() *selection {
	return &selection{
		seen:   make(map[string]bool),
		picked: make(map[string]int),
		ledger: make(sectorLedger),
	}
}

func (s *selection) add(stock contracts.Stock, estimate float64) {
	if s.picked[stock.Sector] == 0 {
		s.sectors++
	}
	s.stocks = append(s.stocks, stock)
	s.seen[stock.Ticker] = true
	s.picked[stock.Sector]++
	s.ledger.charge(stock.Sector, estimate)
}

// ConstructPortfolio builds a portfolio from scratch for an investor with no holdings.
// The plan holds one BUY per selected stock; the returned portfolio is that plan applied to all cash.
func (e *Engine) ConstructPortfolio(profile *contracts.InvestorProfile, target contracts.TargetAllocation) (contracts.Portfolio, *contracts.RebalancePlan) {
	pol := e.policy
	c := e.ConstraintsFor(profile)
	plan := contracts.NewRebalancePlan()

	preferred := e.preferredSectors(profile)
	riskAverse := c.Tier.IsRiskAverse()
	useThematic := !riskAverse && target.ThematicSectors > 0 && len(preferred) > 0

	cands := e.buildCandidates(profile, target, preferred, useThematic)
	slots := c.StockSlots()
	sel := newSelection()

	// 1. 테마 시드
	if useThematic {
		e.seedThematic(sel, cands, preferred, target, c, slots)
	} else if riskAverse && target.ThematicSectors > 0 {
		plan.Notes = append(plan.Notes, fmt.Sprintf(
			"Thematic allocation (%.1f%%) redistributed to core equity for enhanced sector diversification (risk-averse portfolio)",
			target.ThematicSectors*100))
	}

	// 2~3. 최소 섹터 커버리지, 60/40 라운드로빈
	effectiveCore := target.CoreEquity
	if !useThematic {
		effectiveCore += target.ThematicSectors
	}
	e.coverSectors(sel, cands, profile, c, slots, effectiveCore)

	// 4. Fallback: 최소 종목 수까지 채움
	e.topUp(sel, cands, min(pol.Construction.MinStocks, slots))

	if len(sel.stocks) == 0 {
		plan.Notes = append(plan.Notes, "Unable to construct portfolio - no suitable stocks available")
		plan.Warnings = append(plan.Warnings, "No stocks selected for portfolio construction")
		e.logger.WithField("risk_score", profile.RiskScore).Warn("Portfolio construction selected no stocks")
		return contracts.Portfolio{CashWeight: 1.0}, plan
	}

	weights := e.constructionWeights(sel, profile, target, c, useThematic, effectiveCore, plan)

	for i, ticker := range weights.tickers {
		plan.Actions = append(plan.Actions, contracts.RebalanceAction{
			Action:      contracts.ActionBuy,
			Ticker:      ticker,
			DeltaWeight: weights.weights[i],
		})
	}

	cash := 1.0 - weights.sum()
	plan.Notes = append(plan.Notes, fmt.Sprintf("Constructed portfolio with %d holdings", weights.size()))
	if useThematic {
		plan.Notes = append(plan.Notes, fmt.Sprintf("Thematic allocation (%.1f%%) focused on: %s",
			target.ThematicSectors*100, strings.Join(preferred, ", ")))
	}
	if cash <= pol.MinCash+pol.RoundingTolerance {
		plan.Notes = append(plan.Notes, fmt.Sprintf("Cash allocation set to minimum %.0f%% for safety", pol.MinCash*100))
	} else {
		plan.Notes = append(plan.Notes, fmt.Sprintf("Cash allocation: %.1f%%", cash*100))
	}

	e.logger.WithFields(map[string]interface{}{
		"holdings": weights.size(),
		"sectors":  sel.sectors,
		"cash":     cash,
		"tier":     c.Tier.String(),
	}).Debug("Portfolio constructed")

	return contracts.ApplyPlan(contracts.Portfolio{CashWeight: 1.0}, plan), plan
}

// topUp adds unseen core then thematic candidates until the selection holds limit stocks.
// 섹터 한도는 무시, 비중 단계에서 다시 적용
func (e *Engine) topUp(sel *selection, cands *candidates, limit int) {
	for _, sector := range cands.sectors {
		for _, stock := range cands.core[sector] {
			if len(sel.stocks) >= limit {
				return
			}
			if !sel.seen[stock.Ticker] {
				sel.add(stock, 0)
			}
		}
	}
	for _, stock := range cands.thematic {
		if len(sel.stocks) >= limit {
			return
		}
		if !sel.seen[stock.Ticker] {
			sel.add(stock, 0)
		}
	}
}

// buildCandidates collects thematic, core and defensive candidates (exclusions removed)
func (e *Engine) buildCandidates(profile *contracts.InvestorProfile, target contracts.TargetAllocation, preferred []string, useThematic bool) *candidates {
	cp := e.policy.Construction
	cands := &candidates{
		core:      make(map[string][]contracts.Stock),
		defensive: make(map[string]bool),
	}

	keep := func(stocks []contracts.Stock) []contracts.Stock {
		out := make([]contracts.Stock, 0, len(stocks))
		for _, s := range stocks {
			if !profile.IsExcluded(s.Ticker) {
				out = append(out, s)
			}
		}
		return out
	}

	if useThematic {
		cands.thematic = keep(e.catalog.StocksInSectors(preferred))
	}
	if target.CoreEquity <= 0 {
		return cands
	}

	cands.sectors = e.availableSectors(profile)
	core := keep(e.catalog.StocksInSectors(cands.sectors))

	if target.Defensive > 0 {
		for _, s := range core {
			if score, ok := e.catalog.RiskScoreForStock(s.Ticker); ok && score < cp.DefensiveRiskScore {
				cands.defensive[s.Ticker] = true
			}
		}
		if len(cands.defensive) < cp.MinDefensiveCandidates {
			for _, s := range core {
				if len(cands.defensive) >= cp.MaxDefensiveCandidates {
					break
				}
				if s.MarketCap == contracts.MarketCapLarge {
					cands.defensive[s.Ticker] = true
				}
			}
		}
	}

	groups := groupBySector(core)
	for _, sector := range cands.sectors {
		stocks := groups[sector]
		if len(cands.defensive) > 0 {
			// 방어주 먼저, 나머지는 카탈로그 순서 유지
			ordered := make([]contracts.Stock, 0, len(stocks))
			for _, s := range stocks {
				if cands.defensive[s.Ticker] {
					ordered = append(ordered, s)
				}
			}
			for _, s := range stocks {
				if !cands.defensive[s.Ticker] {
					ordered = append(ordered, s)
				}
			}
			stocks = ordered
		}
		cands.core[sector] = stocks
	}
	return cands
}

// seedThematic picks up to ThematicPerSector stocks from each preferred sector
func (e *Engine) seedThematic(sel *selection, cands *candidates, preferred []string, target contracts.TargetAllocation, c Constraints, slots int) {
	cp := e.policy.Construction
	limit := slots
	if equity := target.Equity(); equity > 0 {
		limit = min(slots, max(cp.MinThematicPicks, int(float64(slots)*target.ThematicSectors/equity)))
	}
	perStock := target.ThematicSectors / float64(len(preferred)) / float64(cp.ThematicPerSector)

	groups := groupBySector(cands.thematic)
	for _, sector := range preferred {
		taken := 0
		for _, stock := range groups[sector] {
			if len(sel.stocks) >= limit || taken >= cp.ThematicPerSector {
				break
			}
			if sel.ledger[sector]+perStock > c.MaxSectorWeight+epsilon {
				break
			}
			sel.add(stock, perStock)
			taken++
		}
	}
}

// coverSectors fills the remaining slots: first the minimum sector count, then a
// preferred/other round-robin that stops a sector once its estimated weight would pass the cap
func (e *Engine) coverSectors(sel *selection, cands *candidates, profile *contracts.InvestorProfile, c Constraints, slots int, effectiveCore float64) {
	if len(cands.sectors) == 0 {
		return
	}
	skip := func(s contracts.Stock) bool { return sel.seen[s.Ticker] }

	remaining := slots - len(sel.stocks)
	if remaining <= 0 {
		return
	}
	estimate := effectiveCore / float64(remaining)

	// 최소 섹터 수 확보
	for _, sector := range cands.sectors {
		if sel.sectors >= c.MinSectors || len(sel.stocks) >= slots {
			break
		}
		if sel.picked[sector] > 0 {
			continue
		}
		for _, stock := range cands.core[sector] {
			if !skip(stock) {
				sel.add(stock, estimate)
				break
			}
		}
	}

	var preferred, other []string
	for _, sector := range cands.sectors {
		if profile.IsPreferredSector(sector) {
			preferred = append(preferred, sector)
		} else {
			other = append(other, sector)
		}
	}
	sortSectorsByNeed(preferred, sel.picked, cands.core)
	sortSectorsByNeed(other, sel.picked, cands.core)

	prefQueue := newSectorQueue(preferred, cands.core)
	otherQueue := newSectorQueue(other, cands.core)
	allow := func(sector string) bool {
		return sel.ledger[sector]+estimate <= c.MaxSectorWeight+epsilon
	}

	remaining = slots - len(sel.stocks)
	prefTarget := int(float64(remaining) * e.policy.Sectors.PreferredRatio)
	prefAdded := 0

	for len(sel.stocks) < slots {
		var q *sectorQueue
		switch {
		case prefAdded < prefTarget && !prefQueue.empty():
			q = prefQueue
		case !otherQueue.empty():
			q = otherQueue
		case !prefQueue.empty():
			q = prefQueue
		default:
			return
		}

		stock, ok := q.pop(skip, allow)
		if !ok {
			continue // 큐가 비었음, 다음 분기에서 다른 큐 선택
		}
		if q == prefQueue {
			prefAdded++
		}
		sel.add(stock, estimate)
	}
}

// constructionWeights assigns sleeve weights, applies caps and normalises into the equity budget
func (e *Engine) constructionWeights(sel *selection, profile *contracts.InvestorProfile, target contracts.TargetAllocation, c Constraints, useThematic bool, effectiveCore float64, plan *contracts.RebalancePlan) *weightVector {
	pol := e.policy
	n := len(sel.stocks)

	// 선호 섹터 종목이 앞에 오도록
	ordered := make([]contracts.Stock, 0, n)
	for _, s := range sel.stocks {
		if profile.IsPreferredSector(s.Sector) {
			ordered = append(ordered, s)
		}
	}
	nPref := len(ordered)
	for _, s := range sel.stocks {
		if !profile.IsPreferredSector(s.Sector) {
			ordered = append(ordered, s)
		}
	}

	expectedCash := max(target.Cash, pol.MinCash)
	budget := 1.0 - expectedCash

	raw := make([]float64, n)
	rawTotal := 0.0
	for i, s := range ordered {
		raw[i] = effectiveCore / float64(n)
		if useThematic && nPref > 0 && profile.IsPreferredSector(s.Sector) {
			raw[i] += target.ThematicSectors / float64(nPref)
		}
		rawTotal += raw[i]
	}
	if rawTotal <= epsilon {
		// 모든 비중이 0이면 균등 비중으로 시작
		for i := range raw {
			raw[i] = budget / float64(n)
		}
	}

	ledger := make(sectorLedger)
	weights := newWeightVector(n)
	for i, s := range ordered {
		w := max(0, min(raw[i], c.MaxPosition, ledger.headroom(s.Sector, c.MaxSectorWeight)))
		ledger.charge(s.Sector, w)
		weights.add(s.Ticker, s.Sector, w)
	}

	scaleInto(weights, budget, c.MaxPosition, c.MaxSectorWeight)

	weights.remove(func(i int) bool {
		if weights.weights[i] >= pol.ActionThreshold {
			return false
		}
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"Skipping %s - weight %.2f%% below minimum", weights.tickers[i], weights.weights[i]*100))
		return true
	})

	cash := 1.0 - weights.sum()
	if cash-expectedCash > pol.RoundingTolerance || expectedCash-cash > pol.RoundingTolerance {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"Cash adjusted to %.1f%% to ensure portfolio sums to 100%% (equity: %.1f%%)", cash*100, weights.sum()*100))
	}
	return weights
}
