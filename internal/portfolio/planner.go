package portfolio

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/copilot/internal/contracts"
)

// planState is threaded through every step of the rebalance pipeline
type planState struct {
	current     contracts.Portfolio
	profile     *contracts.InvestorProfile
	target      contracts.TargetAllocation
	constraints Constraints

	kept     []contracts.Holding // 제외 종목을 뺀 현재 보유
	excluded []contracts.Holding
	added    []contracts.Stock // 분산 단계에서 추가된 신규 종목

	desired *weightVector // 목표 비중 (kept → added 순서)
	plan    *contracts.RebalancePlan
}

func (s *planState) longTerm(longTermMonths int) bool {
	return s.profile.HorizonMonths > longTermMonths
}

func (s *planState) currentWeight(ticker string) float64 {
	for _, h := range s.kept {
		if h.Ticker == ticker {
			return h.Weight
		}
	}
	return 0
}

// planStep is one named correction pass
type planStep struct {
	name string
	run  func(*planState)
}

// planSteps is the fixed order of the rebalance pipeline
func (e *Engine) planSteps() []planStep {
	return []planStep{
		{name: "screen-exclusions", run: e.screenExclusions},
		{name: "diversify", run: e.diversify},
		{name: "assign", run: e.assignWeights},
		{name: "normalize", run: e.normalizeWeights},
		{name: "emit", run: e.emitActions},
		{name: "enforce-cash-floor", run: e.enforceCashFloor},
		{name: "annotate", run: e.annotate},
	}
}

// ComputeRebalancePlan moves an existing portfolio toward the target allocation.
// Every action is a delta; applying the plan never leaves cash below MinCash.
func (e *Engine) ComputeRebalancePlan(current contracts.Portfolio, profile *contracts.InvestorProfile, target contracts.TargetAllocation) *contracts.RebalancePlan {
	current.Holdings = append([]contracts.Holding(nil), current.Holdings...)
	current.Normalize()

	st := &planState{
		current:     current,
		profile:     profile,
		target:      target,
		constraints: e.ConstraintsFor(profile),
		desired:     newWeightVector(len(current.Holdings)),
		plan:        contracts.NewRebalancePlan(),
	}

	for _, step := range e.planSteps() {
		step.run(st)
		if !e.logger.DebugEnabled() {
			continue
		}
		e.logger.WithFields(map[string]interface{}{
			"step":     step.name,
			"kept":     len(st.kept),
			"added":    len(st.added),
			"actions":  len(st.plan.Actions),
			"warnings": len(st.plan.Warnings),
		}).Debug("Rebalance step completed")
	}

	return st.plan
}

// screenExclusions removes holdings that match an exclusion; they are force-sold in emit
func (e *Engine) screenExclusions(st *planState) {
	for _, h := range st.current.Holdings {
		if exclusion, ok := st.profile.MatchExclusion(h.Ticker); ok {
			st.plan.Warnings = append(st.plan.Warnings, fmt.Sprintf("%s in exclusion list: %s", h.Ticker, exclusion))
			st.excluded = append(st.excluded, h)
			continue
		}
		st.kept = append(st.kept, h)
	}
}

// diversify adds holdings from unrepresented sectors when the portfolio is too concentrated
func (e *Engine) diversify(st *planState) {
	dp := e.policy.Diversification
	c := st.constraints
	n := len(st.kept)
	longTerm := st.longTerm(dp.LongTermMonths)

	tooConcentrated := longTerm && n < min(dp.MinHoldings, c.MaxHoldings)

	weights := make([]float64, 0, n)
	for _, h := range st.kept {
		weights = append(weights, h.Weight)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))
	highlyConcentrated := topN(weights, 2) > dp.TopTwoLimit

	if !tooConcentrated && !highlyConcentrated {
		return
	}

	slots := c.StockSlots()
	target := slots
	if longTerm {
		target = min(slots, max(dp.MinHoldings, 2*n))
	}
	needed := target - n
	if needed <= 0 {
		return
	}

	// 이미 보유 중인 섹터 제외, 회피 섹터 제외
	represented := make(map[string]bool)
	for _, h := range st.kept {
		represented[e.sectorOf(h.Ticker)] = true
	}
	var preferred, other []string
	for _, sector := range e.availableSectors(st.profile) {
		if represented[sector] {
			continue
		}
		if st.profile.IsPreferredSector(sector) {
			preferred = append(preferred, sector)
		} else {
			other = append(other, sector)
		}
	}
	if len(preferred)+len(other) < c.MinSectors {
		for _, sector := range e.availableSectors(st.profile) {
			if !represented[sector] {
				continue
			}
			if st.profile.IsPreferredSector(sector) {
				preferred = append(preferred, sector)
			} else {
				other = append(other, sector)
			}
		}
	}

	seen := make(map[string]bool)
	for _, h := range st.current.Holdings {
		seen[h.Ticker] = true
	}
	skip := func(s contracts.Stock) bool {
		return seen[s.Ticker] || st.profile.IsExcluded(s.Ticker)
	}
	take := func(s contracts.Stock) {
		seen[s.Ticker] = true
		st.added = append(st.added, s)
	}

	prefQueue := newSectorQueue(preferred, groupBySector(e.catalog.StocksInSectors(preferred)))
	otherQueue := newSectorQueue(other, groupBySector(e.catalog.StocksInSectors(other)))

	// 1차: 섹터당 한 종목
	prefAdded := 0
	for k := len(preferred); k > 0; k-- {
		if len(st.added) >= needed {
			break
		}
		if s, ok := prefQueue.pop(skip, nil); ok {
			take(s)
			prefAdded++
		}
	}
	for k := len(other); k > 0; k-- {
		if len(st.added) >= needed {
			break
		}
		if s, ok := otherQueue.pop(skip, nil); ok {
			take(s)
		}
	}

	// 2차: 선호 섹터 비율(60%)을 맞추며 번갈아 추가
	prefTarget := int(float64(needed) * e.policy.Sectors.PreferredRatio)
fill:
	for len(st.added) < needed {
		addPref := prefAdded < prefTarget && !prefQueue.empty()
		addOther := !addPref && !otherQueue.empty()

		var (
			s  contracts.Stock
			ok bool
		)
		switch {
		case addPref:
			if s, ok = prefQueue.pop(skip, nil); ok {
				prefAdded++
			}
		case addOther:
			s, ok = otherQueue.pop(skip, nil)
		case !prefQueue.empty():
			if s, ok = prefQueue.pop(skip, nil); ok {
				prefAdded++
			}
		default:
			break fill
		}
		if ok {
			take(s)
		}
	}

	e.noteDiversification(st, n)
}

func (e *Engine) noteDiversification(st *planState, before int) {
	if len(st.added) == 0 {
		return
	}
	st.plan.Notes = append(st.plan.Notes, fmt.Sprintf(
		"Adding %d new holdings for better diversification (current: %d holdings)", len(st.added), before))
}

// assignWeights computes target weights in target space with a sector ledger starting at zero.
// 섹터 한도로 탈락한 종목은 n, np 계산에서 빠질 때까지 반복 (재실행 시 동일 결과)
func (e *Engine) assignWeights(st *planState) {
	c := st.constraints
	if len(st.kept)+len(st.added) == 0 {
		return
	}

	type position struct {
		ticker    string
		sector    string
		preferred bool
		isNew     bool
	}
	positions := make([]position, 0, len(st.kept)+len(st.added))
	for _, h := range st.kept {
		sector := e.sectorOf(h.Ticker)
		positions = append(positions, position{ticker: h.Ticker, sector: sector, preferred: st.profile.IsPreferredSector(sector)})
	}
	for _, s := range st.added {
		positions = append(positions, position{ticker: s.Ticker, sector: s.Sector, preferred: st.profile.IsPreferredSector(s.Sector), isNew: true})
	}

	core := st.target.CoreEquity
	thematic := st.target.ThematicSectors
	equity := core + thematic

	weightsFor := func(n, np int) (other, pref float64) {
		// 선호 섹터 최소 비중을 맞추기 위해 core에서 추가 배정
		additional := 0.0
		remaining := core
		if np > 0 {
			minPreferred := equity * c.PreferredMinimum
			additional = min(max(0, minPreferred-thematic), core)
			remaining = core - additional
		}
		other = min(remaining/float64(n), c.MaxPosition)
		pref = other
		if np > 0 {
			pref = min(thematic/float64(np)+remaining/float64(n)+additional/float64(np), c.MaxPosition)
		}
		return other, pref
	}

	dropped := make([]bool, len(positions))
	weights := make([]float64, len(positions))
	for {
		n, np := 0, 0
		for i, p := range positions {
			if dropped[i] {
				continue
			}
			n++
			if p.preferred {
				np++
			}
		}
		if n == 0 {
			break
		}
		otherWeight, prefWeight := weightsFor(n, np)

		ledger := make(sectorLedger)
		changed := false
		for i, p := range positions {
			if dropped[i] {
				continue
			}
			w := otherWeight
			if p.preferred {
				w = prefWeight
			}
			w = max(0, min(w, ledger.headroom(p.sector, c.MaxSectorWeight)))
			if w < e.policy.ActionThreshold {
				dropped[i] = true
				changed = true
				continue
			}
			ledger.charge(p.sector, w)
			weights[i] = w
		}
		if !changed {
			break
		}
	}

	for i, p := range positions {
		switch {
		case !dropped[i]:
			st.desired.add(p.ticker, p.sector, weights[i])
		case p.isNew:
			st.plan.Warnings = append(st.plan.Warnings, fmt.Sprintf(
				"Skipping %s - sector %s at %.0f%% limit", p.ticker, p.sector, c.MaxSectorWeight*100))
		default:
			// 한도가 찬 섹터의 기존 보유분은 전량 매도
			st.desired.add(p.ticker, p.sector, 0)
		}
	}
}

// normalizeWeights scales desired equity to min(core+thematic, 1 − MinCash) when off by more than tolerance
func (e *Engine) normalizeWeights(st *planState) {
	pol := e.policy
	sum := st.desired.sum()
	capped := min(st.target.CoreEquity+st.target.ThematicSectors, pol.MaxEquity())

	if sum <= pol.ActionThreshold || math.Abs(sum-capped) <= pol.NormalizeTolerance {
		return
	}

	scale := scaleInto(st.desired, capped, st.constraints.MaxPosition, st.constraints.MaxSectorWeight)
	if math.Abs(scale-1.0) > pol.NormalizeTolerance {
		st.plan.Notes = append(st.plan.Notes, fmt.Sprintf(
			"Actions normalized to ensure portfolio equity allocation (target: %.1f%%, scale: %.3f)", capped*100, scale))
	}
}

// emitActions turns desired weights into deltas, then force-sells excluded holdings
func (e *Engine) emitActions(st *planState) {
	threshold := e.policy.ActionThreshold

	for i, ticker := range st.desired.tickers {
		delta := st.desired.weights[i] - st.currentWeight(ticker)
		switch {
		case delta > threshold:
			st.plan.Actions = append(st.plan.Actions, contracts.RebalanceAction{Action: contracts.ActionBuy, Ticker: ticker, DeltaWeight: delta})
		case delta < -threshold:
			st.plan.Actions = append(st.plan.Actions, contracts.RebalanceAction{Action: contracts.ActionSell, Ticker: ticker, DeltaWeight: -delta})
		}
	}

	for _, h := range st.excluded {
		if h.Weight <= 0 {
			continue
		}
		st.plan.Actions = append(st.plan.Actions, contracts.RebalanceAction{Action: contracts.ActionSell, Ticker: h.Ticker, DeltaWeight: h.Weight})
	}
}

// enforceCashFloor makes sure the applied plan leaves at least MinCash
func (e *Engine) enforceCashFloor(st *planState) {
	pol := e.policy
	after := contracts.ApplyPlan(st.current, st.plan)
	excess := after.TotalWeight() - pol.MaxEquity()
	if excess <= 1e-9 {
		return
	}

	buys := buyIndices(st.plan)
	buyTotal := 0.0
	for _, i := range buys {
		buyTotal += st.plan.Actions[i].DeltaWeight
	}

	// 반올림 잔차: 가장 큰 BUY부터 깎음
	if excess <= pol.RoundingTolerance && buyTotal >= excess {
		left := excess
		for _, i := range buys {
			cut := min(left, st.plan.Actions[i].DeltaWeight)
			st.plan.Actions[i].DeltaWeight -= cut
			left -= cut
			if left <= 0 {
				break
			}
		}
		e.dropEmptyBuys(st.plan)
		st.plan.Notes = append(st.plan.Notes, fmt.Sprintf(
			"Adjusted equity by -%.2f%% to fix rounding error (final cash: %.1f%%)", excess*100, (after.CashWeight+excess)*100))
		return
	}

	if buyTotal >= excess {
		factor := (buyTotal - excess) / buyTotal
		for _, i := range buys {
			st.plan.Actions[i].DeltaWeight *= factor
		}
		e.dropEmptyBuys(st.plan)
	} else {
		// BUY만으로 부족하면 BUY를 모두 없애고 큰 종목부터 매도
		for _, i := range buys {
			st.plan.Actions[i].DeltaWeight = 0
		}
		e.dropEmptyBuys(st.plan)
		e.trimLargest(st, excess-buyTotal)
	}

	st.plan.Warnings = append(st.plan.Warnings, fmt.Sprintf(
		"Portfolio exceeded 100%% - equity scaled to %.1f%% to maintain minimum %.0f%% cash", pol.MaxEquity()*100, pol.MinCash*100))
}

// trimLargest sells from the largest resulting positions until amount is freed
func (e *Engine) trimLargest(st *planState, amount float64) {
	after := contracts.ApplyPlan(st.current, st.plan)
	holdings := append([]contracts.Holding(nil), after.Holdings...)
	sort.SliceStable(holdings, func(i, j int) bool { return holdings[i].Weight > holdings[j].Weight })

	for _, h := range holdings {
		if amount <= epsilon {
			return
		}
		cut := min(amount, h.Weight)
		amount -= cut

		merged := false
		for i := range st.plan.Actions {
			a := &st.plan.Actions[i]
			if a.Ticker == h.Ticker && a.Action == contracts.ActionSell {
				a.DeltaWeight += cut
				merged = true
				break
			}
		}
		if !merged {
			st.plan.Actions = append(st.plan.Actions, contracts.RebalanceAction{Action: contracts.ActionSell, Ticker: h.Ticker, DeltaWeight: cut})
		}
	}
}

func (e *Engine) dropEmptyBuys(plan *contracts.RebalancePlan) {
	actions := plan.Actions[:0]
	for _, a := range plan.Actions {
		if a.Action == contracts.ActionBuy && a.DeltaWeight <= e.policy.ActionThreshold {
			continue
		}
		actions = append(actions, a)
	}
	plan.Actions = actions
}

// buyIndices returns BUY action indices, largest delta first
func buyIndices(plan *contracts.RebalancePlan) []int {
	idx := make([]int, 0, len(plan.Actions))
	for i, a := range plan.Actions {
		if a.Action == contracts.ActionBuy {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return plan.Actions[idx[i]].DeltaWeight > plan.Actions[idx[j]].DeltaWeight
	})
	return idx
}

// annotate adds the deterministic notes describing the resulting portfolio
func (e *Engine) annotate(st *planState) {
	pol := e.policy
	c := st.constraints
	plan := st.plan
	after := contracts.ApplyPlan(st.current, plan)

	if cashDelta := after.CashWeight - st.current.CashWeight; math.Abs(cashDelta) > pol.ActionThreshold {
		plan.Notes = append(plan.Notes, fmt.Sprintf("Adjust cash by %+.1f%%", cashDelta*100))
	}

	overCap := false
	for _, w := range e.sectorWeights(st.current) {
		if w > c.MaxSectorWeight+pol.RoundingTolerance {
			overCap = true
			break
		}
	}
	if overCap || c.Tier.IsRiskAverse() {
		plan.Notes = append(plan.Notes, fmt.Sprintf(
			"Rebalancing to enforce sector diversification limits (max %.0f%% per sector for risk-averse portfolios)", c.MaxSectorWeight*100))
	}

	if len(after.Holdings) > c.MaxHoldings {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("Holdings count (%d) exceeds max (%d)", len(after.Holdings), c.MaxHoldings))
	}

	if st.profile.HasPreferredSectors() && after.TotalWeight() > epsilon {
		preferred := 0.0
		for sector, w := range e.sectorWeights(after) {
			if st.profile.IsPreferredSector(sector) {
				preferred += w
			}
		}
		share := preferred / after.TotalWeight()
		if share < c.PreferredMinimum-pol.RoundingTolerance {
			plan.Notes = append(plan.Notes, fmt.Sprintf(
				"Portfolio has %.1f%% in preferred sectors (target: %.0f%% minimum for risk tolerance). Other sectors included for diversification.",
				share*100, c.PreferredMinimum*100))
		} else {
			plan.Notes = append(plan.Notes, fmt.Sprintf(
				"Portfolio meets preferred sector preference (%.1f%% in preferred sectors, minimum: %.0f%%)", share*100, c.PreferredMinimum*100))
		}
	}

	if after.CashWeight > pol.Notes.HighCash {
		plan.Notes = append(plan.Notes, "High cash allocation for near-term needs")
	}

	if st.target.ThematicSectors > pol.Notes.ElevatedThematic && st.profile.HasPreferredSectors() {
		plan.Notes = append(plan.Notes, "Elevated allocation to preferred sectors: "+strings.Join(st.profile.Preferences.SectorsLike, ", "))
	}

	if len(st.added) > 0 && st.longTerm(pol.Diversification.LongTermMonths) {
		plan.Notes = append(plan.Notes, "Portfolio rebalanced for long-term diversification. Added holdings across multiple sectors to reduce concentration risk.")
	}

	plan.Notes = append(plan.Notes, e.cashNote(after.CashWeight, st.target.Cash))
}

// cashNote describes the final cash weight
func (e *Engine) cashNote(cash, target float64) string {
	if cash <= e.policy.MinCash+e.policy.RoundingTolerance {
		return fmt.Sprintf("Cash allocation set to minimum %.0f%% for safety", e.policy.MinCash*100)
	}
	return fmt.Sprintf("Cash allocation: %.1f%% (target was %.1f%%)", cash*100, target*100)
}

// sectorWeights sums holding weights per sector (cash excluded)
func (e *Engine) sectorWeights(p contracts.Portfolio) map[string]float64 {
	weights := make(map[string]float64)
	for _, h := range p.Holdings {
		weights[e.sectorOf(h.Ticker)] += h.Weight
	}
	return weights
}
