package portfolio

import (
	"gonum.org/v1/gonum/floats"
)

const epsilon = 1e-12

// sectorLedger tracks how much weight each sector has been charged
type sectorLedger map[string]float64

// headroom is what the sector can still take under cap
func (l sectorLedger) headroom(sector string, limit float64) float64 {
	return max(0, limit-l[sector])
}

func (l sectorLedger) charge(sector string, w float64) {
	l[sector] += w
}

// weightVector is an ordered set of positions with their sector labels
// tickers/sectors/weights는 항상 같은 길이
type weightVector struct {
	tickers []string
	sectors []string
	weights []float64
}

func newWeightVector(capacity int) *weightVector {
	return &weightVector{
		tickers: make([]string, 0, capacity),
		sectors: make([]string, 0, capacity),
		weights: make([]float64, 0, capacity),
	}
}

func (v *weightVector) add(ticker, sector string, w float64) {
	v.tickers = append(v.tickers, ticker)
	v.sectors = append(v.sectors, sector)
	v.weights = append(v.weights, w)
}

func (v *weightVector) size() int {
	return len(v.weights)
}

func (v *weightVector) sum() float64 {
	if len(v.weights) == 0 {
		return 0
	}
	return floats.Sum(v.weights)
}

func (v *weightVector) ledger() sectorLedger {
	l := make(sectorLedger)
	for i, w := range v.weights {
		l.charge(v.sectors[i], w)
	}
	return l
}

// weightOf returns the weight of a ticker (0 when absent)
func (v *weightVector) weightOf(ticker string) float64 {
	for i, t := range v.tickers {
		if t == ticker {
			return v.weights[i]
		}
	}
	return 0
}

// remove drops every position for which drop returns true
func (v *weightVector) remove(drop func(i int) bool) {
	kept := newWeightVector(v.size())
	for i := range v.weights {
		if drop(i) {
			continue
		}
		kept.add(v.tickers[i], v.sectors[i], v.weights[i])
	}
	*v = *kept
}

// scaleInto rescales the vector so it sums to budget and returns the applied scale.
// Scaling down is uniform. Scaling up never pushes a position above maxPos or a sector
// above sectorCap: each sector is scaled by at most its own headroom, then the rest is
// water-filled across positions that still have room. Whatever cannot be placed stays
// unallocated (the caller books it as cash).
func scaleInto(v *weightVector, budget, maxPos, sectorCap float64) float64 {
	total := v.sum()
	if total <= epsilon {
		return 1
	}
	if total >= budget {
		floats.Scale(budget/total, v.weights)
		return budget / total
	}

	s := budget / total
	totals := v.ledger()
	for i, w := range v.weights {
		factor := s
		if st := totals[v.sectors[i]]; st > epsilon {
			// 이미 한도를 넘은 섹터는 줄이지 않음
			factor = max(1, min(s, sectorCap/st))
		}
		v.weights[i] = min(w*factor, max(maxPos, w))
	}

	waterFill(v, budget, maxPos, sectorCap)
	return v.sum() / total
}

// waterFill spreads budget − Σw evenly over positions with position and sector headroom
func waterFill(v *weightVector, budget, maxPos, sectorCap float64) {
	for round := 0; round <= v.size(); round++ {
		remainder := budget - v.sum()
		if remainder < epsilon {
			return
		}

		totals := v.ledger()
		open := make([]int, 0, v.size())
		for i, w := range v.weights {
			if maxPos-w > epsilon && totals.headroom(v.sectors[i], sectorCap) > epsilon {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			return
		}

		per := remainder / float64(len(open))
		placed := 0.0
		for _, i := range open {
			add := min(per, maxPos-v.weights[i], totals.headroom(v.sectors[i], sectorCap), remainder-placed)
			if add <= 0 {
				continue
			}
			v.weights[i] += add
			totals.charge(v.sectors[i], add)
			placed += add
		}
		if placed < epsilon {
			return
		}
	}
}
