package portfolio

import (
	"sort"

	"github.com/wonny/copilot/internal/contracts"
)

// sectorQueue hands out stocks one sector at a time, round-robin
type sectorQueue struct {
	sectors []string
	stocks  map[string][]contracts.Stock
	next    int
}

func newSectorQueue(sectors []string, stocks map[string][]contracts.Stock) *sectorQueue {
	q := &sectorQueue{
		sectors: make([]string, 0, len(sectors)),
		stocks:  make(map[string][]contracts.Stock, len(sectors)),
	}
	for _, s := range sectors {
		if len(stocks[s]) == 0 {
			continue
		}
		q.sectors = append(q.sectors, s)
		q.stocks[s] = append([]contracts.Stock(nil), stocks[s]...)
	}
	return q
}

func (q *sectorQueue) empty() bool {
	return len(q.sectors) == 0
}

// pop returns the next stock of the next sector in turn.
// Stocks rejected by skip are discarded; a sector rejected by allow (or exhausted) leaves the queue.
func (q *sectorQueue) pop(skip func(contracts.Stock) bool, allow func(sector string) bool) (contracts.Stock, bool) {
	for len(q.sectors) > 0 {
		if q.next >= len(q.sectors) {
			q.next = 0
		}
		sector := q.sectors[q.next]

		if allow != nil && !allow(sector) {
			q.drop(q.next)
			continue
		}

		stocks := q.stocks[sector]
		for len(stocks) > 0 && skip(stocks[0]) {
			stocks = stocks[1:]
		}
		if len(stocks) == 0 {
			q.drop(q.next)
			continue
		}

		stock := stocks[0]
		q.stocks[sector] = stocks[1:]
		q.next++
		return stock, true
	}
	return contracts.Stock{}, false
}

func (q *sectorQueue) drop(i int) {
	delete(q.stocks, q.sectors[i])
	q.sectors = append(q.sectors[:i], q.sectors[i+1:]...)
}

// groupBySector buckets stocks by sector keeping their order
func groupBySector(stocks []contracts.Stock) map[string][]contracts.Stock {
	groups := make(map[string][]contracts.Stock)
	for _, s := range stocks {
		groups[s.Sector] = append(groups[s.Sector], s)
	}
	return groups
}

// sortSectorsByNeed orders sectors by fewest picks first, then most stocks available
func sortSectorsByNeed(sectors []string, picked map[string]int, available map[string][]contracts.Stock) {
	sort.SliceStable(sectors, func(i, j int) bool {
		a, b := sectors[i], sectors[j]
		if picked[a] != picked[b] {
			return picked[a] < picked[b]
		}
		return len(available[a]) > len(available[b])
	})
}
