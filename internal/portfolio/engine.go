package portfolio

import (
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/policy"
	"github.com/wonny/copilot/pkg/logger"
)

// UnknownSector is the bucket for tickers the catalog does not know
const UnknownSector = "Unknown"

// Catalog is the read-only view of the sector catalog the engine needs
// ⭐ SSOT: 엔진은 호출마다 주입된 스냅샷만 읽음 (캐시 무효화 책임 없음)
type Catalog interface {
	SectorForTicker(ticker string) (string, bool)
	StocksInSectors(names []string) []contracts.Stock
	RiskScoreForStock(ticker string) (int, bool)
	AllSectorNames() []string
}

// Engine is the deterministic allocation and rebalancing engine.
// It holds no mutable state; one Engine per catalog snapshot.
type Engine struct {
	catalog Catalog
	policy  *policy.Policy
	logger  *logger.Logger
}

// NewEngine creates an engine bound to a catalog snapshot
func NewEngine(cat Catalog, pol *policy.Policy, log *logger.Logger) *Engine {
	if pol == nil {
		pol = policy.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		catalog: cat,
		policy:  pol,
		logger:  log.Component("engine"),
	}
}

// Policy returns the policy the engine was built with
func (e *Engine) Policy() *policy.Policy {
	return e.policy
}

// sectorOf resolves a ticker, falling back to UnknownSector
func (e *Engine) sectorOf(ticker string) string {
	if sector, ok := e.catalog.SectorForTicker(ticker); ok {
		return sector
	}
	return UnknownSector
}

// availableSectors returns catalog sectors the investor does not avoid, in catalog order
func (e *Engine) availableSectors(profile *contracts.InvestorProfile) []string {
	names := make([]string, 0)
	for _, name := range e.catalog.AllSectorNames() {
		if profile.IsAvoidedSector(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// preferredSectors returns sectors_like entries known to the catalog and not avoided
func (e *Engine) preferredSectors(profile *contracts.InvestorProfile) []string {
	known := make(map[string]bool)
	for _, name := range e.catalog.AllSectorNames() {
		known[name] = true
	}

	names := make([]string, 0, len(profile.Preferences.SectorsLike))
	seen := make(map[string]bool)
	for _, name := range profile.Preferences.SectorsLike {
		if !known[name] || seen[name] || profile.IsAvoidedSector(name) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
