package advisor

import (
	"context"
	"time"

	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/portfolio"
)

// CatalogInfo describes the active catalog snapshot
type CatalogInfo struct {
	Version string             `json:"version"`
	Source  string             `json:"source"`
	Sectors []contracts.Sector `json:"sectors"`
}

// Sectors lists every sector of the current snapshot
func (s *Service) Sectors() CatalogInfo {
	snap := s.catalog.Snapshot()
	return CatalogInfo{
		Version: snap.Version(),
		Source:  s.catalog.Source(),
		Sectors: snap.Sectors(),
	}
}

// MatchSectors finds sectors mentioned in free text
func (s *Service) MatchSectors(text string) []contracts.Sector {
	return s.catalog.Snapshot().MatchSectors(text)
}

// TickerSectors resolves tickers to sector names; unknown tickers map to "Unknown"
func (s *Service) TickerSectors(tickers []string) map[string]string {
	snap := s.catalog.Snapshot()
	result := make(map[string]string, len(tickers))
	for _, ticker := range tickers {
		key := contracts.NormalizeTicker(ticker)
		if key == "" {
			continue
		}
		sector, ok := snap.SectorForTicker(key)
		if !ok {
			sector = portfolio.UnknownSector
		}
		result[key] = sector
	}
	return result
}

// RefreshCatalog reloads the catalog file when it changed
func (s *Service) RefreshCatalog(ctx context.Context) (reloaded bool, err error) {
	defer s.track("catalog_refresh")(&err)

	start := time.Now()
	reloaded, err = s.catalog.Refresh(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Catalog refresh failed")
		return false, err
	}

	s.logger.WithFields(map[string]interface{}{
		"reloaded": reloaded,
		"version":  s.catalog.Snapshot().Version(),
		"duration": time.Since(start),
	}).Debug("Catalog refresh checked")

	return reloaded, nil
}
