package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/pkg/logger"
)

// Store holds the current catalog snapshot and swaps it on refresh
// ⭐ SSOT: 카탈로그 캐시 무효화는 Store만 담당, 엔진은 스냅샷만 소비
type Store struct {
	path    string // 비어 있으면 내장 카탈로그
	logger  *logger.Logger
	metrics *metrics.Registry

	current atomic.Pointer[Catalog]

	mu      sync.Mutex // Refresh 직렬화
	modTime time.Time
}

// NewStore loads the catalog at path (or the embedded one when path is empty)
func NewStore(path string, reg *metrics.Registry, log *logger.Logger) (*Store, error) {
	log = log.Component("catalog")
	s := &Store{
		path:    path,
		logger:  log,
		metrics: reg,
	}

	if path == "" {
		s.current.Store(Default())
		log.WithField("version", s.Snapshot().Version()).Info("Using embedded sector catalog")
		return s, nil
	}

	if _, err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps an already-built catalog (tests, CLI)
func NewStaticStore(c *Catalog, log *logger.Logger) *Store {
	s := &Store{logger: log.Component("catalog")}
	s.current.Store(c)
	return s
}

// Snapshot returns the current immutable catalog
func (s *Store) Snapshot() *Catalog {
	return s.current.Load()
}

// Source describes where the catalog is loaded from
func (s *Store) Source() string {
	if s.path == "" {
		return "embedded"
	}
	return s.path
}

// Refresh reloads the catalog file if its modification time changed.
// Returns true when a new snapshot was installed.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.path == "" {
		s.metrics.RecordCatalogReload("unchanged")
		return false, nil
	}

	reloaded, err := s.reload()
	switch {
	case err != nil:
		s.metrics.RecordCatalogReload("error")
	case reloaded:
		s.metrics.RecordCatalogReload("reloaded")
	default:
		s.metrics.RecordCatalogReload("unchanged")
	}
	return reloaded, err
}

// reload installs a new snapshot when the file changed; a failed reload keeps the old snapshot
func (s *Store) reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat catalog %s: %w", s.path, err)
	}

	if s.current.Load() != nil && info.ModTime().Equal(s.modTime) {
		return false, nil
	}

	c, err := LoadFile(s.path)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("Catalog reload failed, keeping previous snapshot")
		return false, err
	}

	previous := s.current.Swap(c)
	s.modTime = info.ModTime()

	fields := map[string]interface{}{
		"path":    s.path,
		"version": c.Version(),
		"sectors": len(c.sectors),
		"tickers": len(c.tickerIndex),
	}
	if previous != nil {
		fields["previous_version"] = previous.Version()
	}
	s.logger.WithFields(fields).Info("Sector catalog loaded")

	return true, nil
}
