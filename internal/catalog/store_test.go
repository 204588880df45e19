package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/pkg/logger"
)

func writeCatalog(t *testing.T, path, body string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestStoreEmbedded(t *testing.T) {
	store, err := NewStore("", nil, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, "embedded", store.Source())
	assert.NotEmpty(t, store.Snapshot().AllSectorNames())

	reloaded, err := store.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
}

func TestStoreRefreshOnModTimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.json")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeCatalog(t, path, testCatalogJSON, base)

	reg := metrics.NewRegistry()
	store, err := NewStore(path, reg, logger.Nop())
	require.NoError(t, err)

	first := store.Snapshot()
	_, ok := first.SectorForTicker("AAPL")
	require.True(t, ok)

	// 변경 없음 → 같은 스냅샷 유지
	reloaded, err := store.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Same(t, first, store.Snapshot())

	// 파일 변경 → 새 스냅샷
	updated := `{"sectors": [{"name": "Energy", "keywords": ["oil"], "stocks": [{"ticker": "XOM", "market_cap": "large", "industry_risk": "high"}]}]}`
	writeCatalog(t, path, updated, base.Add(time.Minute))

	reloaded, err = store.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)

	second := store.Snapshot()
	assert.NotEqual(t, first.Version(), second.Version())
	assert.Equal(t, []string{"Energy"}, second.AllSectorNames())

	// 이전 스냅샷은 불변
	assert.Len(t, first.AllSectorNames(), 3)
}

func TestStoreKeepsSnapshotOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.json")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeCatalog(t, path, testCatalogJSON, base)

	store, err := NewStore(path, nil, logger.Nop())
	require.NoError(t, err)
	before := store.Snapshot()

	writeCatalog(t, path, `{"sectors": "nope"}`, base.Add(time.Minute))

	reloaded, err := store.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, reloaded)
	assert.Same(t, before, store.Snapshot())
}

func TestNewStoreMissingFile(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil, logger.Nop())
	assert.Error(t, err)
}

func TestStoreRefreshCanceled(t *testing.T) {
	store := NewStaticStore(Default(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
