package portfolio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/pkg/config"
	"github.com/wonny/copilot/pkg/database"
)

func TestRepository_RejectsInvalidID(t *testing.T) {
	repo := NewRepository(nil)

	err := repo.SaveSnapshot(context.Background(), &contracts.PortfolioSnapshot{
		ID:     "not-a-uuid",
		UserID: "user_1",
	})
	assert.True(t, contracts.IsValidationError(err))
}

// Integration test: requires a reachable PostgreSQL
func TestRepository_SaveAndList(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	userID := "it_" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := &contracts.PortfolioSnapshot{
		UserID:    userID,
		Portfolio: contracts.Portfolio{Holdings: []contracts.Holding{{Ticker: "AAPL", Weight: 0.9}}, CashWeight: 0.1},
		Metrics:   &contracts.PortfolioMetrics{TotalHoldings: 2},
		CreatedAt: base.Add(-time.Hour),
	}
	newer := &contracts.PortfolioSnapshot{
		UserID:    userID,
		Portfolio: contracts.Portfolio{CashWeight: 1.0},
		CreatedAt: base,
	}
	require.NoError(t, repo.SaveSnapshot(ctx, older))
	require.NoError(t, repo.SaveSnapshot(ctx, newer))
	assert.NotEmpty(t, older.ID)

	snaps, err := repo.ListSnapshots(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, newer.ID, snaps[0].ID)
	assert.Nil(t, snaps[0].Metrics)
	assert.Equal(t, older.ID, snaps[1].ID)
	assert.Equal(t, "AAPL", snaps[1].Portfolio.Holdings[0].Ticker)
	assert.Equal(t, 2, snaps[1].Metrics.TotalHoldings)

	limited, err := repo.ListSnapshots(ctx, userID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
