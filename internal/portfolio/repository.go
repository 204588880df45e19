package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/copilot/internal/contracts"
)

// Repository persists portfolio snapshots
// ⭐ SSOT: 스냅샷 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS copilot;

	CREATE TABLE IF NOT EXISTS copilot.portfolio_snapshots (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		holdings    JSONB NOT NULL,
		cash_weight DOUBLE PRECISION NOT NULL,
		metrics     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_user_created
		ON copilot.portfolio_snapshots (user_id, created_at DESC);
`

// EnsureSchema creates the snapshot table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores a snapshot; ID and CreatedAt are filled in when empty
func (r *Repository) SaveSnapshot(ctx context.Context, snap *contracts.PortfolioSnapshot) error {
	id := uuid.New()
	if snap.ID != "" {
		parsed, err := uuid.Parse(snap.ID)
		if err != nil {
			return &contracts.ValidationError{Field: "id", Message: fmt.Sprintf("invalid snapshot id: %v", err)}
		}
		id = parsed
	}
	snap.ID = id.String()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	holdingsJSON, err := json.Marshal(snap.Portfolio.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	var metricsJSON []byte
	if snap.Metrics != nil {
		metricsJSON, err = json.Marshal(snap.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
	}

	query := `
		INSERT INTO copilot.portfolio_snapshots (
			id, user_id, holdings, cash_weight, metrics, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		id, snap.UserID, holdingsJSON, snap.Portfolio.CashWeight, metricsJSON, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns a user's snapshots, newest first
func (r *Repository) ListSnapshots(ctx context.Context, userID string, limit int) ([]contracts.PortfolioSnapshot, error) {
	query := `
		SELECT id::text, user_id, holdings, cash_weight, metrics, created_at
		FROM copilot.portfolio_snapshots
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]contracts.PortfolioSnapshot, 0)

	for rows.Next() {
		var (
			snap         contracts.PortfolioSnapshot
			holdingsJSON []byte
			metricsJSON  []byte
		)
		err := rows.Scan(&snap.ID, &snap.UserID, &holdingsJSON, &snap.Portfolio.CashWeight, &metricsJSON, &snap.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if err := json.Unmarshal(holdingsJSON, &snap.Portfolio.Holdings); err != nil {
			return nil, fmt.Errorf("failed to decode holdings of snapshot %s: %w", snap.ID, err)
		}
		if len(metricsJSON) > 0 {
			snap.Metrics = &contracts.PortfolioMetrics{}
			if err := json.Unmarshal(metricsJSON, snap.Metrics); err != nil {
				return nil, fmt.Errorf("failed to decode metrics of snapshot %s: %w", snap.ID, err)
			}
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return snapshots, nil
}
