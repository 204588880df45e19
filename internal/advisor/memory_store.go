package advisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/copilot/internal/contracts"
)

// MemoryStore keeps snapshots in process memory
// DATABASE_URL 없이 로컬 개발/테스트할 때 사용 (재시작 시 소실)
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]contracts.PortfolioSnapshot
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]contracts.PortfolioSnapshot),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SaveSnapshot stores a copy of the snapshot
func (m *MemoryStore) SaveSnapshot(ctx context.Context, snap *contracts.PortfolioSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = m.now()
	}
	m.snapshots[snap.UserID] = append(m.snapshots[snap.UserID], *snap)
	return nil
}

// ListSnapshots returns up to limit snapshots, newest first
func (m *MemoryStore) ListSnapshots(ctx context.Context, userID string, limit int) ([]contracts.PortfolioSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.snapshots[userID]
	result := make([]contracts.PortfolioSnapshot, 0, min(len(stored), max(limit, 0)))
	for i := len(stored) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, stored[i])
	}
	return result, nil
}
