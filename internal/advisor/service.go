package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/copilot/internal/catalog"
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/internal/policy"
	"github.com/wonny/copilot/internal/portfolio"
	"github.com/wonny/copilot/pkg/logger"
	"github.com/wonny/copilot/pkg/redis"
)

// Operation types of a recommendation
const (
	OperationConstruct = "construct"
	OperationRebalance = "rebalance"
)

// DefaultHistoryLimit bounds History when the caller passes no limit
const DefaultHistoryLimit = 50

// SnapshotStore persists portfolio snapshots
// portfolio.Repository (PostgreSQL) 구현, 테스트에서는 메모리 구현 사용
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *contracts.PortfolioSnapshot) error
	ListSnapshots(ctx context.Context, userID string, limit int) ([]contracts.PortfolioSnapshot, error)
}

// Service orchestrates the engine for the API and the CLI
// ⭐ SSOT: 요청 검증 → 카탈로그 스냅샷 → 엔진 호출 흐름은 여기서만
type Service struct {
	catalog    *catalog.Store
	policy     *policy.Policy
	policyHash string
	snapshots  SnapshotStore
	cache      *redis.Cache
	cacheTTL   time.Duration
	metrics    *metrics.Registry
	logger     *logger.Logger
}

// Options configures a Service. Only Catalog is required.
type Options struct {
	Catalog   *catalog.Store
	Policy    *policy.Policy
	Snapshots SnapshotStore // nil이면 스냅샷 비활성
	Cache     *redis.Cache  // nil이면 캐시 없이 매번 계산
	CacheTTL  time.Duration
	Metrics   *metrics.Registry
	Logger    *logger.Logger
}

// NewService creates a new advisor service
func NewService(opts Options) (*Service, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("advisor: catalog store is required")
	}
	if opts.Policy == nil {
		opts.Policy = policy.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = redis.DefaultTTL
	}

	hash, err := policy.Hash(opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("advisor: hash policy: %w", err)
	}

	return &Service{
		catalog:    opts.Catalog,
		policy:     opts.Policy,
		policyHash: hash,
		snapshots:  opts.Snapshots,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}, nil
}

// SnapshotsEnabled reports whether a snapshot store is configured
func (s *Service) SnapshotsEnabled() bool {
	return s.snapshots != nil
}

// PolicyHash identifies the active policy
func (s *Service) PolicyHash() string {
	return s.policyHash
}

// engine binds the engine to the current catalog snapshot
func (s *Service) engine() (*portfolio.Engine, *catalog.Catalog) {
	snap := s.catalog.Snapshot()
	return portfolio.NewEngine(snap, s.policy, s.logger), snap
}

// track records duration and result of an operation; use as defer s.track(op)(&err)
func (s *Service) track(operation string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		s.metrics.RecordOperation(operation, *errp, time.Since(start))
	}
}

// Analyze computes metrics of a portfolio; the profile is optional
func (s *Service) Analyze(ctx context.Context, p contracts.Portfolio, profile *contracts.InvestorProfile) (result *contracts.PortfolioMetrics, err error) {
	defer s.track("analyze")(&err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if profile != nil {
		if err := prepareProfile(profile); err != nil {
			return nil, err
		}
	}

	engine, _ := s.engine()
	return engine.ComputeMetrics(p, profile)
}

// Target computes the four-sleeve target allocation of a profile
func (s *Service) Target(ctx context.Context, profile *contracts.InvestorProfile) (result contracts.TargetAllocation, err error) {
	defer s.track("target")(&err)

	if err := ctx.Err(); err != nil {
		return contracts.TargetAllocation{}, err
	}
	if err := prepareProfile(profile); err != nil {
		return contracts.TargetAllocation{}, err
	}

	engine, _ := s.engine()
	return engine.ComputeTargetAllocation(profile), nil
}

// Recommendation is the outcome of Recommend
type Recommendation struct {
	OperationType  string                      `json:"operation_type"` // construct | rebalance
	Target         contracts.TargetAllocation  `json:"target"`
	Plan           *contracts.RebalancePlan    `json:"plan"`
	Metrics        *contracts.PortfolioMetrics `json:"metrics"`
	Portfolio      contracts.Portfolio         `json:"portfolio"`        // 구성된 포트폴리오 또는 현재 포트폴리오
	Projected      *contracts.Portfolio        `json:"projected"`        // 액션 적용 후 예상 포트폴리오
	CatalogVersion string                      `json:"catalog_version"`
	Cached         bool                        `json:"cached"`
}

type recommendRequest struct {
	Profile   *contracts.InvestorProfile `json:"profile"`
	Portfolio contracts.Portfolio        `json:"portfolio"`
}

// Recommend constructs a portfolio from scratch when there are no holdings,
// otherwise computes a rebalance plan for the existing ones.
func (s *Service) Recommend(ctx context.Context, p contracts.Portfolio, profile *contracts.InvestorProfile) (result *Recommendation, err error) {
	defer s.track("recommend")(&err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := prepareProfile(profile); err != nil {
		return nil, err
	}
	if len(p.Holdings) > 0 {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		p.Normalize()
	}

	engine, snap := s.engine()

	if s.cache == nil {
		result, err = s.recommend(engine, snap.Version(), p, profile)
	} else {
		result, err = s.cachedRecommend(ctx, engine, snap.Version(), p, profile)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPlan(result.Plan.BuyCount(), result.Plan.SellCount(), len(result.Plan.Warnings))
	s.logger.WithFields(map[string]interface{}{
		"user_id":   profile.UserID,
		"operation": result.OperationType,
		"actions":   len(result.Plan.Actions),
		"warnings":  len(result.Plan.Warnings),
		"cached":    result.Cached,
	}).Info("Recommendation computed")

	return result, nil
}

func (s *Service) cachedRecommend(ctx context.Context, engine *portfolio.Engine, version string, p contracts.Portfolio, profile *contracts.InvestorProfile) (*Recommendation, error) {
	requestHash, err := hashRequest(recommendRequest{Profile: profile, Portfolio: p})
	if err != nil {
		return nil, err
	}
	key := redis.RecommendationKey(version, s.policyHash, requestHash)

	var result Recommendation
	hit, err := s.cache.GetOrSet(ctx, key, &result, s.cacheTTL, func() (interface{}, error) {
		return s.recommend(engine, version, p, profile)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCache("recommendation", hit)
	result.Cached = hit
	return &result, nil
}

func (s *Service) recommend(engine *portfolio.Engine, version string, p contracts.Portfolio, profile *contracts.InvestorProfile) (*Recommendation, error) {
	target := engine.ComputeTargetAllocation(profile)

	result := &Recommendation{
		Target:         target,
		CatalogVersion: version,
	}

	if len(p.Holdings) == 0 {
		result.OperationType = OperationConstruct
		result.Portfolio, result.Plan = engine.ConstructPortfolio(profile, target)
		result.Projected = &result.Portfolio
	} else {
		result.OperationType = OperationRebalance
		result.Plan = engine.ComputeRebalancePlan(p, profile, target)
		result.Portfolio = p
		projected := contracts.ApplyPlan(p, result.Plan)
		result.Projected = &projected
	}

	m, err := engine.ComputeMetrics(result.Portfolio, profile)
	if err != nil {
		return nil, err
	}
	result.Metrics = m

	// 목표 현금이 최소치에 고정된 경우
	minCash := s.policy.MinCash
	if math.Abs(target.Cash-minCash) <= s.policy.RoundingTolerance {
		result.Plan.Notes = append(result.Plan.Notes, fmt.Sprintf("Target cash allocation set to minimum %.0f%% for safety", minCash*100))
	}

	return result, nil
}

// Compare computes metrics of both portfolios and how they differ
func (s *Service) Compare(ctx context.Context, current, recommended contracts.Portfolio, profile *contracts.InvestorProfile) (result *contracts.PortfolioComparison, err error) {
	defer s.track("compare")(&err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("current portfolio: %w", err)
	}
	if err := recommended.Validate(); err != nil {
		return nil, fmt.Errorf("recommended portfolio: %w", err)
	}
	if err := prepareProfile(profile); err != nil {
		return nil, err
	}

	engine, _ := s.engine()
	return engine.Compare(current, recommended, profile)
}

// SaveSnapshot stores a portfolio together with its metrics
func (s *Service) SaveSnapshot(ctx context.Context, userID string, p contracts.Portfolio, profile *contracts.InvestorProfile) (snap *contracts.PortfolioSnapshot, err error) {
	defer s.track("snapshot")(&err)

	if s.snapshots == nil {
		return nil, contracts.ErrSnapshotsDisabled
	}
	if userID == "" {
		return nil, &contracts.ValidationError{Field: "user_id", Message: "is required"}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := prepareProfile(profile); err != nil {
		return nil, err
	}
	p.Normalize()

	engine, _ := s.engine()
	m, err := engine.ComputeMetrics(p, profile)
	if err != nil {
		return nil, err
	}

	snap = &contracts.PortfolioSnapshot{
		UserID:    userID,
		Portfolio: p,
		Metrics:   m,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"snapshot_id": snap.ID,
		"holdings":    len(p.Holdings),
	}).Info("Portfolio snapshot saved")

	return snap, nil
}

// History returns a user's snapshots, newest first
func (s *Service) History(ctx context.Context, userID string, limit int) (result []contracts.PortfolioSnapshot, err error) {
	defer s.track("history")(&err)

	if s.snapshots == nil {
		return nil, contracts.ErrSnapshotsDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	snapshots, err := s.snapshots.ListSnapshots(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// prepareProfile applies defaults and validates
func prepareProfile(profile *contracts.InvestorProfile) error {
	if profile == nil {
		return contracts.ErrProfileRequired
	}
	profile.ApplyDefaults()
	return profile.Validate()
}

// hashRequest is the sha256 of the canonical JSON of a request
func hashRequest(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}
