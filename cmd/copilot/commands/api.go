package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/api"
	"github.com/wonny/copilot/internal/catalog"
	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/internal/policy"
	"github.com/wonny/copilot/internal/portfolio"
	"github.com/wonny/copilot/internal/scheduler"
	"github.com/wonny/copilot/internal/scheduler/jobs"
	"github.com/wonny/copilot/pkg/database"
	"github.com/wonny/copilot/pkg/logger"
	"github.com/wonny/copilot/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 섹터 카탈로그와 배분 정책 로드
- (선택) PostgreSQL 스냅샷 저장소, Redis 캐시/레이트 리밋 연결
- 카탈로그 파일 주기적 리로드 스케줄러 시작

Endpoints:
  GET  /health                          - Health check
  GET  /metrics                         - Prometheus metrics
  POST /api/portfolio/analyze           - 포트폴리오 분석
  POST /api/portfolio/compare           - 현재 vs 추천 비교
  POST /api/portfolio/snapshot          - 스냅샷 저장
  GET  /api/portfolio/history/{user_id} - 스냅샷 이력
  POST /api/recommend                   - 구성/리밸런싱 추천
  POST /api/target                      - 목표 배분
  GET  /api/sectors                     - 섹터 카탈로그
  POST /api/sectors/match               - 텍스트 → 섹터
  POST /api/tickers/sectors             - 종목 → 섹터
  POST /api/catalog/refresh             - 카탈로그 리로드

Example:
  go run ./cmd/copilot api
  go run ./cmd/copilot api --port 9090 --catalog configs/sectors.json`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Portfolio Copilot API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
	}

	// 4. Reference data
	store, err := catalog.NewStore(cfg.Catalog.Path, reg, log)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	pol, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	deps := make(map[string]api.Pinger)
	opts := advisor.Options{
		Catalog:  store,
		Policy:   pol,
		CacheTTL: cfg.CacheTTL,
		Metrics:  reg,
		Logger:   log,
	}

	// 5. Redis (optional): 추천 캐시 + 분산 레이트 리밋
	rc, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rc.Close()

	var limiter api.ClientLimiter
	if rc.Enabled() {
		opts.Cache = redis.NewCache(rc, "copilot")
		limiter = api.NewRedisLimiter(redis.NewRateLimiter(rc, "copilot"), cfg.RateLimit.Burst, time.Second)
		deps["redis"] = rc
		log.Info("Connected to redis")
	} else {
		limiter = api.NewLocalLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	// 6. Database (optional): 스냅샷 저장소
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Warn("DATABASE_URL not set, portfolio snapshots disabled")
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	default:
		defer db.Close()

		repo := portfolio.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Snapshots = repo
		deps["database"] = db
		log.Info("Connected to database")
	}

	svc, err := advisor.NewService(opts)
	if err != nil {
		return err
	}

	// 7. Scheduler: 파일 카탈로그만 리로드 대상
	sched := scheduler.New(log)
	if cfg.Catalog.Path != "" {
		if err := sched.AddJob(jobs.NewCatalogRefreshJob(svc, cfg.Catalog.RefreshSchedule, log)); err != nil {
			return fmt.Errorf("schedule catalog refresh: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 8. Router + server
	router := api.NewRouter(api.RouterConfig{
		Advisor:      svc,
		Metrics:      reg,
		Limiter:      limiter,
		Dependencies: deps,
		Jobs:         sched,
		Logger:       log,
	})
	server := api.New(cfg, log, router)

	ready := make(chan string, 1)
	go func() {
		addr, ok := <-ready
		if !ok {
			return
		}
		fmt.Printf("\n✅ Server running on http://%s\n", addr)
		fmt.Printf("   catalog: %s (version %s)\n", store.Source(), store.Snapshot().Version())
		fmt.Printf("   snapshots: %v\n", svc.SnapshotsEnabled())
		fmt.Println("\nPress Ctrl+C to stop")
	}()

	// SIGINT/SIGTERM → ctx 취소 → graceful shutdown
	err = server.Run(ctx, ready)
	close(ready)
	return err
}
