package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/api/handlers"
	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/internal/scheduler"
	"github.com/wonny/copilot/pkg/logger"
)

// Pinger is a dependency reported by /health (database, redis)
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobReporter exposes scheduled job statistics on /health
type JobReporter interface {
	GetJobStats() map[string]scheduler.JobStats
}

// RouterConfig holds everything the router wires together
type RouterConfig struct {
	Advisor      *advisor.Service
	Metrics      *metrics.Registry // nil이면 /metrics 미노출
	Limiter      ClientLimiter     // nil이면 레이트 리밋 없음
	Dependencies map[string]Pinger
	Jobs         JobReporter // nil이면 jobs 필드 생략
	Logger       *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("api")

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(cfg.Advisor, cfg.Dependencies, cfg.Jobs)).Methods("GET")
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	}

	portfolioHandler := handlers.NewPortfolioHandler(cfg.Advisor, log)
	catalogHandler := handlers.NewCatalogHandler(cfg.Advisor, log)

	api := r.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolio/analyze", portfolioHandler.Analyze).Methods("POST")
	api.HandleFunc("/portfolio/compare", portfolioHandler.Compare).Methods("POST")
	api.HandleFunc("/portfolio/snapshot", portfolioHandler.SaveSnapshot).Methods("POST")
	api.HandleFunc("/portfolio/history/{user_id}", portfolioHandler.History).Methods("GET")
	api.HandleFunc("/recommend", portfolioHandler.Recommend).Methods("POST")
	api.HandleFunc("/target", portfolioHandler.Target).Methods("POST")

	// Catalog endpoints
	api.HandleFunc("/sectors", catalogHandler.GetSectors).Methods("GET")
	api.HandleFunc("/sectors/match", catalogHandler.MatchSectors).Methods("POST")
	api.HandleFunc("/tickers/sectors", catalogHandler.TickerSectors).Methods("POST")
	api.HandleFunc("/catalog/refresh", catalogHandler.Refresh).Methods("POST")

	if cfg.Limiter != nil {
		api.Use(rateLimitMiddleware(cfg.Limiter, cfg.Metrics, log))
	}

	// Apply middleware
	r.Use(metricsMiddleware(cfg.Metrics))
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler reports service status and optional dependencies
func healthCheckHandler(svc *advisor.Service, deps map[string]Pinger, jobs JobReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]interface{}{
			"status":            status,
			"service":           "copilot-api",
			"checks":            checks,
			"snapshots_enabled": svc.SnapshotsEnabled(),
			"catalog_version":   svc.Sectors().Version,
			"policy_hash":       svc.PolicyHash(),
		}
		if jobs != nil {
			body["jobs"] = jobs.GetJobStats()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}
