package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/api/handlers"
	"github.com/wonny/copilot/internal/catalog"
	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/internal/scheduler"
	"github.com/wonny/copilot/pkg/logger"
)

const profileJSON = `{
	"user_id": "user_1",
	"risk_score": 60,
	"horizon_months": 60,
	"objective": {"type": "growth"},
	"preferences": {"sectors_like": ["Technology"]}
}`

type testRouter struct {
	handler http.Handler
	metrics *metrics.Registry
}

func newTestRouter(t *testing.T, snapshots advisor.SnapshotStore, limiter ClientLimiter, deps map[string]Pinger) testRouter {
	t.Helper()

	reg := metrics.NewRegistry()
	svc, err := advisor.NewService(advisor.Options{
		Catalog:   catalog.NewStaticStore(catalog.Default(), logger.Nop()),
		Snapshots: snapshots,
		Metrics:   reg,
	})
	require.NoError(t, err)

	return testRouter{
		handler: NewRouter(RouterConfig{
			Advisor:      svc,
			Metrics:      reg,
			Limiter:      limiter,
			Dependencies: deps,
			Logger:       logger.Nop(),
		}),
		metrics: reg,
	}
}

func (tr testRouter) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	rec := tr.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["snapshots_enabled"])
	assert.NotEmpty(t, body["catalog_version"])
}

type staticJobs map[string]scheduler.JobStats

func (j staticJobs) GetJobStats() map[string]scheduler.JobStats { return j }

func TestHealth_Jobs(t *testing.T) {
	svc, err := advisor.NewService(advisor.Options{
		Catalog: catalog.NewStaticStore(catalog.Default(), logger.Nop()),
	})
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{
		Advisor: svc,
		Jobs: staticJobs{
			"catalog_refresh": {JobName: "catalog_refresh", Schedule: "0 */5 * * * *", TotalRuns: 4, SuccessCount: 4, SuccessRate: 1},
		},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Jobs map[string]scheduler.JobStats `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Jobs["catalog_refresh"].TotalRuns)
	assert.Equal(t, 1.0, body.Jobs["catalog_refresh"].SuccessRate)
}

func TestHealth_Degraded(t *testing.T) {
	tr := newTestRouter(t, nil, nil, map[string]Pinger{"database": failingPinger{}})

	rec := tr.do("GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestMetricsEndpoint(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	tr.do("GET", "/api/sectors", "")
	rec := tr.do("GET", "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `copilot_http_requests_total{method="GET",route="/api/sectors",status="200"} 1`)
}

func TestAnalyze(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	t.Run("ok", func(t *testing.T) {
		rec := tr.do("POST", "/api/portfolio/analyze", `{"holdings": [{"ticker": "aapl", "weight": 0.5}, {"ticker": "JNJ", "weight": 0.4}], "cash_weight": 0.1}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(3), body["total_holdings"])
		assert.Equal(t, "Technology", body["ticker_sectors"].(map[string]interface{})["AAPL"])
	})

	t.Run("weights off", func(t *testing.T) {
		rec := tr.do("POST", "/api/portfolio/analyze", `{"holdings": [{"ticker": "AAPL", "weight": 0.5}], "cash_weight": 0.1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decodeError(t, rec)
		assert.Equal(t, handlers.CodeValidation, body.ErrorCode)
		assert.Contains(t, body.Detail, "Weights sum to")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := tr.do("POST", "/api/portfolio/analyze", `{"holdings": `)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, handlers.CodeValidation, decodeError(t, rec).ErrorCode)
	})
}

func TestRecommend(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	t.Run("missing profile", func(t *testing.T) {
		rec := tr.do("POST", "/api/recommend", `{"holdings": [], "cash_weight": 1.0}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, handlers.CodeMissingParameter, decodeError(t, rec).ErrorCode)
	})

	t.Run("construct", func(t *testing.T) {
		rec := tr.do("POST", "/api/recommend", `{"user_id": "user_1", "holdings": [], "profile": `+profileJSON+`}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body advisor.Recommendation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, advisor.OperationConstruct, body.OperationType)
		assert.NotEmpty(t, body.Plan.Actions)
	})

	t.Run("rebalance", func(t *testing.T) {
		rec := tr.do("POST", "/api/recommend", `{"holdings": [{"ticker": "AAPL", "weight": 0.5}, {"ticker": "MSFT", "weight": 0.45}], "cash_weight": 0.05, "profile": `+profileJSON+`}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body advisor.Recommendation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, advisor.OperationRebalance, body.OperationType)
		assert.NotZero(t, body.Plan.SellCount())
	})
}

func TestTarget(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	rec := tr.do("POST", "/api/target", `{"profile": `+profileJSON+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 1.0, body["cash"]+body["core_equity"]+body["thematic_sectors"]+body["defensive"], 1e-9)

	bad := strings.Replace(profileJSON, `"risk_score": 60`, `"risk_score": 101`, 1)
	rec = tr.do("POST", "/api/target", `{"profile": `+bad+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompare(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	rec := tr.do("POST", "/api/portfolio/compare", `{
		"user_id": "user_1",
		"current_portfolio": {"holdings": [{"ticker": "AAPL", "weight": 0.95}], "cash_weight": 0.05},
		"recommended_portfolio": {"holdings": [{"ticker": "AAPL", "weight": 0.45}, {"ticker": "JNJ", "weight": 0.45}], "cash_weight": 0.10},
		"profile": `+profileJSON+`
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Differences struct {
			HoldingsChange int `json:"holdings_change"`
		} `json:"differences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Differences.HoldingsChange)
}

func TestSnapshots_Disabled(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	rec := tr.do("POST", "/api/portfolio/snapshot", `{"user_id": "user_1", "holdings": [], "cash_weight": 1.0, "profile": `+profileJSON+`}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, handlers.CodeSnapshotsDisabled, decodeError(t, rec).ErrorCode)

	rec = tr.do("GET", "/api/portfolio/history/user_1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshots_SaveAndHistory(t *testing.T) {
	tr := newTestRouter(t, advisor.NewMemoryStore(), nil, nil)

	rec := tr.do("POST", "/api/portfolio/snapshot", `{"user_id": "user_1", "holdings": [{"ticker": "AAPL", "weight": 0.9}], "cash_weight": 0.1, "profile": `+profileJSON+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved handlers.SnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.True(t, saved.Success)
	assert.NotEmpty(t, saved.SnapshotID)

	rec = tr.do("GET", "/api/portfolio/history/user_1?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history handlers.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "user_1", history.UserID)
	require.Len(t, history.Snapshots, 1)
	assert.Equal(t, saved.SnapshotID, history.Snapshots[0].ID)
	assert.Equal(t, "AAPL", history.Snapshots[0].Portfolio.Holdings[0].Ticker)
}

func TestCatalogEndpoints(t *testing.T) {
	tr := newTestRouter(t, nil, nil, nil)

	rec := tr.do("GET", "/api/sectors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Clean Energy"`)

	rec = tr.do("POST", "/api/sectors/match", `{"text": "renewable energy and banking"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sectors": ["Financials", "Energy", "Clean Energy"]}`, rec.Body.String())

	rec = tr.do("POST", "/api/tickers/sectors", `{"tickers": ["aapl", "QQQQ"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"AAPL": "Technology", "QQQQ": "Unknown"}`, rec.Body.String())

	rec = tr.do("POST", "/api/tickers/sectors", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, handlers.CodeMissingParameter, decodeError(t, rec).ErrorCode)

	rec = tr.do("POST", "/api/catalog/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reloaded":false`)
}

func TestRateLimit(t *testing.T) {
	tr := newTestRouter(t, nil, NewLocalLimiter(0.001, 1), nil)

	first := tr.do("GET", "/api/sectors", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := tr.do("GET", "/api/sectors", "")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, handlers.CodeRateLimited, decodeError(t, second).ErrorCode)

	// health는 레이트 리밋 대상 아님
	assert.Equal(t, http.StatusOK, tr.do("GET", "/health", "").Code)
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", clientID(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientID(req))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, handlers.CodeInternal, decodeError(t, rec).ErrorCode)
}
