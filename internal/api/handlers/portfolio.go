package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/pkg/logger"
)

// PortfolioHandler handles portfolio analysis and recommendation endpoints
// ⭐ SSOT: 포트폴리오 API 핸들러는 이 구조체에서만
type PortfolioHandler struct {
	advisor *advisor.Service
	logger  *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(svc *advisor.Service, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		advisor: svc,
		logger:  log,
	}
}

// PortfolioRequest is the common body of portfolio endpoints
type PortfolioRequest struct {
	UserID     string                     `json:"user_id"`
	Holdings   []contracts.Holding        `json:"holdings"`
	CashWeight float64                    `json:"cash_weight"`
	Profile    *contracts.InvestorProfile `json:"profile"`
}

func (r *PortfolioRequest) portfolio() contracts.Portfolio {
	return contracts.Portfolio{Holdings: r.Holdings, CashWeight: r.CashWeight}
}

// profile returns the request profile with user_id filled from the request
func (r *PortfolioRequest) profile() *contracts.InvestorProfile {
	if r.Profile != nil && r.Profile.UserID == "" {
		r.Profile.UserID = r.UserID
	}
	return r.Profile
}

// Analyze computes portfolio metrics
// POST /api/portfolio/analyze
func (h *PortfolioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.advisor.Analyze(r.Context(), req.portfolio(), req.profile())
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeAnalysis, "Error analyzing portfolio"})
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// Recommend constructs a new portfolio or a rebalance plan
// POST /api/recommend
func (h *PortfolioHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.advisor.Recommend(r.Context(), req.portfolio(), req.profile())
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeRecommendation, "Error generating recommendation"})
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// TargetRequest is the body of POST /api/target
type TargetRequest struct {
	Profile *contracts.InvestorProfile `json:"profile"`
}

// Target returns the four-sleeve target allocation of a profile
// POST /api/target
func (h *PortfolioHandler) Target(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := h.advisor.Target(r.Context(), req.Profile)
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeTarget, "Error computing target allocation"})
		return
	}

	respondJSON(w, http.StatusOK, target)
}

// CompareRequest is the body of POST /api/portfolio/compare
type CompareRequest struct {
	UserID               string                     `json:"user_id"`
	CurrentPortfolio     contracts.Portfolio        `json:"current_portfolio"`
	RecommendedPortfolio contracts.Portfolio        `json:"recommended_portfolio"`
	Profile              *contracts.InvestorProfile `json:"profile"`
}

// Compare contrasts the current and recommended portfolios
// POST /api/portfolio/compare
func (h *PortfolioHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Profile != nil && req.Profile.UserID == "" {
		req.Profile.UserID = req.UserID
	}

	cmp, err := h.advisor.Compare(r.Context(), req.CurrentPortfolio, req.RecommendedPortfolio, req.Profile)
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeComparison, "Error comparing portfolios"})
		return
	}

	respondJSON(w, http.StatusOK, cmp)
}

// SnapshotResponse is returned after a snapshot is stored
type SnapshotResponse struct {
	Success    bool   `json:"success"`
	SnapshotID string `json:"snapshot_id"`
	Timestamp  string `json:"timestamp"`
}

// SaveSnapshot stores the portfolio with its metrics
// POST /api/portfolio/snapshot
func (h *PortfolioHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.advisor.SaveSnapshot(r.Context(), req.UserID, req.portfolio(), req.profile())
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeSnapshot, "Error saving portfolio snapshot"})
		return
	}

	respondJSON(w, http.StatusCreated, SnapshotResponse{
		Success:    true,
		SnapshotID: snap.ID,
		Timestamp:  snap.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// HistoryResponse lists a user's snapshots, newest first
type HistoryResponse struct {
	UserID    string                        `json:"user_id"`
	Snapshots []contracts.PortfolioSnapshot `json:"snapshots"`
}

// History returns stored snapshots
// GET /api/portfolio/history/{user_id}?limit=50
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if userID == "" {
		RespondError(w, http.StatusBadRequest, CodeMissingParameter, "Missing required parameter", "user_id is required")
		return
	}

	limit := advisor.DefaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, 500)
		}
	}

	snapshots, err := h.advisor.History(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, failure{CodeHistory, "Error retrieving portfolio history"})
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		UserID:    userID,
		Snapshots: snapshots,
	})
}
