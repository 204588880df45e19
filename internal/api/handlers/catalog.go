package handlers

import (
	"net/http"
	"strings"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/pkg/logger"
)

// CatalogHandler serves the sector catalog
type CatalogHandler struct {
	advisor *advisor.Service
	logger  *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc *advisor.Service, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		advisor: svc,
		logger:  log,
	}
}

// GetSectors lists every sector of the active snapshot
// GET /api/sectors
func (h *CatalogHandler) GetSectors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.advisor.Sectors())
}

// MatchRequest is the body of POST /api/sectors/match
type MatchRequest struct {
	Text string `json:"text"`
}

// MatchSectors finds sectors mentioned in free text
// POST /api/sectors/match
func (h *CatalogHandler) MatchSectors(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		RespondError(w, http.StatusBadRequest, CodeMissingParameter, "Missing required parameter", `text parameter required in request body: {"text": "..."}`)
		return
	}

	sectors := h.advisor.MatchSectors(req.Text)
	names := make([]string, 0, len(sectors))
	for _, s := range sectors {
		names = append(names, s.Name)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sectors": names,
	})
}

// TickerSectorsRequest is the body of POST /api/tickers/sectors
type TickerSectorsRequest struct {
	Tickers []string `json:"tickers"`
}

// TickerSectors maps tickers to their sector ("Unknown" when not in the catalog)
// POST /api/tickers/sectors
func (h *CatalogHandler) TickerSectors(w http.ResponseWriter, r *http.Request) {
	var req TickerSectorsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Tickers) == 0 {
		RespondError(w, http.StatusBadRequest, CodeMissingParameter, "Missing required parameter", `tickers parameter required in request body: {"tickers": ["AAPL", "MSFT"]}`)
		return
	}

	respondJSON(w, http.StatusOK, h.advisor.TickerSectors(req.Tickers))
}

// Refresh reloads the catalog file when it changed
// POST /api/catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	reloaded, err := h.advisor.RefreshCatalog(r.Context())
	if err != nil {
		// 잘못된 카탈로그 파일은 클라이언트 오류가 아님 → 항상 500, 이전 스냅샷 유지
		h.logger.WithError(err).Error("Error refreshing sector catalog")
		RespondError(w, http.StatusInternalServerError, CodeCatalogRefresh, "Error refreshing sector catalog", err.Error())
		return
	}

	info := h.advisor.Sectors()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": reloaded,
		"version":  info.Version,
		"source":   info.Source,
	})
}
