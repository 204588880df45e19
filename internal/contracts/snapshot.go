package contracts

import "time"

// PortfolioSnapshot is a stored point-in-time copy of a user's portfolio and its metrics
type PortfolioSnapshot struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Portfolio Portfolio         `json:"portfolio"`
	Metrics   *PortfolioMetrics `json:"metrics,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
