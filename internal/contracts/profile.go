package contracts

import (
	"fmt"
	"regexp"
	"strings"
)

// ObjectiveType is the investment objective of a profile
type ObjectiveType string

const (
	ObjectiveGrowth   ObjectiveType = "growth"
	ObjectiveIncome   ObjectiveType = "income"
	ObjectiveBalanced ObjectiveType = "balanced"
)

// Objective describes what the investor is trying to achieve
type Objective struct {
	Type  ObjectiveType `json:"type" yaml:"type"`
	Notes string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Constraints are the hard portfolio limits stated by the investor
type Constraints struct {
	MaxHoldings     int      `json:"max_holdings" yaml:"max_holdings"`
	MaxPositionPct  float64  `json:"max_position_pct" yaml:"max_position_pct"`
	Exclusions      []string `json:"exclusions" yaml:"exclusions"`
	OptionsAllowed  bool     `json:"options_allowed" yaml:"options_allowed"`
	LeverageAllowed bool     `json:"leverage_allowed" yaml:"leverage_allowed"`
}

// Preferences are soft sector/region preferences
type Preferences struct {
	SectorsLike  []string `json:"sectors_like" yaml:"sectors_like"`
	SectorsAvoid []string `json:"sectors_avoid" yaml:"sectors_avoid"`
	RegionsLike  []string `json:"regions_like" yaml:"regions_like"`
}

// InvestorProfile is the already-validated investor record consumed by the engine
// ⭐ SSOT: 프로필 추출(자연어 → 프로필)은 외부 협력자 책임, 엔진은 소비만 함
type InvestorProfile struct {
	UserID             string      `json:"user_id" yaml:"user_id"`
	Objective          Objective   `json:"objective" yaml:"objective"`
	HorizonMonths      int         `json:"horizon_months" yaml:"horizon_months"`
	RiskScore          int         `json:"risk_score" yaml:"risk_score"`
	Constraints        Constraints `json:"constraints" yaml:"constraints"`
	Preferences        Preferences `json:"preferences" yaml:"preferences"`
	RebalanceFrequency string      `json:"rebalance_frequency,omitempty" yaml:"rebalance_frequency,omitempty"`
	LastUpdated        string      `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ApplyDefaults fills zero-valued optional fields with their documented defaults
func (p *InvestorProfile) ApplyDefaults() {
	if p.Constraints.MaxHoldings == 0 {
		p.Constraints.MaxHoldings = 20
	}
	if p.Constraints.MaxPositionPct == 0 {
		p.Constraints.MaxPositionPct = 25.0
	}
	if p.RebalanceFrequency == "" {
		p.RebalanceFrequency = "quarterly"
	}
}

// Validate checks the documented profile ranges
func (p *InvestorProfile) Validate() error {
	if p.UserID != "" && (len(p.UserID) > 100 || !userIDPattern.MatchString(p.UserID)) {
		return &ValidationError{Field: "user_id", Message: "must be 1-100 alphanumeric, underscore or dash characters"}
	}
	switch p.Objective.Type {
	case ObjectiveGrowth, ObjectiveIncome, ObjectiveBalanced:
	default:
		return &ValidationError{Field: "objective.type", Message: fmt.Sprintf("must be growth, income or balanced, got %q", p.Objective.Type)}
	}
	if p.HorizonMonths < 0 || p.HorizonMonths > 600 {
		return &ValidationError{Field: "horizon_months", Message: "must be in [0, 600]"}
	}
	if p.RiskScore < 0 || p.RiskScore > 100 {
		return &ValidationError{Field: "risk_score", Message: "must be in [0, 100]"}
	}
	if p.Constraints.MaxHoldings < 1 || p.Constraints.MaxHoldings > 100 {
		return &ValidationError{Field: "constraints.max_holdings", Message: "must be in [1, 100]"}
	}
	if p.Constraints.MaxPositionPct < 1 || p.Constraints.MaxPositionPct > 100 {
		return &ValidationError{Field: "constraints.max_position_pct", Message: "must be in [1, 100]"}
	}
	switch p.RebalanceFrequency {
	case "", "monthly", "quarterly", "annual":
	default:
		return &ValidationError{Field: "rebalance_frequency", Message: "must be monthly, quarterly or annual"}
	}
	return nil
}

// MaxPosition returns the position cap as a fraction
func (p *InvestorProfile) MaxPosition() float64 {
	return p.Constraints.MaxPositionPct / 100.0
}

// HasPreferredSectors reports whether the investor named any liked sectors
func (p *InvestorProfile) HasPreferredSectors() bool {
	return len(p.Preferences.SectorsLike) > 0
}

// IsPreferredSector reports whether a sector is in sectors_like (case-sensitive canonical names)
func (p *InvestorProfile) IsPreferredSector(sector string) bool {
	for _, s := range p.Preferences.SectorsLike {
		if s == sector {
			return true
		}
	}
	return false
}

// IsAvoidedSector reports whether a sector is in sectors_avoid
func (p *InvestorProfile) IsAvoidedSector(sector string) bool {
	for _, s := range p.Preferences.SectorsAvoid {
		if s == sector {
			return true
		}
	}
	return false
}

// MatchExclusion returns the first exclusion substring contained in the ticker (case-insensitive)
func (p *InvestorProfile) MatchExclusion(ticker string) (string, bool) {
	lower := strings.ToLower(ticker)
	for _, exclusion := range p.Constraints.Exclusions {
		if exclusion == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(exclusion)) {
			return exclusion, true
		}
	}
	return "", false
}

// IsExcluded reports whether the ticker matches any exclusion
func (p *InvestorProfile) IsExcluded(ticker string) bool {
	_, excluded := p.MatchExclusion(ticker)
	return excluded
}
