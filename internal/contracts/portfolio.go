package contracts

import (
	"fmt"
	"regexp"
	"strings"
)

// Portfolio is a snapshot of holdings plus cash
// ⭐ 불변식: cash_weight + Σ weight ≈ 1.0 (허용 오차 1%)
type Portfolio struct {
	Holdings   []Holding `json:"holdings" yaml:"holdings"`
	CashWeight float64   `json:"cash_weight" yaml:"cash_weight"`
}

// Holding is a single position expressed as a portfolio weight
type Holding struct {
	Ticker string  `json:"ticker" yaml:"ticker"`
	Weight float64 `json:"weight" yaml:"weight"` // 비중 (0.0 ~ 1.0)
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

// NormalizeTicker upper-cases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker checks the 1-5 alphanumeric format after normalisation
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(NormalizeTicker(ticker)) {
		return &ValidationError{Field: "ticker", Message: fmt.Sprintf("ticker must be 1-5 alphanumeric characters, got: %q", ticker)}
	}
	return nil
}

// TotalWeight returns the sum of all holding weights (cash excluded)
func (p *Portfolio) TotalWeight() float64 {
	total := 0.0
	for _, h := range p.Holdings {
		total += h.Weight
	}
	return total
}

// Total returns holdings plus cash
func (p *Portfolio) Total() float64 {
	return p.TotalWeight() + p.CashWeight
}

// Count returns the number of holdings
func (p *Portfolio) Count() int {
	return len(p.Holdings)
}

// GetHolding finds a holding by ticker (case-insensitive)
func (p *Portfolio) GetHolding(ticker string) (*Holding, bool) {
	want := NormalizeTicker(ticker)
	for i := range p.Holdings {
		if NormalizeTicker(p.Holdings[i].Ticker) == want {
			return &p.Holdings[i], true
		}
	}
	return nil, false
}

// Normalize upper-cases every ticker in place
func (p *Portfolio) Normalize() {
	for i := range p.Holdings {
		p.Holdings[i].Ticker = NormalizeTicker(p.Holdings[i].Ticker)
	}
}

// Validate checks ticker format, weight ranges and duplicate tickers.
// The ±1% weight-sum rule is checked by the metrics calculator, not here.
func (p *Portfolio) Validate() error {
	if p.CashWeight < 0 || p.CashWeight > 1 {
		return &ValidationError{Field: "cash_weight", Message: "must be in [0, 1]"}
	}

	seen := make(map[string]bool, len(p.Holdings))
	var duplicates []string
	for _, h := range p.Holdings {
		if err := ValidateTicker(h.Ticker); err != nil {
			return err
		}
		if h.Weight < 0 || h.Weight > 1 {
			return &ValidationError{Field: "weight", Message: fmt.Sprintf("%s: weight must be in [0, 1]", h.Ticker)}
		}
		ticker := NormalizeTicker(h.Ticker)
		if seen[ticker] {
			duplicates = append(duplicates, ticker)
		}
		seen[ticker] = true
	}
	if len(duplicates) > 0 {
		return &ValidationError{Field: "holdings", Message: "Duplicate tickers found in holdings: " + strings.Join(duplicates, ", ")}
	}
	return nil
}
