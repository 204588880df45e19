package contracts

// MarketCap is the market-capitalisation tier of a catalog stock
type MarketCap string

const (
	MarketCapLarge  MarketCap = "large"
	MarketCapMedium MarketCap = "medium"
	MarketCapSmall  MarketCap = "small"
	MarketCapETF    MarketCap = "etf"
)

// IndustryRisk is the industry-risk tier of a catalog stock
type IndustryRisk string

const (
	IndustryRiskLow      IndustryRisk = "low"
	IndustryRiskMedium   IndustryRisk = "medium"
	IndustryRiskHigh     IndustryRisk = "high"
	IndustryRiskVeryHigh IndustryRisk = "very_high"
)

// Stock is a catalog entry; Sector is filled in when the stock is read through the catalog
type Stock struct {
	Ticker       string       `json:"ticker"`
	Name         string       `json:"name"`
	MarketCap    MarketCap    `json:"market_cap,omitempty"`
	IndustryRisk IndustryRisk `json:"industry_risk,omitempty"`
	Sector       string       `json:"sector,omitempty"`
}

// Sector is a named group of stocks with matching keywords
type Sector struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Stocks   []Stock  `json:"stocks"`
}
