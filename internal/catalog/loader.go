package catalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wonny/copilot/internal/contracts"
)

//go:embed default_sectors.json
var defaultSectors []byte

// document is the on-disk catalog format
type document struct {
	Sectors             []contracts.Sector           `json:"sectors"`
	RiskLevels          map[string]RiskLevel         `json:"risk_levels"`
	MarketCapCategories map[string]MarketCapCategory `json:"market_cap_categories"`
}

// defaultRiskLevels is used when the document has no risk_levels section
func defaultRiskLevels() map[string]RiskLevel {
	return map[string]RiskLevel{
		string(contracts.IndustryRiskLow):      {Score: 1},
		string(contracts.IndustryRiskMedium):   {Score: 2},
		string(contracts.IndustryRiskHigh):     {Score: 3},
		string(contracts.IndustryRiskVeryHigh): {Score: 4},
	}
}

// defaultMarketCaps is used when the document has no market_cap_categories section
func defaultMarketCaps() map[string]MarketCapCategory {
	return map[string]MarketCapCategory{
		string(contracts.MarketCapLarge):  {RiskMultiplier: 0.8},
		string(contracts.MarketCapMedium): {RiskMultiplier: 1.0},
		string(contracts.MarketCapSmall):  {RiskMultiplier: 1.3},
		string(contracts.MarketCapETF):    {RiskMultiplier: 0.6},
	}
}

// Default returns the catalog compiled into the binary
func Default() *Catalog {
	c, err := Parse(defaultSectors)
	if err != nil {
		// 내장 파일은 테스트로 검증됨
		panic(fmt.Sprintf("embedded sector catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads and validates a catalog document from disk
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &contracts.ValidationError{Field: "catalog", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if doc.Sectors == nil {
		return nil, &contracts.ValidationError{Field: "sectors", Message: "missing 'sectors' list"}
	}
	if len(doc.RiskLevels) == 0 {
		doc.RiskLevels = defaultRiskLevels()
	}
	if len(doc.MarketCapCategories) == 0 {
		doc.MarketCapCategories = defaultMarketCaps()
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return newCatalog(hex.EncodeToString(sum[:])[:12], doc.Sectors, doc.RiskLevels, doc.MarketCapCategories), nil
}

// validate checks structural rules of the document
func (d *document) validate() error {
	if _, ok := d.RiskLevels[string(contracts.IndustryRiskMedium)]; !ok {
		return &contracts.ValidationError{Field: "risk_levels", Message: "must define 'medium'"}
	}
	if _, ok := d.MarketCapCategories[string(contracts.MarketCapLarge)]; !ok {
		return &contracts.ValidationError{Field: "market_cap_categories", Message: "must define 'large'"}
	}

	names := make(map[string]bool, len(d.Sectors))
	for i, sector := range d.Sectors {
		field := fmt.Sprintf("sectors[%d]", i)
		if sector.Name == "" {
			return &contracts.ValidationError{Field: field + ".name", Message: "is required"}
		}
		if names[sector.Name] {
			return &contracts.ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate sector %q", sector.Name)}
		}
		names[sector.Name] = true

		for j, stock := range sector.Stocks {
			stockField := fmt.Sprintf("%s.stocks[%d]", field, j)
			if err := contracts.ValidateTicker(stock.Ticker); err != nil {
				return &contracts.ValidationError{Field: stockField + ".ticker", Message: err.Error()}
			}
			if stock.MarketCap != "" {
				if _, ok := d.MarketCapCategories[string(stock.MarketCap)]; !ok {
					return &contracts.ValidationError{Field: stockField + ".market_cap", Message: fmt.Sprintf("unknown market cap %q", stock.MarketCap)}
				}
			}
			if stock.IndustryRisk != "" {
				if _, ok := d.RiskLevels[string(stock.IndustryRisk)]; !ok {
					return &contracts.ValidationError{Field: stockField + ".industry_risk", Message: fmt.Sprintf("unknown industry risk %q", stock.IndustryRisk)}
				}
			}
		}
	}
	return nil
}
