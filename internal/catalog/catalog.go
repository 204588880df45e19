package catalog

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/wonny/copilot/internal/contracts"
)

// RiskLevel is an industry-risk tier entry of the catalog file
type RiskLevel struct {
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// MarketCapCategory is a market-cap tier entry of the catalog file
type MarketCapCategory struct {
	RiskMultiplier float64 `json:"risk_multiplier"`
	Description    string  `json:"description,omitempty"`
}

// Catalog is an immutable snapshot of the sector catalog
// ⭐ SSOT: 섹터/종목 참조 데이터 조회는 이 타입을 통해서만
// 스냅샷은 생성 후 변경되지 않으므로 여러 고루틴에서 동시에 읽어도 안전
type Catalog struct {
	version     string
	sectors     []contracts.Sector
	riskLevels  map[string]RiskLevel
	marketCaps  map[string]MarketCapCategory
	tickerIndex map[string]stockRef
	matchers    []sectorMatcher
}

type stockRef struct {
	sector int
	stock  int
}

type sectorMatcher struct {
	name     *regexp.Regexp
	words    []*regexp.Regexp
	phrases  []string
	sectorID int
}

func newCatalog(version string, sectors []contracts.Sector, riskLevels map[string]RiskLevel, marketCaps map[string]MarketCapCategory) *Catalog {
	c := &Catalog{
		version:     version,
		sectors:     sectors,
		riskLevels:  riskLevels,
		marketCaps:  marketCaps,
		tickerIndex: make(map[string]stockRef),
		matchers:    make([]sectorMatcher, 0, len(sectors)),
	}

	for i, sector := range sectors {
		for j, stock := range sector.Stocks {
			ticker := contracts.NormalizeTicker(stock.Ticker)
			// 중복 티커는 첫 번째 섹터가 우선
			if _, ok := c.tickerIndex[ticker]; !ok {
				c.tickerIndex[ticker] = stockRef{sector: i, stock: j}
			}
		}
		c.matchers = append(c.matchers, compileMatcher(i, sector))
	}

	return c
}

func compileMatcher(id int, sector contracts.Sector) sectorMatcher {
	m := sectorMatcher{
		name:     wordPattern(sector.Name),
		sectorID: id,
	}
	for _, keyword := range sector.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		// 여러 단어 키워드는 부분 문자열, 한 단어 키워드는 단어 경계로 매칭
		if strings.Contains(keyword, " ") {
			m.phrases = append(m.phrases, keyword)
		} else {
			m.words = append(m.words, wordPattern(keyword))
		}
	}
	return m
}

func wordPattern(s string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(s)) + `\b`)
}

// Version identifies the snapshot (content hash of the source document)
func (c *Catalog) Version() string {
	return c.version
}

// Sectors returns all sectors in catalog order
func (c *Catalog) Sectors() []contracts.Sector {
	return slices.Clone(c.sectors)
}

// AllSectorNames returns sector names in catalog order
func (c *Catalog) AllSectorNames() []string {
	names := make([]string, 0, len(c.sectors))
	for _, s := range c.sectors {
		names = append(names, s.Name)
	}
	return names
}

// SectorByName returns the sector with the exact (case-sensitive) name
func (c *Catalog) SectorByName(name string) (contracts.Sector, bool) {
	for _, s := range c.sectors {
		if s.Name == name {
			return s, true
		}
	}
	return contracts.Sector{}, false
}

// SectorForTicker resolves a ticker to its sector name (case-insensitive)
func (c *Catalog) SectorForTicker(ticker string) (string, bool) {
	ref, ok := c.tickerIndex[contracts.NormalizeTicker(ticker)]
	if !ok {
		return "", false
	}
	return c.sectors[ref.sector].Name, true
}

// Stock returns the catalog entry for a ticker with its Sector filled in
func (c *Catalog) Stock(ticker string) (contracts.Stock, bool) {
	ref, ok := c.tickerIndex[contracts.NormalizeTicker(ticker)]
	if !ok {
		return contracts.Stock{}, false
	}
	sector := c.sectors[ref.sector]
	stock := sector.Stocks[ref.stock]
	stock.Sector = sector.Name
	return stock, true
}

// StocksInSectors returns every stock of the named sectors.
// Order follows the catalog (not the argument), tickers are de-duplicated
// and each stock carries the sector it was found in.
func (c *Catalog) StocksInSectors(names []string) []contracts.Stock {
	stocks := make([]contracts.Stock, 0)
	if len(names) == 0 {
		return stocks
	}

	seen := make(map[string]bool)
	for _, sector := range c.sectors {
		if !slices.Contains(names, sector.Name) {
			continue
		}
		for _, stock := range sector.Stocks {
			ticker := contracts.NormalizeTicker(stock.Ticker)
			if seen[ticker] {
				continue
			}
			seen[ticker] = true
			stock.Ticker = ticker
			stock.Sector = sector.Name
			stocks = append(stocks, stock)
		}
	}
	return stocks
}

// InSectors reports whether the ticker belongs to one of the named sectors.
// An empty list places no restriction.
func (c *Catalog) InSectors(ticker string, names []string) bool {
	if len(names) == 0 {
		return true
	}
	want := contracts.NormalizeTicker(ticker)
	for _, sector := range c.sectors {
		if !slices.Contains(names, sector.Name) {
			continue
		}
		for _, stock := range sector.Stocks {
			if contracts.NormalizeTicker(stock.Ticker) == want {
				return true
			}
		}
	}
	return false
}

// RiskScoreForStock combines industry risk and market-cap tier into a 1..100 score.
// Missing tiers fall back to medium industry risk and large market cap.
func (c *Catalog) RiskScoreForStock(ticker string) (int, bool) {
	stock, ok := c.Stock(ticker)
	if !ok {
		return 0, false
	}

	level, ok := c.riskLevels[string(stock.IndustryRisk)]
	if !ok {
		level = c.riskLevels[string(contracts.IndustryRiskMedium)]
	}
	category, ok := c.marketCaps[string(stock.MarketCap)]
	if !ok {
		category = c.marketCaps[string(contracts.MarketCapLarge)]
	}

	score := int(level.Score * category.RiskMultiplier * 20)
	return min(max(score, 1), 100), true
}

// AllTickers returns every ticker in the catalog, sorted and unique
func (c *Catalog) AllTickers() []string {
	tickers := make([]string, 0, len(c.tickerIndex))
	for ticker := range c.tickerIndex {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// MatchSectors finds sectors mentioned in free text.
// Sector names match as whole words; single-word keywords match as whole words;
// multi-word keywords match as substrings. Results follow catalog order.
func (c *Catalog) MatchSectors(text string) []contracts.Sector {
	lower := strings.ToLower(text)
	found := make([]contracts.Sector, 0)

	for _, m := range c.matchers {
		if m.matches(lower) {
			found = append(found, c.sectors[m.sectorID])
		}
	}
	return found
}

func (m sectorMatcher) matches(text string) bool {
	if m.name.MatchString(text) {
		return true
	}
	for _, phrase := range m.phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	for _, word := range m.words {
		if word.MatchString(text) {
			return true
		}
	}
	return false
}
