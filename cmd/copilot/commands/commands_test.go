package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/contracts"
)

const testProfile = `
user_id: cli_user
objective:
  type: growth
horizon_months: 60
risk_score: 60
preferences:
  sectors_like: [Technology]
`

const testPortfolio = `
holdings:
  - {ticker: aapl, weight: 0.50}
  - {ticker: msft, weight: 0.45}
cash_weight: 0.05
`

// execute runs the root command with fresh global flag state
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "development")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("POLICY_PATH", "")

	catalogPath, policyPath, outputFormat, verbose = "", "", "table", false
	profileFile, portfolioFile = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTargetCommand(t *testing.T) {
	profile := writeFile(t, "profile.yaml", testProfile)

	out, err := execute(t, "target", "--profile", profile)
	require.NoError(t, err)
	assert.Contains(t, out, "Target Allocation")
	assert.Contains(t, out, "Core equity")

	out, err = execute(t, "target", "--profile", profile, "-o", "json")
	require.NoError(t, err)
	var target contracts.TargetAllocation
	require.NoError(t, json.Unmarshal([]byte(out), &target))
	assert.InDelta(t, 1.0, target.Sum(), 1e-9)
}

func TestTargetCommand_RequiresProfile(t *testing.T) {
	_, err := execute(t, "target")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--profile is required")
}

func TestAnalyzeCommand(t *testing.T) {
	portfolio := writeFile(t, "portfolio.yaml", testPortfolio)

	out, err := execute(t, "analyze", "--portfolio", portfolio, "-o", "json")
	require.NoError(t, err)

	var m contracts.PortfolioMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 3, m.TotalHoldings)
	assert.InDelta(t, 0.95, m.SectorAllocation["Technology"], 1e-9)

	out, err = execute(t, "analyze", "--portfolio", portfolio)
	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio Metrics")
	assert.Contains(t, out, "Technology")
}

func TestPlanCommand(t *testing.T) {
	profile := writeFile(t, "profile.yaml", testProfile)
	portfolio := writeFile(t, "portfolio.yaml", testPortfolio)

	out, err := execute(t, "plan", "--profile", profile, "--portfolio", portfolio, "-o", "json")
	require.NoError(t, err)

	var rec advisor.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, advisor.OperationRebalance, rec.OperationType)
	assert.NotZero(t, rec.Plan.SellCount())

	out, err = execute(t, "plan", "--profile", profile, "--portfolio", portfolio)
	require.NoError(t, err)
	assert.Contains(t, out, "Rebalance Plan")
	assert.Contains(t, out, "SELL")
}

func TestConstructCommand(t *testing.T) {
	profile := writeFile(t, "profile.yaml", testProfile)

	out, err := execute(t, "construct", "--profile", profile, "-o", "json")
	require.NoError(t, err)

	var rec advisor.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, advisor.OperationConstruct, rec.OperationType)
	assert.Equal(t, len(rec.Plan.Actions), rec.Plan.BuyCount())
	assert.InDelta(t, 1.0, rec.Portfolio.Total(), 0.01)
}

func TestConstructCommand_InvalidProfile(t *testing.T) {
	profile := writeFile(t, "profile.yaml", "risk_score: 140\nhorizon_months: 12\n")

	_, err := execute(t, "construct", "--profile", profile)
	require.Error(t, err)
	assert.True(t, contracts.IsValidationError(err))
}

func TestCatalogCommands(t *testing.T) {
	out, err := execute(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sector Catalog (embedded")
	assert.Contains(t, out, "AAPL")

	out, err = execute(t, "catalog", "match", "I like tech stocks and a few banks", "-o", "json")
	require.NoError(t, err)
	var matched struct {
		Sectors []string `json:"sectors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &matched))
	assert.Equal(t, []string{"Technology", "Financials"}, matched.Sectors)

	out, err = execute(t, "catalog", "match", "nothing relevant here")
	require.NoError(t, err)
	assert.Contains(t, out, "No sectors matched")
}

func TestCatalogCheck(t *testing.T) {
	good := writeFile(t, "sectors.json", `{"sectors": [
		{"name": "Technology", "keywords": ["tech"], "stocks": [
			{"ticker": "AAPL", "name": "Apple", "market_cap": "large", "industry_risk": "medium"},
			{"ticker": "MSFT", "name": "Microsoft", "market_cap": "large", "industry_risk": "medium"}
		]}
	]}`)

	out, err := execute(t, "catalog", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 1 sectors, 2 tickers")

	bad := writeFile(t, "bad.json", `{"sectors": [{"name": "Tech", "stocks": [{"ticker": "TOOLONG"}]}]}`)
	_, err = execute(t, "catalog", "check", bad)
	assert.Error(t, err)

	_, err = execute(t, "catalog", "check", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPolicyShow(t *testing.T) {
	out, err := execute(t, "policy", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# source: built-in")
	assert.Contains(t, out, "# hash: ")
	assert.Contains(t, out, "min_cash: 0.05")

	path := writeFile(t, "policy.yaml", "min_cash: 0.08\n")
	out, err = execute(t, "--policy", path, "policy", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "min_cash: 0.08")

	bad := writeFile(t, "bad.yaml", "no_such_key: 1\n")
	_, err = execute(t, "--policy", bad, "policy", "show")
	assert.Error(t, err)
}
