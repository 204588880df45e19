package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/catalog"
	"github.com/wonny/copilot/internal/contracts"
	"github.com/wonny/copilot/internal/policy"
	"github.com/wonny/copilot/pkg/config"
	"github.com/wonny/copilot/pkg/logger"
)

var (
	// Global flags
	catalogPath  string
	policyPath   string
	outputFormat string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Portfolio Copilot - 자산 배분 및 리밸런싱 엔진",
	Long: `Portfolio Copilot Unified CLI

투자자 프로필(위험 점수, 투자 기간, 선호 섹터)을 목표 배분과
BUY/SELL 리밸런싱 액션으로 변환합니다.

Usage:
  go run ./cmd/copilot [command]

Examples:
  go run ./cmd/copilot api
  go run ./cmd/copilot target --profile profile.yaml
  go run ./cmd/copilot plan --profile profile.yaml --portfolio holdings.yaml
  go run ./cmd/copilot construct --profile profile.yaml
  go run ./cmd/copilot catalog match "I like clean energy and banks"
  go run ./cmd/copilot policy show`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "sector catalog JSON (default: CATALOG_PATH or embedded)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "allocation policy YAML (default: POLICY_PATH or built-in)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (engine debug logs on stderr)")
}

// cliLogger writes engine logs to stderr so stdout stays machine-readable
func cliLogger() *logger.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(os.Stderr, level)
}

// loadConfig loads the environment config and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if policyPath != "" {
		cfg.Policy.Path = policyPath
	}
	return cfg, nil
}

// offlineService builds an advisor without database, redis or metrics
func offlineService() (*advisor.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := cliLogger()

	store, err := catalog.NewStore(cfg.Catalog.Path, nil, log)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	pol, err := policy.Load(cfg.Policy.Path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	return advisor.NewService(advisor.Options{
		Catalog: store,
		Policy:  pol,
		Logger:  log,
	})
}

// loadProfile reads an investor profile from a YAML (or JSON) file
func loadProfile(path string) (*contracts.InvestorProfile, error) {
	if path == "" {
		return nil, fmt.Errorf("--profile is required")
	}
	var profile contracts.InvestorProfile
	if err := readYAML(path, &profile); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &profile, nil
}

// loadPortfolio reads holdings and cash from a YAML (or JSON) file
func loadPortfolio(path string) (contracts.Portfolio, error) {
	var p contracts.Portfolio
	if path == "" {
		return p, nil
	}
	if err := readYAML(path, &p); err != nil {
		return p, fmt.Errorf("portfolio: %w", err)
	}
	return p, nil
}

// readYAML decodes a file; JSON is valid YAML so both formats work
func readYAML(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
