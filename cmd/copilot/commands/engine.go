package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/copilot/internal/advisor"
	"github.com/wonny/copilot/internal/contracts"
)

var (
	profileFile   string
	portfolioFile string
)

// targetCmd prints the target allocation of a profile
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "목표 배분 계산 (cash / core / thematic / defensive)",
	Example: `  go run ./cmd/copilot target --profile profile.yaml
  go run ./cmd/copilot target --profile profile.yaml -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := offlineService()
		if err != nil {
			return err
		}
		profile, err := loadProfile(profileFile)
		if err != nil {
			return err
		}

		target, err := svc.Target(cmd.Context(), profile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, target)
		}
		printTarget(out, target)
		return nil
	},
}

// analyzeCmd prints portfolio metrics
var analyzeCmd = &cobra.Command{
	Use:     "analyze",
	Short:   "포트폴리오 집중도/섹터 분석",
	Example: `  go run ./cmd/copilot analyze --portfolio holdings.yaml [--profile profile.yaml]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := offlineService()
		if err != nil {
			return err
		}
		p, err := loadPortfolio(portfolioFile)
		if err != nil {
			return err
		}
		// 프로필은 선택: 있으면 제약 위반도 계산
		var profile *contracts.InvestorProfile
		if profileFile != "" {
			if profile, err = loadProfile(profileFile); err != nil {
				return err
			}
		}

		m, err := svc.Analyze(cmd.Context(), p, profile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, m)
		}
		printMetrics(out, m)
		return nil
	},
}

// planCmd computes a rebalance plan (or a construction when the portfolio is empty)
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "리밸런싱 플랜 계산",
	Long: `현재 포트폴리오를 목표 배분으로 옮기는 BUY/SELL 액션을 계산합니다.
보유 종목이 없으면 처음부터 포트폴리오를 구성합니다.`,
	Example: `  go run ./cmd/copilot plan --profile profile.yaml --portfolio holdings.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPortfolio(portfolioFile)
		if err != nil {
			return err
		}
		return runRecommend(cmd, p)
	},
}

// constructCmd builds a portfolio from scratch
var constructCmd = &cobra.Command{
	Use:     "construct",
	Short:   "처음부터 포트폴리오 구성",
	Example: `  go run ./cmd/copilot construct --profile profile.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecommend(cmd, contracts.Portfolio{CashWeight: 1.0})
	},
}

func runRecommend(cmd *cobra.Command, p contracts.Portfolio) error {
	svc, err := offlineService()
	if err != nil {
		return err
	}
	profile, err := loadProfile(profileFile)
	if err != nil {
		return err
	}

	rec, err := svc.Recommend(cmd.Context(), p, profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, rec)
	}

	printTarget(out, rec.Target)
	title := "Rebalance Plan"
	if rec.OperationType == advisor.OperationConstruct {
		title = "Constructed Portfolio"
	}
	printPlan(out, title, rec.Plan)
	printMetrics(out, rec.Metrics)
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{targetCmd, analyzeCmd, planCmd, constructCmd} {
		cmd.Flags().StringVar(&profileFile, "profile", "", "investor profile file (YAML or JSON)")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{analyzeCmd, planCmd} {
		cmd.Flags().StringVar(&portfolioFile, "portfolio", "", "current portfolio file (YAML or JSON)")
	}
}
