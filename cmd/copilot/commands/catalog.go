package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/copilot/internal/catalog"
)

// catalogCmd groups sector catalog commands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "섹터 카탈로그 조회/검증",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "섹터 및 종목 목록",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := offlineService()
		if err != nil {
			return err
		}
		info := svc.Sectors()

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, info)
		}

		PrintHeader(out, fmt.Sprintf("Sector Catalog (%s, version %s)", info.Source, info.Version))
		widths := []int{24, 6, 40}
		PrintTableHeader(out, []string{"Sector", "Stocks", "Tickers"}, widths)
		for _, sector := range info.Sectors {
			tickers := make([]string, 0, len(sector.Stocks))
			for _, stock := range sector.Stocks {
				tickers = append(tickers, stock.Ticker)
			}
			PrintTableRow(out, []string{sector.Name, fmt.Sprintf("%d", len(sector.Stocks)), strings.Join(tickers, " ")}, widths)
		}
		return nil
	},
}

var catalogMatchCmd = &cobra.Command{
	Use:     "match <text>",
	Short:   "자유 텍스트에서 언급된 섹터 찾기",
	Args:    cobra.MinimumNArgs(1),
	Example: `  go run ./cmd/copilot catalog match "I like clean energy and banks"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := offlineService()
		if err != nil {
			return err
		}

		names := make([]string, 0)
		for _, sector := range svc.MatchSectors(strings.Join(args, " ")) {
			names = append(names, sector.Name)
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, map[string]interface{}{"sectors": names})
		}
		if len(names) == 0 {
			PrintInfo(out, "No sectors matched")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:     "check <file>",
	Short:   "카탈로그 파일 검증",
	Args:    cobra.ExactArgs(1),
	Example: `  go run ./cmd/copilot catalog check configs/sectors.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, map[string]interface{}{
				"valid":   true,
				"version": c.Version(),
				"sectors": len(c.AllSectorNames()),
				"tickers": len(c.AllTickers()),
			})
		}
		fmt.Fprintf(out, "✅ %s is valid: %d sectors, %d tickers (version %s)\n",
			args[0], len(c.AllSectorNames()), len(c.AllTickers()), c.Version())
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogMatchCmd, catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
