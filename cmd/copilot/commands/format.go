package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wonny/copilot/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printJSON writes v as indented JSON (--output json)
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonOutput reports whether --output json was requested
func jsonOutput() bool {
	return strings.EqualFold(outputFormat, "json")
}

// PrintHeader prints a formatted section header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// printTarget renders the four sleeves
func printTarget(w io.Writer, t contracts.TargetAllocation) {
	PrintHeader(w, "Target Allocation")
	PrintKeyValue(w, "Cash", pct(t.Cash), 16)
	PrintKeyValue(w, "Core equity", pct(t.CoreEquity), 16)
	PrintKeyValue(w, "Thematic sectors", pct(t.ThematicSectors), 16)
	PrintKeyValue(w, "Defensive", pct(t.Defensive), 16)
}

// printPlan renders actions, notes and warnings
func printPlan(w io.Writer, title string, plan *contracts.RebalancePlan) {
	PrintHeader(w, title)

	if len(plan.Actions) == 0 {
		PrintInfo(w, "No actions")
	} else {
		widths := []int{6, 8, 10}
		PrintTableHeader(w, []string{"Action", "Ticker", "Delta"}, widths)
		for _, a := range plan.Actions {
			PrintTableRow(w, []string{string(a.Action), a.Ticker, pct(a.DeltaWeight)}, widths)
		}
	}

	if len(plan.Notes) > 0 {
		PrintSeparator(w)
		for _, note := range plan.Notes {
			fmt.Fprintf(w, "   • %s\n", note)
		}
	}
	if len(plan.Warnings) > 0 {
		PrintSeparator(w)
		for _, warning := range plan.Warnings {
			PrintWarning(w, warning)
		}
	}
}

// printMetrics renders concentration metrics and the sector breakdown
func printMetrics(w io.Writer, m *contracts.PortfolioMetrics) {
	PrintHeader(w, "Portfolio Metrics")
	PrintKeyValue(w, "Holdings", fmt.Sprintf("%d", m.TotalHoldings), 10)
	PrintKeyValue(w, "Top 1", pct(m.Top1Weight), 10)
	PrintKeyValue(w, "Top 3", pct(m.Top3Weight), 10)
	PrintKeyValue(w, "Top 5", pct(m.Top5Weight), 10)
	PrintKeyValue(w, "HHI", fmt.Sprintf("%.3f", m.HerfindahlIndex), 10)

	sectors := make([]string, 0, len(m.SectorAllocation))
	for name := range m.SectorAllocation {
		sectors = append(sectors, name)
	}
	sort.Slice(sectors, func(i, j int) bool {
		wi, wj := m.SectorAllocation[sectors[i]], m.SectorAllocation[sectors[j]]
		if wi != wj {
			return wi > wj
		}
		return sectors[i] < sectors[j]
	})

	PrintSeparator(w)
	widths := []int{24, 8}
	PrintTableHeader(w, []string{"Sector", "Weight"}, widths)
	for _, name := range sectors {
		PrintTableRow(w, []string{name, pct(m.SectorAllocation[name])}, widths)
	}

	for _, v := range m.ConstraintViolations {
		PrintWarning(w, v)
	}
}
