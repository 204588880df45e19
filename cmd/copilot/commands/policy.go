package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/copilot/internal/policy"
)

// policyCmd groups allocation policy commands
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "배분 정책 조회",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "적용될 정책(YAML)과 해시 출력",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pol, err := policy.Load(cfg.Policy.Path)
		if err != nil {
			return err
		}
		hash, err := policy.Hash(pol)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, map[string]interface{}{
				"hash":   hash,
				"policy": pol,
			})
		}

		data, err := policy.Marshal(pol)
		if err != nil {
			return err
		}
		source := cfg.Policy.Path
		if source == "" {
			source = "built-in"
		}
		fmt.Fprintf(out, "# source: %s\n# hash: %s\n", source, hash)
		_, err = out.Write(data)
		return err
	},
}

func init() {
	policyCmd.AddCommand(policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}
