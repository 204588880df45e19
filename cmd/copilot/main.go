package main

import (
	"os"

	"github.com/wonny/copilot/cmd/copilot/commands"
)

// main is the entry point for the Copilot CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/copilot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
