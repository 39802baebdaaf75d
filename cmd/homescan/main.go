package main

import (
	"os"

	"github.com/wonny/homescan/cmd/homescan/commands"
)

// main is the entry point for the homescan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/homescan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
