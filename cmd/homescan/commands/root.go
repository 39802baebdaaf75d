package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/pkg/config"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "homescan",
	Short: "부동산 매물 수집 계약 검증 및 품질 게이트",
	Long: `homescan CLI

수집 단계가 만든 매물 레코드를 계약(contract)으로 검증하고,
플랫폼별 샘플 품질 지표로 수집 런의 통과 여부를 판정합니다.

Usage:
  go run ./cmd/homescan [command]

Examples:
  go run ./cmd/homescan validate records.ndjson
  go run ./cmd/homescan gate samples.json --thresholds config/quality/thresholds.yaml
  go run ./cmd/homescan migrate
  go run ./cmd/homescan api
  go run ./cmd/homescan scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}

// exitError carries a process exit code for expected non-success outcomes
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// ExitCode maps a command error to the process exit code:
// 1 for failures, or the code of an expected outcome (e.g. gate failed)
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// loadConfig loads configuration and applies global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
