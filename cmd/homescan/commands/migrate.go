package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/pkg/database"
	"github.com/wonny/homescan/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 생성",
	Long: `collection.*, quality.* 스키마와 테이블을 생성합니다.
이미 존재하는 객체는 건너뛰므로 여러 번 실행해도 안전합니다.

Example:
  go run ./cmd/homescan migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	log.Info("Schema is up to date")
	PrintSuccess(cmd.OutOrStdout(), "Schema is up to date")
	return nil
}
