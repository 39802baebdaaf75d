package commands

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/pkg/database"
	"github.com/wonny/homescan/pkg/logger"
	"github.com/wonny/homescan/pkg/natsutil"
	"github.com/wonny/homescan/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "PostgreSQL/Redis/NATS 연결 테스트",
	Long: `설정된 백엔드 연결을 테스트하고 DB 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드 후 Ping, Health Check
- REDIS_ENABLED이면 Redis Ping
- NATS_ENABLED이면 NATS 접속

Example:
  go run ./cmd/homescan check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintHeader(out, "homescan Connection Check")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	PrintKeyValue(out, "ENV", cfg.Env, 12)
	PrintKeyValue(out, "Database", maskPassword(cfg.Database.URL), 12)
	PrintSeparator(out)

	// Database
	db, err := database.New(cfg)
	if err != nil {
		PrintError(out, "Database: "+err.Error())
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError(out, "Database health check: "+err.Error())
		return err
	}
	PrintSuccess(out, fmt.Sprintf("Database healthy (%v)", status.ResponseTime))
	PrintKeyValue(out, "Max Conns", strconv.Itoa(int(status.Stats.MaxConns)), 12)
	PrintKeyValue(out, "Total Conns", strconv.Itoa(int(status.Stats.TotalConns)), 12)
	PrintKeyValue(out, "Idle Conns", strconv.Itoa(int(status.Stats.IdleConns)), 12)

	// Redis
	if cfg.Redis.Enabled {
		rdb, err := redis.New(cfg)
		if err != nil {
			PrintError(out, "Redis: "+err.Error())
			return err
		}
		_ = rdb.Close()
		PrintSuccess(out, "Redis reachable")
	} else {
		PrintWarning(out, "Redis disabled")
	}

	// NATS
	if cfg.NATS.Enabled {
		nc, err := natsutil.Connect(cfg, logger.New(cfg))
		if err != nil {
			PrintError(out, "NATS: "+err.Error())
			return err
		}
		nc.Close()
		PrintSuccess(out, "NATS reachable")
	} else {
		PrintWarning(out, "NATS disabled")
	}

	return nil
}

// maskPassword masks the password in the database URL for display
func maskPassword(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
