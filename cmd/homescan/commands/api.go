package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/internal/api"
	"github.com/wonny/homescan/internal/api/handlers"
	"github.com/wonny/homescan/internal/api/stream"
	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/internal/s0_data/quality"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                        - Health check
  POST /api/contract/validate         - 레코드 1건 계약 검증
  POST /api/contract/validate/batch   - 레코드 배열 계약 검증
  POST /api/quality/gate              - 품질 게이트 판정 (?persist=true: 저장+발행)
  GET  /api/quality/runs              - 저장된 런 목록
  GET  /api/quality/runs/{runId}      - 런 요약 조회
  GET  /ws/runs                       - 런 요약 실시간 스트림 (NATS_ENABLED)

DATABASE_URL이 없으면 저장/조회 엔드포인트는 503을 반환합니다.

Example:
  go run ./cmd/homescan api
  go run ./cmd/homescan api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port":       a.cfg.Port,
		"env":        a.cfg.Env,
		"thresholds": a.thresholds.Hash,
	}).Info("Initializing API server")

	routes := api.Routes{
		Contract:   handlers.NewContractHandler(contract.NewValidator(log, a.cfg.Gate.Workers), log),
		WriteRate:  a.cfg.API.RateLimit,
		WriteBurst: a.cfg.API.RateBurst,
	}

	// nil 구현체가 인터페이스에 들어가지 않도록 분기
	var store handlers.RunStore
	if repo := a.runRepository(); repo != nil {
		store = repo
	}
	var pub handlers.Publisher
	if p := a.publisher(); p != nil {
		pub = p
	}
	routes.Quality = handlers.NewQualityHandler(quality.NewBuilder(log), a.thresholds.Thresholds, store, pub, log)

	var hub *stream.Hub
	if a.nc != nil {
		hub = stream.NewHub(log)
		sub, err := hub.Relay(a.nc, a.cfg.NATS.Subject)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", a.cfg.NATS.Subject, err)
		}
		defer sub.Unsubscribe()
		routes.Stream = hub
	}

	server := api.New(a.cfg, log, api.NewRouter(routes, log))
	if hub != nil {
		server.OnShutdown(hub.Close)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
