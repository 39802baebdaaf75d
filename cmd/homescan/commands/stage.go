package commands

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/homescan/internal/s0_data/collector"
	"github.com/wonny/homescan/pkg/database"
	"github.com/wonny/homescan/pkg/logger"
)

// stageCmd represents the stage command
var stageCmd = &cobra.Command{
	Use:   "stage <file|->",
	Short: "수집 런을 DB에 적재 (게이트 대기)",
	Long: `수집 단계 대신 레코드를 collection.* 테이블에 pending 상태로 적재합니다.
다음 quality_gate 작업이 이 런을 검증/판정합니다.

입력 형식:
- CollectionRun JSON: {"runId", "platforms": [{"name", "mode", "records": [...]}]}
- --platform 지정 시: 레코드 (단일 객체, 배열, NDJSON)

Example:
  go run ./cmd/homescan stage run.json
  go run ./cmd/homescan stage records.ndjson --platform zigbang --mode full --run-id run-1`,
	Args: cobra.ExactArgs(1),
	RunE: runStage,
}

var (
	stageRunID    string
	stagePlatform string
	stageMode     string
)

func init() {
	rootCmd.AddCommand(stageCmd)

	stageCmd.Flags().StringVar(&stageRunID, "run-id", "", "런 ID (기본: 입력의 runId 또는 새 UUID)")
	stageCmd.Flags().StringVar(&stagePlatform, "platform", "", "레코드 입력의 플랫폼 이름")
	stageCmd.Flags().StringVar(&stageMode, "mode", "", "수집 모드 (--platform과 함께)")
}

func runStage(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	run, err := decodeStageInput(data, stagePlatform, stageMode)
	if err != nil {
		return err
	}
	if stageRunID != "" {
		run.RunID = stageRunID
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}

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

	if err := collector.NewPostgresSource(db.Pool).StageRun(cmd.Context(), run); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"run_id":    run.RunID,
		"platforms": len(run.Platforms),
		"records":   run.RecordCount(),
	}).Info("Collection run staged")
	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Staged run %s (%d records)", run.RunID, run.RecordCount()))
	return nil
}

// decodeStageInput reads a CollectionRun, or bare records for one platform
func decodeStageInput(data []byte, platform, mode string) (*collector.CollectionRun, error) {
	if platform != "" {
		records, err := splitRecords(data)
		if err != nil {
			return nil, err
		}
		return &collector.CollectionRun{
			Platforms: []collector.PlatformBatch{{Name: platform, Mode: mode, Records: records}},
		}, nil
	}

	var run collector.CollectionRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode collection run: %w", err)
	}
	if len(run.Platforms) == 0 {
		return nil, fmt.Errorf("collection run has no platforms (use --platform for bare records)")
	}
	for i, p := range run.Platforms {
		if p.Name == "" {
			return nil, fmt.Errorf("platforms[%d]: name is required", i)
		}
	}
	return &run, nil
}
