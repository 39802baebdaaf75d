package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/gateconfig"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/logger"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate <file|->",
	Short: "플랫폼 샘플 품질 게이트 판정",
	Long: `플랫폼별 샘플로 품질 지표를 계산하고 런 통과 여부를 판정합니다.

입력: {"runId"?, "thresholds"?, "platforms": [{"name", "mode"?, "samples": [...]}]}

임계값 우선순위:
  요청의 thresholds > --thresholds 파일 > GATE_THRESHOLDS_FILE > 기본값

하나라도 실패한 플랫폼이 있으면 종료 코드 2를 반환합니다.

Example:
  go run ./cmd/homescan gate samples.json
  go run ./cmd/homescan gate samples.json --thresholds config/quality/thresholds.yaml
  go run ./cmd/homescan gate - --run-id run-20240301 --json --persist`,
	Args: cobra.ExactArgs(1),
	RunE: runGate,
}

var (
	gateThresholdsFile string
	gateRunID          string
	gateJSON           bool
	gatePersist        bool
)

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().StringVar(&gateThresholdsFile, "thresholds", "", "임계값 YAML 파일 (기본: GATE_THRESHOLDS_FILE)")
	gateCmd.Flags().StringVar(&gateRunID, "run-id", "", "런 ID (기본: 요청의 runId 또는 새 UUID)")
	gateCmd.Flags().BoolVar(&gateJSON, "json", false, "런 요약을 JSON으로 출력")
	gateCmd.Flags().BoolVar(&gatePersist, "persist", false, "런 요약을 DB에 저장하고 NATS로 발행")
}

func runGate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cfg, os.Stderr)

	path := gateThresholdsFile
	if path == "" {
		path = cfg.Gate.ThresholdsFile
	}
	loaded, err := gateconfig.Resolve(path, log)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	req, err := quality.DecodeRequest(data)
	if err != nil {
		return err
	}
	if gateRunID != "" {
		req.RunID = gateRunID
	}

	summary := quality.NewBuilder(log).BuildRequest(req, loaded.Thresholds)

	if gatePersist {
		a, err := newApp(appOptions{requireDB: true})
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.runRepository().SaveRunSummary(ctx, summary); err != nil {
			return fmt.Errorf("save run summary: %w", err)
		}
		if pub := a.publisher(); pub != nil {
			if err := pub.Publish(ctx, summary); err != nil {
				log.WithError(err).Warn("Failed to publish run summary")
			}
		}
	}

	if err := printRunSummary(cmd.OutOrStdout(), summary, gateJSON); err != nil {
		return err
	}

	if !summary.Passed() {
		return &exitError{code: 2, msg: fmt.Sprintf("quality gate failed: %s", strings.Join(summary.FailedPlatforms(), ", "))}
	}
	return nil
}

// printRunSummary prints the run summary as a table, or JSON when asJSON
func printRunSummary(w io.Writer, summary *contracts.RunSummary, asJSON bool) error {
	if asJSON {
		return PrintJSON(w, summary)
	}

	PrintHeader(w, "Quality Gate")
	PrintKeyValue(w, "Run ID", summary.RunID, 12)
	PrintKeyValue(w, "Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"), 12)
	PrintKeyValue(w, "Samples", strconv.Itoa(summary.TotalSample), 12)
	th := summary.Thresholds
	PrintKeyValue(w, "Thresholds", fmt.Sprintf("req≥%s viol≤%s parse≤%s img≥%s",
		formatRate(th.RequiredFieldsRate), formatRate(th.ViolationRate),
		formatRate(th.ParseFailRate), formatRate(th.ImageValidRate)), 12)
	PrintSeparator(w)

	widths := []int{14, 5, 5, 6, 6, 6, 6, 6}
	PrintTableHeader(w, []string{"PLATFORM", "TOTAL", "EVAL", "REQ", "VIOL", "PARSE", "IMG", "RESULT"}, widths)
	for _, p := range summary.Platforms {
		row := []string{p.Platform, strconv.Itoa(p.Total), strconv.Itoa(p.Evaluated)}
		if p.Metrics != nil {
			row = append(row,
				formatRate(p.Metrics.RequiredFieldsRate),
				formatRate(p.Metrics.ViolationRate),
				formatRate(p.Metrics.ParseFailRate),
				formatRate(p.Metrics.ImageValidRate))
		} else {
			row = append(row, "-", "-", "-", "-")
		}
		row = append(row, platformResult(p))
		PrintTableRow(w, row, widths)
	}

	fmt.Fprintln(w)
	if summary.Passed() {
		PrintSuccess(w, "All platforms passed")
	} else {
		PrintError(w, "Failed: "+strings.Join(summary.FailedPlatforms(), ", "))
	}
	return nil
}

func platformResult(p contracts.PlatformSampleSummary) string {
	switch {
	case p.Pass:
		return "PASS"
	case p.Reason != "":
		return "FAIL (" + p.Reason + ")"
	default:
		return "FAIL (" + strings.Join(p.Reasons, ",") + ")"
	}
}
