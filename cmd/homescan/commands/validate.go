package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/pkg/logger"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "수집 레코드 계약 검증",
	Long: `RawCollectionRecord를 계약으로 검증합니다.

입력 형식:
- 단일 JSON 객체
- JSON 배열
- NDJSON (한 줄에 레코드 하나)

하나라도 통과하지 못하면 종료 코드 2를 반환합니다.

Example:
  go run ./cmd/homescan validate record.json
  go run ./cmd/homescan validate records.ndjson --json
  cat records.json | go run ./cmd/homescan validate - --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	validateJSON   bool
	validateStrict bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "리포트를 JSON으로 출력")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "ERROR 이슈가 하나라도 있으면 실패로 처리")
}

// validateOutput is one record's entry in --json output
type validateOutput struct {
	Index      int                         `json:"index"`
	ExternalID string                      `json:"external_id,omitempty"`
	Report     *contracts.ValidationReport `json:"report,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cfg, os.Stderr)

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	records, err := splitRecords(data)
	if err != nil {
		return err
	}

	validator := contract.NewValidator(log, cfg.Gate.Workers)
	failed, err := validateRecords(cmd.Context(), cmd.OutOrStdout(), validator, records, validateJSON, validateStrict)
	if err != nil {
		return err
	}
	if failed > 0 {
		return &exitError{code: 2, msg: fmt.Sprintf("%d of %d records failed validation", failed, len(records))}
	}
	return nil
}

// validateRecords validates and prints every record; it returns how many failed
func validateRecords(ctx context.Context, w io.Writer, v *contract.Validator, records []json.RawMessage, asJSON, strict bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := v.ValidateBatch(ctx, records)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	failed := 0
	outputs := make([]validateOutput, 0, len(results))
	for _, res := range results {
		out := validateOutput{Index: res.Index, ExternalID: res.Sample.ExternalID, Report: res.Report}
		switch {
		case res.Err != nil:
			out.Error = res.Err.Error()
			failed++
		case !res.Report.Valid, strict && !res.Report.StrictValid():
			failed++
		}
		outputs = append(outputs, out)
	}

	if asJSON {
		return failed, PrintJSON(w, outputs)
	}

	printValidateTable(w, outputs)
	fmt.Fprintln(w)
	if failed == 0 {
		PrintSuccess(w, fmt.Sprintf("%d records passed", len(outputs)))
	} else {
		PrintError(w, fmt.Sprintf("%d of %d records failed", failed, len(outputs)))
	}
	return failed, nil
}

func printValidateTable(w io.Writer, outputs []validateOutput) {
	widths := []int{5, 20, 6, 5, 4, 30}
	PrintTableHeader(w, []string{"#", "EXTERNAL_ID", "VALID", "ERROR", "WARN", "FIRST ISSUE"}, widths)

	for _, out := range outputs {
		if out.Report == nil {
			PrintTableRow(w, []string{strconv.Itoa(out.Index), out.ExternalID, "-", "-", "-", out.Error}, widths)
			continue
		}
		first := ""
		if len(out.Report.Issues) > 0 {
			issue := out.Report.Issues[0]
			first = fmt.Sprintf("%s %s %s", issue.Level, issue.Code, issue.Path)
		}
		PrintTableRow(w, []string{
			strconv.Itoa(out.Index),
			out.ExternalID,
			strconv.FormatBool(out.Report.Valid),
			strconv.Itoa(out.Report.Counts.Error),
			strconv.Itoa(out.Report.Counts.Warn),
			first,
		}, widths)
	}
}
