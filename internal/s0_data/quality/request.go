package quality

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/homescan/internal/contracts"
)

// ErrNoPlatforms is returned when a gate request carries no platforms
var ErrNoPlatforms = errors.New("gate request has no platforms")

// GateRequest is the quality gate input: optional run id and thresholds plus
// the ordered platform collections
type GateRequest struct {
	RunID      string                         `json:"runId,omitempty"`
	Thresholds map[string]any                 `json:"thresholds,omitempty"`
	Platforms  []contracts.PlatformCollection `json:"platforms"`
}

// DecodeRequest parses a gate request. Threshold numbers are kept as
// json.Number so MergeThresholds sees them unrounded.
func DecodeRequest(data []byte) (*GateRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var req GateRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode gate request: %w", err)
	}

	if len(req.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for i, p := range req.Platforms {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("platforms[%d]: name is required", i)
		}
	}

	return &req, nil
}
