package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/pkg/logger"
)

// ContractHandler exposes the listing contract validator
// ⭐ SSOT: 계약 검증 API 핸들러는 이 구조체에서만
type ContractHandler struct {
	validator *contract.Validator
	logger    *logger.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(validator *contract.Validator, log *logger.Logger) *ContractHandler {
	return &ContractHandler{
		validator: validator,
		logger:    log.WithField("handler", "contract"),
	}
}

// Validate checks one raw collection record
// POST /api/contract/validate
func (h *ContractHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	report, err := contract.Validate(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// BatchItem is one record's outcome in a batch response
type BatchItem struct {
	Index  int                         `json:"index"`
	Sample contracts.Sample            `json:"sample"`
	Report *contracts.ValidationReport `json:"report,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

// BatchResponse is the batch validation response
type BatchResponse struct {
	Total     int         `json:"total"`
	Valid     int         `json:"valid"`
	Invalid   int         `json:"invalid"`
	Malformed int         `json:"malformed"`
	Results   []BatchItem `json:"results"`
}

// ValidateBatch checks a JSON array of raw collection records
// POST /api/contract/validate/batch
func (h *ContractHandler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, err)
		return
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		respondError(w, http.StatusBadRequest, "Request body must be a JSON array of records")
		return
	}

	results := h.validator.ValidateBatch(r.Context(), records)
	if err := r.Context().Err(); err != nil {
		h.logger.WithError(err).Warn("Batch validation canceled")
		return
	}

	resp := BatchResponse{
		Total:   len(results),
		Results: make([]BatchItem, 0, len(results)),
	}
	for _, res := range results {
		item := BatchItem{Index: res.Index, Sample: res.Sample, Report: res.Report}
		switch {
		case res.Err != nil:
			item.Error = res.Err.Error()
			if errors.Is(res.Err, contract.ErrMalformedRecord) {
				resp.Malformed++
			}
		case res.Report.Valid:
			resp.Valid++
		default:
			resp.Invalid++
		}
		resp.Results = append(resp.Results, item)
	}

	respondJSON(w, http.StatusOK, resp)
}
