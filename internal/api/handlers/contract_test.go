package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/pkg/logger"
)

const validRecord = `{
	"schema_version": "1",
	"collection_run_id": "run-1",
	"platform_code": "naver",
	"external_id": "e1",
	"source_url": "https://land.test/1",
	"collected_at": "2024-01-01T00:00:00Z",
	"payload": {"title": "t", "area": {"exclusive_m2": 20}},
	"normalized": {
		"canonical_key": "k1",
		"source_url": "https://land.test/1",
		"address_text": "서울 강남구",
		"address_code": "11680",
		"lease_type": "전세",
		"rent_amount": null,
		"deposit_amount": 30000,
		"area_exclusive_m2": 59.9,
		"source_ref": "ref1"
	}
}`

func newContractHandler() *ContractHandler {
	log := logger.Nop()
	return NewContractHandler(contract.NewValidator(log, 2), log)
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestContractHandler_Validate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantValid  bool
	}{
		{name: "valid record", body: validRecord, wantStatus: http.StatusOK, wantValid: true},
		{name: "empty object only misses fields", body: `{}`, wantStatus: http.StatusOK, wantValid: true},
		{name: "relative url", body: `{"source_url": "relative/1"}`, wantStatus: http.StatusOK, wantValid: false},
		{name: "not an object", body: `[1, 2]`, wantStatus: http.StatusBadRequest},
		{name: "broken json", body: `{"external_id":`, wantStatus: http.StatusBadRequest},
	}

	h := newContractHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contract/validate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Validate(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			out := decodeMap(t, rec)
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, out["error"])
				return
			}
			assert.Equal(t, tt.wantValid, out["valid"])
			assert.Contains(t, out, "counts")
			assert.Contains(t, out, "errors")
		})
	}
}

func TestContractHandler_ValidateBatch(t *testing.T) {
	h := newContractHandler()
	body := "[" + validRecord + `, {"source_url": "relative/1"}, "text"]`

	req := httptest.NewRequest(http.MethodPost, "/api/contract/validate/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ValidateBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Valid)
	assert.Equal(t, 1, resp.Invalid)
	assert.Equal(t, 1, resp.Malformed)

	require.Len(t, resp.Results, 3)
	for i, item := range resp.Results {
		assert.Equal(t, i, item.Index)
	}
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[2].Error)
	assert.Nil(t, resp.Results[2].Report)
}

func TestContractHandler_ValidateBatchRejectsNonArray(t *testing.T) {
	h := newContractHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/contract/validate/batch", strings.NewReader(validRecord))
	rec := httptest.NewRecorder()
	h.ValidateBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContractHandler_BodyTooLarge(t *testing.T) {
	h := newContractHandler()

	big := bytes.Repeat([]byte(" "), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/contract/validate", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	h.Validate(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
