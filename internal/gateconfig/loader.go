package gateconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/logger"
)

// SupportedVersion is the only accepted thresholds file version
const SupportedVersion = 1

// File is the thresholds YAML document.
// Top-level keys are strict; threshold values are read loosely and fall back.
type File struct {
	Version     int            `yaml:"version"`
	Description string         `yaml:"description"`
	Thresholds  map[string]any `yaml:"thresholds"`
}

// ValidationError 파일 구조 오류 (로드 실패)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Loaded is a resolved thresholds file
type Loaded struct {
	Path       string
	Thresholds contracts.QualityThresholds
	Rejected   []string // 값이 잘못되어 기본값을 쓴 필드
	Unknown    []string // 알 수 없는 임계값 키
	Hash       string
	YAML       []byte
}

// Load reads a thresholds YAML file
// SSOT 핵심: KnownFields(true)로 최상위 오타는 즉시 실패
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if f.Version != SupportedVersion {
		return nil, ValidationError{"version", fmt.Sprintf("must be %d, got %d", SupportedVersion, f.Version)}
	}

	th, rejected := quality.ResolveThresholds(f.Thresholds)
	hash, err := Hash(th)
	if err != nil {
		return nil, err
	}

	return &Loaded{
		Path:       path,
		Thresholds: th,
		Rejected:   rejected,
		Unknown:    unknownKeys(f.Thresholds),
		Hash:       hash,
		YAML:       data,
	}, nil
}

// Resolve returns the thresholds to gate with. An empty path means defaults.
// Rejected and unknown keys are logged, never fatal.
func Resolve(path string, log *logger.Logger) (*Loaded, error) {
	if path == "" {
		th := contracts.DefaultThresholds()
		hash, err := Hash(th)
		if err != nil {
			return nil, err
		}
		return &Loaded{Thresholds: th, Rejected: []string{}, Hash: hash}, nil
	}

	loaded, err := Load(path)
	if err != nil {
		return nil, err
	}

	log = log.WithFields(map[string]interface{}{
		"module": "gateconfig",
		"path":   path,
	})
	if len(loaded.Rejected) > 0 {
		log.WithField("fields", loaded.Rejected).Warn("Invalid threshold values, using defaults")
	}
	if len(loaded.Unknown) > 0 {
		log.WithField("keys", loaded.Unknown).Warn("Unknown threshold keys ignored")
	}
	log.WithField("hash", loaded.Hash).Info("Thresholds loaded")

	return loaded, nil
}

// Hash generates SHA256 hash from thresholds (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(th contracts.QualityThresholds) (string, error) {
	jsonBytes, err := json.Marshal(th)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

func unknownKeys(raw map[string]any) []string {
	known := quality.ThresholdsMap(contracts.DefaultThresholds())
	unknown := []string{}
	for k := range raw {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
