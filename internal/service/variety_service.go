package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/pkg/llm"
	"kisaanbot-be/pkg/orchestrator"
)

const varietiesFileName = "varieties.json"

// VarietyRecord is one curated variety entry in the local records file.
type VarietyRecord struct {
	Crop        string `json:"crop"`
	Variety     string `json:"variety"`
	SowingTime  string `json:"sowing_time"`
	Description string `json:"description"`
}

type IVarietyService interface {
	// VarietiesResponse returns the formatted varieties-and-sowing-time
	// message for a crop. Local records win; unseen crops fall back to a
	// model lookup whose audited result is persisted for next time.
	VarietiesResponse(ctx context.Context, crop string) (string, error)
}

type varietyService struct {
	path     string
	provider llm.LLMProvider
	orch     *orchestrator.Orchestrator
	log      logger.ILogger
	mu       sync.Mutex
}

func NewVarietyService(dataDir string, provider llm.LLMProvider, orch *orchestrator.Orchestrator, log logger.ILogger) IVarietyService {
	return &varietyService{
		path:     filepath.Join(dataDir, varietiesFileName),
		provider: provider,
		orch:     orch,
		log:      log,
	}
}

func (s *varietyService) VarietiesResponse(ctx context.Context, crop string) (string, error) {
	records, err := s.loadForCrop(crop)
	if err != nil {
		s.log.Warn("variety_service", "varieties file unreadable, falling back to model", map[string]interface{}{
			"path": s.path, "error": err.Error(),
		})
	}
	if len(records) > 0 {
		return formatVarieties(crop, records), nil
	}

	fetched, err := s.fetchFromModel(ctx, crop)
	if err != nil {
		return "", err
	}
	if len(fetched) == 0 {
		return "", fmt.Errorf("no varieties known for %s", crop)
	}

	if saveErr := s.appendRecords(fetched); saveErr != nil {
		s.log.Warn("variety_service", "could not persist fetched varieties", map[string]interface{}{
			"crop": crop, "error": saveErr.Error(),
		})
	}
	return formatVarieties(crop, fetched), nil
}

func (s *varietyService) loadForCrop(crop string) ([]VarietyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var all []VarietyRecord
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}

	var matched []VarietyRecord
	for _, rec := range all {
		if strings.EqualFold(strings.TrimSpace(rec.Crop), crop) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// varietyLookupPayload mirrors the JSON shape the lookup instruction demands.
type varietyLookupPayload struct {
	CropName  string `json:"crop_name"`
	Varieties []struct {
		VarietyName string `json:"variety_name"`
		SowingTime  string `json:"sowing_time"`
		Description string `json:"description"`
	} `json:"varieties"`
}

func (s *varietyService) fetchFromModel(ctx context.Context, crop string) ([]VarietyRecord, error) {
	var raw string
	err := s.orch.Call(ctx, orchestrator.KindVarietyLookup, func(ctx context.Context) error {
		out, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nCROP: %s", varietyLookupInstruction, crop),
			llm.WithTemperature(0.2))
		if genErr != nil {
			return genErr
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Audit is best effort; a failed audit keeps the original lookup.
	audited := raw
	auditErr := s.orch.Call(ctx, orchestrator.KindVarietyAudit, func(ctx context.Context) error {
		out, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nJSON TO AUDIT:\n%s", varietyAuditInstruction, raw),
			llm.WithTemperature(0))
		if genErr != nil {
			return genErr
		}
		if strings.TrimSpace(out) != "" {
			audited = out
		}
		return nil
	})
	if auditErr != nil {
		s.log.Warn("variety_service", "variety audit failed, keeping unaudited lookup", map[string]interface{}{
			"crop": crop, "error": auditErr.Error(),
		})
	}

	payload, err := parseVarietyPayload(audited)
	if err != nil {
		// The audit may have mangled the JSON even when the lookup was fine.
		if payload, err = parseVarietyPayload(raw); err != nil {
			return nil, fmt.Errorf("variety lookup for %s returned unparseable JSON: %w", crop, err)
		}
	}

	records := make([]VarietyRecord, 0, len(payload.Varieties))
	for _, v := range payload.Varieties {
		if strings.TrimSpace(v.VarietyName) == "" {
			continue
		}
		records = append(records, VarietyRecord{
			Crop:        crop,
			Variety:     v.VarietyName,
			SowingTime:  v.SowingTime,
			Description: v.Description,
		})
	}
	return records, nil
}

func parseVarietyPayload(raw string) (*varietyLookupPayload, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found")
	}

	var payload varietyLookupPayload
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (s *varietyService) appendRecords(records []VarietyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []VarietyRecord
	if raw, err := os.ReadFile(s.path); err == nil {
		// A corrupt file is replaced rather than appended to.
		_ = json.Unmarshal(raw, &all)
	}
	all = append(all, records...)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func formatVarieties(crop string, records []VarietyRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s की किस्में और बुवाई का समय:\n", crop))
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("\n🌾 *%s*\n", rec.Variety))
		if rec.SowingTime != "" {
			sb.WriteString(fmt.Sprintf("बुवाई का समय: %s\n", rec.SowingTime))
		}
		if rec.Description != "" {
			sb.WriteString(rec.Description)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
