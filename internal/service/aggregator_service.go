package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/pkg/llm"
	"kisaanbot-be/pkg/orchestrator"
)

type AggregationStatus string

const (
	AggregationOK       AggregationStatus = "ok"
	AggregationMismatch AggregationStatus = "mismatch"
	AggregationError    AggregationStatus = "error"
)

type AggregationResult struct {
	Status AggregationStatus
	Text   string
}

type IAggregatorService interface {
	// Aggregate fuses the collected texts, audio refs, and image refs into a
	// single crop-locked compound question. Inputs about a different crop
	// yield a mismatch, never a partial aggregate.
	Aggregate(ctx context.Context, crop string, bundle entity.QueryBundle) AggregationResult
}

type aggregatorService struct {
	provider llm.LLMProvider
	orch     *orchestrator.Orchestrator
	log      logger.ILogger
}

func NewAggregatorService(provider llm.LLMProvider, orch *orchestrator.Orchestrator, log logger.ILogger) IAggregatorService {
	return &aggregatorService{provider: provider, orch: orch, log: log}
}

func (s *aggregatorService) Aggregate(ctx context.Context, crop string, bundle entity.QueryBundle) AggregationResult {
	if bundle.IsEmpty() {
		return AggregationResult{Status: AggregationError}
	}

	parts := s.buildParts(crop, bundle)

	var raw string
	err := s.orch.Call(ctx, orchestrator.KindAggregation, func(ctx context.Context) error {
		out, genErr := s.provider.GenerateMultimodal(ctx, parts, llm.WithTemperature(0.1))
		if genErr != nil {
			return genErr
		}
		raw = out
		return nil
	})

	// A slow multimodal pass still leaves room for a cheaper text-only pass
	// when the user typed anything at all.
	if err != nil && errors.Is(err, orchestrator.ErrTimeout) && len(bundle.Texts) > 0 {
		s.log.Warn("aggregator_service", "multimodal aggregation timed out, retrying text only", map[string]interface{}{
			"crop": crop,
		})
		err = s.orch.Call(ctx, orchestrator.KindTextAggregation, func(ctx context.Context) error {
			out, genErr := s.provider.GenerateMultimodal(ctx, s.textOnlyParts(crop, bundle), llm.WithTemperature(0.1))
			if genErr != nil {
				return genErr
			}
			raw = out
			return nil
		})
	}

	if err != nil {
		s.log.Error("aggregator_service", "aggregation failed", map[string]interface{}{
			"crop": crop, "error": err.Error(),
		})
		return AggregationResult{Status: AggregationError}
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return AggregationResult{Status: AggregationError}
	}

	if IsCropMismatch(text, crop) {
		s.log.Info("aggregator_service", "inputs rejected as off-crop", map[string]interface{}{
			"crop": crop, "response": text,
		})
		return AggregationResult{Status: AggregationMismatch, Text: text}
	}

	return AggregationResult{Status: AggregationOK, Text: text}
}

// IsCropMismatch reports whether the model rejected the batch. The
// aggregation instruction pins the rejection phrase, so a case-insensitive
// substring check is the whole contract.
func IsCropMismatch(response, crop string) bool {
	return strings.Contains(strings.ToLower(response), "not related to "+strings.ToLower(crop))
}

func (s *aggregatorService) buildParts(crop string, bundle entity.QueryBundle) []llm.Part {
	parts := make([]llm.Part, 0, 2+len(bundle.AudioRefs)+len(bundle.ImageRefs))
	parts = append(parts, llm.TextPart(strings.ReplaceAll(multimodalAggregationInstruction, "{Locked Crop Name}", crop)))

	if len(bundle.Texts) > 0 {
		parts = append(parts, llm.TextPart(fmt.Sprintf("TEXT INPUTS:\n%s", strings.Join(bundle.Texts, "\n"))))
	}
	for _, ref := range bundle.AudioRefs {
		parts = append(parts, llm.FilePart(mimeForRef(ref, "audio/ogg"), ref))
	}
	for _, ref := range bundle.ImageRefs {
		parts = append(parts, llm.FilePart(mimeForRef(ref, "image/jpeg"), ref))
	}
	return parts
}

func (s *aggregatorService) textOnlyParts(crop string, bundle entity.QueryBundle) []llm.Part {
	return []llm.Part{
		llm.TextPart(strings.ReplaceAll(multimodalAggregationInstruction, "{Locked Crop Name}", crop)),
		llm.TextPart(fmt.Sprintf("TEXT INPUTS:\n%s", strings.Join(bundle.Texts, "\n"))),
	}
}

func mimeForRef(ref, fallback string) string {
	switch {
	case strings.HasSuffix(ref, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(ref, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(ref, ".jpg"), strings.HasSuffix(ref, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(ref, ".png"):
		return "image/png"
	default:
		return fallback
	}
}
