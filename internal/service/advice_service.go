package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/pkg/llm"
	"kisaanbot-be/pkg/orchestrator"
	"kisaanbot-be/pkg/rag"
)

// AdviceArtifacts carries everything one advice run produced, so the caller
// can persist it into the session and audit trail in one write.
type AdviceArtifacts struct {
	DecomposedQueries []string
	RagResults        []entity.EvidenceRecord
	Responses         []string
	FinalText         string
}

type IAdviceService interface {
	// GenerateAdvice runs the full chain for an aggregated crop question.
	// Crops present in the knowledge index go through decomposition,
	// retrieval, and evidence-grounded synthesis; unseen crops get direct
	// expert generation plus a factual audit. A non-nil error means no
	// usable text could be produced at all.
	GenerateAdvice(ctx context.Context, crop string, isExistingCrop bool, aggregated string) (AdviceArtifacts, error)
}

type adviceService struct {
	provider   llm.LLMProvider
	retriever  *rag.Retriever
	decomposer IDecomposerService
	orch       *orchestrator.Orchestrator
	log        logger.ILogger
}

func NewAdviceService(
	provider llm.LLMProvider,
	retriever *rag.Retriever,
	decomposer IDecomposerService,
	orch *orchestrator.Orchestrator,
	log logger.ILogger,
) IAdviceService {
	return &adviceService{
		provider:   provider,
		retriever:  retriever,
		decomposer: decomposer,
		orch:       orch,
		log:        log,
	}
}

func (s *adviceService) GenerateAdvice(ctx context.Context, crop string, isExistingCrop bool, aggregated string) (AdviceArtifacts, error) {
	if isExistingCrop {
		return s.groundedAdvice(ctx, crop, aggregated)
	}
	return s.directAdvice(ctx, crop, aggregated)
}

// directAdvice answers from model knowledge alone, then audits the result.
// A failed audit keeps the unaudited text rather than losing the answer.
func (s *adviceService) directAdvice(ctx context.Context, crop, aggregated string) (AdviceArtifacts, error) {
	var art AdviceArtifacts

	var draft string
	err := s.orch.Call(ctx, orchestrator.KindAdviceGeneration, func(ctx context.Context) error {
		out, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nQUESTION:\n%s", adviceGenerationInstruction, aggregated),
			llm.WithTemperature(0.2))
		if genErr != nil {
			return genErr
		}
		draft = strings.TrimSpace(out)
		return nil
	})
	if err == nil && draft == "" {
		err = fmt.Errorf("%w: empty generation response", orchestrator.ErrCallFailed)
	}
	if err != nil {
		s.log.Error("advice_service", "direct advice generation failed", map[string]interface{}{
			"crop": crop, "error": err.Error(),
		})
		return art, fmt.Errorf("advice generation for %s: %w", crop, err)
	}
	art.Responses = append(art.Responses, draft)

	audited := draft
	err = s.orch.Call(ctx, orchestrator.KindAdviceAudit, func(ctx context.Context) error {
		out, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nRESPONSE TO AUDIT:\n%s", adviceAuditInstruction, draft),
			llm.WithTemperature(0))
		if genErr != nil {
			return genErr
		}
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			audited = trimmed
		}
		return nil
	})
	if err != nil {
		s.log.Warn("advice_service", "advice audit failed, keeping unaudited text", map[string]interface{}{
			"crop": crop, "error": err.Error(),
		})
	} else if audited != draft {
		art.Responses = append(art.Responses, audited)
	}

	art.FinalText = s.formatAudit(ctx, crop, audited)
	if art.FinalText != audited {
		art.Responses = append(art.Responses, art.FinalText)
	}
	return art, nil
}

func (s *adviceService) groundedAdvice(ctx context.Context, crop, aggregated string) (AdviceArtifacts, error) {
	var art AdviceArtifacts

	art.DecomposedQueries = s.decomposer.Decompose(ctx, crop, aggregated)
	art.RagResults = s.retriever.Retrieve(ctx, toRagQueries(crop, art.DecomposedQueries))

	// The aggregated query is itself a readable answer skeleton, so a failed
	// synthesis degrades to it instead of aborting the run.
	responseText := aggregated
	art.Responses = append(art.Responses, responseText)

	synthesized, err := s.synthesize(ctx, crop, art.RagResults)
	if err != nil {
		s.log.Error("advice_service", "evidence synthesis failed, degrading to aggregated query", map[string]interface{}{
			"crop": crop, "error": err.Error(),
		})
	} else {
		responseText = synthesized
		art.Responses = append(art.Responses, synthesized)
	}

	art.FinalText = s.formatAudit(ctx, crop, responseText)
	if art.FinalText != responseText {
		art.Responses = append(art.Responses, art.FinalText)
	}
	return art, nil
}

func (s *adviceService) synthesize(ctx context.Context, crop string, records []entity.EvidenceRecord) (string, error) {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}

	var out string
	err = s.orch.Call(ctx, orchestrator.KindEvidenceSynthesis, func(ctx context.Context) error {
		resp, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nEVIDENCE RECORDS (JSON):\n%s", evidenceSynthesisInstruction, payload),
			llm.WithTemperature(0.2))
		if genErr != nil {
			return genErr
		}
		out = strings.TrimSpace(resp)
		return nil
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty synthesis response for %s", crop)
	}
	return out, nil
}

// formatAudit is best effort: the synthesized text is already an answer, so
// any audit failure returns it unchanged.
func (s *adviceService) formatAudit(ctx context.Context, crop, text string) string {
	var out string
	err := s.orch.Call(ctx, orchestrator.KindFormatAudit, func(ctx context.Context) error {
		resp, genErr := s.provider.Generate(ctx,
			fmt.Sprintf("%s\n\nRESPONSE TO FORMAT:\n%s", formatAuditInstruction, text),
			llm.WithTemperature(0))
		if genErr != nil {
			return genErr
		}
		out = strings.TrimSpace(resp)
		return nil
	})
	if err != nil || out == "" {
		s.log.Warn("advice_service", "format audit failed, keeping synthesized text", map[string]interface{}{
			"crop": crop, "error": errString(err),
		})
		return text
	}
	return out
}

func toRagQueries(crop string, lines []string) []rag.Query {
	queries := make([]rag.Query, 0, len(lines))
	for _, line := range lines {
		q := rag.Query{Crop: crop, Text: line}
		if idx := strings.Index(line, "|"); idx >= 0 {
			if c := strings.TrimSpace(line[:idx]); c != "" {
				q.Crop = c
			}
			q.Text = strings.TrimSpace(line[idx+1:])
		}
		if q.Text == "" {
			continue
		}
		queries = append(queries, q)
	}
	return queries
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
