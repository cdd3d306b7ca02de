package service

import (
	"context"
	"fmt"
	"strings"

	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/pkg/llm"
	"kisaanbot-be/pkg/orchestrator"
)

type IDecomposerService interface {
	// Decompose splits a compound crop question into atomic
	// "Crop | question" lines. It always returns at least one line; on any
	// failure the aggregated query itself becomes the single sub-question.
	Decompose(ctx context.Context, crop, aggregated string) []string
}

type decomposerService struct {
	provider llm.LLMProvider
	orch     *orchestrator.Orchestrator
	log      logger.ILogger
}

func NewDecomposerService(provider llm.LLMProvider, orch *orchestrator.Orchestrator, log logger.ILogger) IDecomposerService {
	return &decomposerService{provider: provider, orch: orch, log: log}
}

func (s *decomposerService) Decompose(ctx context.Context, crop, aggregated string) []string {
	prompt := fmt.Sprintf("%s\n\nINPUT:\n%s", decompositionInstruction, aggregated)

	var raw string
	err := s.orch.Call(ctx, orchestrator.KindDecomposition, func(ctx context.Context) error {
		out, genErr := s.provider.Generate(ctx, prompt, llm.WithTemperature(0))
		if genErr != nil {
			return genErr
		}
		raw = out
		return nil
	})
	if err != nil {
		s.log.Warn("decomposer_service", "decomposition failed, using aggregated query as-is", map[string]interface{}{
			"crop": crop, "error": err.Error(),
		})
		return []string{fallbackLine(crop, aggregated)}
	}

	lines := parseDecomposition(raw)
	if len(lines) == 0 {
		s.log.Warn("decomposer_service", "decomposition produced no usable lines", map[string]interface{}{
			"crop": crop, "response": raw,
		})
		return []string{fallbackLine(crop, aggregated)}
	}
	return lines
}

// parseDecomposition keeps only lines carrying the crop|question separator.
// Anything else is model chatter and gets discarded.
func parseDecomposition(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "|") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func fallbackLine(crop, aggregated string) string {
	// The aggregate usually arrives as "Crop - question"; normalize the
	// separator so downstream parsing stays uniform.
	if strings.Contains(aggregated, " - ") {
		return strings.Replace(aggregated, " - ", " | ", 1)
	}
	return fmt.Sprintf("%s | %s", crop, aggregated)
}
