package cropindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

type ResolutionOutcome string

const (
	OutcomeResolved  ResolutionOutcome = "resolved"
	OutcomeAmbiguous ResolutionOutcome = "ambiguous"
	OutcomeNotFound  ResolutionOutcome = "not_found"
)

type Resolution struct {
	Outcome ResolutionOutcome

	// Resolved
	MasterName     string
	HindiName      string
	IsExistingCrop bool

	// Ambiguous
	Options []entity.CropOption
}

// TextGenerator is the single LLM call the resolver needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Resolver turns free-form farmer input into a canonical crop name. The
// curated ambiguity table wins over everything, then the alias index, and as
// a last resort an LLM identifies the crop and may grow the vocabulary.
type Resolver struct {
	store *Store
	llm   TextGenerator
	log   logger.ILogger
}

func NewResolver(store *Store, llm TextGenerator, log logger.ILogger) *Resolver {
	return &Resolver{store: store, llm: llm, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, input string) (Resolution, error) {
	vocab, det, err := r.store.Snapshot()
	if err != nil {
		return Resolution{}, fmt.Errorf("load vocabulary: %w", err)
	}

	qNorm := NormalizeText(input)
	if qNorm == "" {
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	// 1) curated ambiguity table overrides every other signal
	if res, ok := r.matchCurated(vocab, qNorm); ok {
		return res, nil
	}

	// 2) alias index
	result := det.Identify(qNorm, 3)
	if result.Ambiguous {
		opts := make([]entity.CropOption, 0, len(result.Candidates))
		for i, c := range result.Candidates {
			if i >= 3 {
				break
			}
			opts = append(opts, entity.CropOption{ID: fmt.Sprintf("crop_opt_%d", i), Title: c.MasterName})
		}
		return Resolution{Outcome: OutcomeAmbiguous, Options: opts}, nil
	}
	if result.Best != nil {
		return Resolution{
			Outcome:        OutcomeResolved,
			MasterName:     result.Best.MasterName,
			HindiName:      vocab.HindiNameFor(result.Best.MasterName),
			IsExistingCrop: true,
		}, nil
	}

	// 3) LLM fallback
	return r.resolveWithLLM(ctx, vocab, input)
}

func (r *Resolver) matchCurated(vocab *entity.Vocabulary, qNorm string) (Resolution, bool) {
	tokens := strings.Fields(qNorm)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	for _, amb := range vocab.AmbiguousNames {
		variants := append([]string{amb.InputWord.EN, amb.InputWord.HI}, amb.Variations...)
		hit := false
		for _, v := range variants {
			vn := NormalizeText(v)
			if vn == "" {
				continue
			}
			// Multi-word triggers match as substrings, single words only as
			// whole tokens so "dal" does not fire inside "daldal".
			if strings.Contains(vn, " ") {
				hit = strings.Contains(qNorm, vn)
			} else {
				hit = tokenSet[vn]
			}
			if hit {
				break
			}
		}
		if !hit {
			continue
		}

		if len(amb.ResolvesTo) == 1 {
			master := amb.ResolvesTo[0]
			return Resolution{
				Outcome:        OutcomeResolved,
				MasterName:     master,
				HindiName:      vocab.HindiNameFor(master),
				IsExistingCrop: true,
			}, true
		}

		opts := make([]entity.CropOption, 0, 3)
		for i, opt := range amb.ButtonOptions {
			if i >= 3 {
				break
			}
			id := opt.ID
			if id == "" {
				id = fmt.Sprintf("crop_opt_%d", i)
			}
			opts = append(opts, entity.CropOption{ID: id, Title: opt.Title})
		}
		if len(opts) == 0 {
			for i, name := range amb.ResolvesTo {
				if i >= 3 {
					break
				}
				opts = append(opts, entity.CropOption{ID: fmt.Sprintf("crop_opt_%d", i), Title: name})
			}
		}
		return Resolution{Outcome: OutcomeAmbiguous, Options: opts}, true
	}
	return Resolution{}, false
}

func (r *Resolver) resolveWithLLM(ctx context.Context, vocab *entity.Vocabulary, input string) (Resolution, error) {
	if r.llm == nil {
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	prompt := buildFallbackPrompt(vocab.MasterNames(), input)
	reply, err := r.llm.GenerateText(ctx, prompt)
	if err != nil {
		r.log.Warn("cropindex", "llm fallback failed", map[string]interface{}{"error": err.Error()})
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	reply = strings.TrimSpace(reply)
	lower := strings.ToLower(reply)

	if strings.Contains(lower, "no crop found") {
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	// "<MasterName>|found" means the crop is already in the vocabulary
	if idx := strings.Index(reply, "|"); idx > 0 && strings.Contains(lower, "|found") {
		name := strings.TrimSpace(reply[:idx])
		for _, master := range vocab.MasterNames() {
			if strings.EqualFold(master, name) {
				return Resolution{
					Outcome:        OutcomeResolved,
					MasterName:     master,
					HindiName:      vocab.HindiNameFor(master),
					IsExistingCrop: true,
				}, nil
			}
		}
		r.log.Warn("cropindex", "llm named unknown existing crop", map[string]interface{}{"name": name})
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	// otherwise expect a JSON crop entry describing a new crop
	entry, ok := parseNewCrop(reply)
	if !ok {
		r.log.Warn("cropindex", "unparseable llm fallback reply", map[string]interface{}{"reply": truncate(reply, 200)})
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	if _, err := r.store.AddCrop(entry); err != nil {
		r.log.Error("cropindex", "failed to persist new crop", map[string]interface{}{"crop": entry.MasterName, "error": err.Error()})
	}

	hindi := ""
	for _, p := range entry.Synonyms {
		if p.HI != "" {
			hindi = p.HI
			break
		}
	}
	return Resolution{
		Outcome:        OutcomeResolved,
		MasterName:     entry.MasterName,
		HindiName:      hindi,
		IsExistingCrop: false,
	}, nil
}

func buildFallbackPrompt(masters []string, input string) string {
	var b strings.Builder
	b.WriteString("You are an agricultural assistant. A farmer wrote the message below, possibly in Hindi, Hinglish, or English, and it may contain a crop name with spelling mistakes.\n\n")
	b.WriteString("Known crops: ")
	b.WriteString(strings.Join(masters, ", "))
	b.WriteString("\n\nFarmer message: \"")
	b.WriteString(input)
	b.WriteString("\"\n\nRespond with exactly one of:\n")
	b.WriteString("1. If the message refers to a known crop, reply: <ExactMasterName>|found\n")
	b.WriteString("2. If it refers to a real crop not in the list, reply with JSON only: {\"master_name\": \"...\", \"synonyms\": [{\"en\": \"...\", \"hi\": \"...\"}]}\n")
	b.WriteString("3. If no crop is mentioned, reply: no crop found\n")
	return b.String()
}

func parseNewCrop(reply string) (entity.CropEntry, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return entity.CropEntry{}, false
	}
	var entry entity.CropEntry
	if err := json.Unmarshal([]byte(reply[start:end+1]), &entry); err != nil {
		return entity.CropEntry{}, false
	}
	if strings.TrimSpace(entry.MasterName) == "" {
		return entity.CropEntry{}, false
	}
	entry.MasterName = strings.TrimSpace(entry.MasterName)
	return entry, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
