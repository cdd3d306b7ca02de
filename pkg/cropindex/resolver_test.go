package cropindex

import (
	"context"
	"errors"
	"testing"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func seedVocabulary(t *testing.T, store *Store) {
	t.Helper()
	for _, crop := range testCrops() {
		if _, err := store.AddCrop(crop); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestResolveKnownCropSkipsLLM(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)
	llm := &stubLLM{reply: "should not be called"}
	r := NewResolver(store, llm, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "gehu")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeResolved {
		t.Fatalf("outcome = %q, want resolved", res.Outcome)
	}
	if res.MasterName != "Wheat" {
		t.Errorf("master = %q, want Wheat", res.MasterName)
	}
	if !res.IsExistingCrop {
		t.Error("known crop must be flagged as existing")
	}
	if res.HindiName != "गेहूं" {
		t.Errorf("hindi = %q, want गेहूं", res.HindiName)
	}
	if llm.calls != 0 {
		t.Errorf("llm calls = %d, want 0", llm.calls)
	}
}

func TestResolveCuratedOverrideBeatsDetector(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)

	// install a curated entry that would otherwise resolve via the index
	vocab, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	next := *vocab
	next.AmbiguousNames = []entity.AmbiguityEntry{{
		InputWord:  entity.SynonymPair{EN: "dal", HI: "दाल"},
		Variations: []string{"daal"},
		ResolvesTo: []string{"Pigeon Pea", "Black Gram", "Green Gram"},
		ButtonOptions: []entity.CropOption{
			{ID: "crop_opt_0", Title: "Pigeon Pea"},
			{ID: "crop_opt_1", Title: "Black Gram"},
			{ID: "crop_opt_2", Title: "Green Gram"},
		},
	}}
	if err := store.writeLocked(&next); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, &stubLLM{}, logger.NewNoopLogger())
	res, err := r.Resolve(context.Background(), "meri daal kharab ho rahi hai")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeAmbiguous {
		t.Fatalf("outcome = %q, want ambiguous", res.Outcome)
	}
	if len(res.Options) != 3 {
		t.Fatalf("options = %d, want 3", len(res.Options))
	}
	if res.Options[0].Title != "Pigeon Pea" {
		t.Errorf("first option = %q, want Pigeon Pea", res.Options[0].Title)
	}
}

func TestResolveCuratedDirectResolution(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)

	vocab, _ := store.Load()
	next := *vocab
	next.AmbiguousNames = []entity.AmbiguityEntry{{
		InputWord:  entity.SynonymPair{EN: "makka"},
		ResolvesTo: []string{"Wheat"}, // deliberate override to prove the table wins
	}}
	if err := store.writeLocked(&next); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, &stubLLM{}, logger.NewNoopLogger())
	res, err := r.Resolve(context.Background(), "makka")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeResolved || res.MasterName != "Wheat" {
		t.Errorf("got %+v, want curated resolution to Wheat", res)
	}
}

func TestResolveCuratedHindiTriggerAndOptionFallback(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)

	vocab, _ := store.Load()
	next := *vocab
	next.AmbiguousNames = []entity.AmbiguityEntry{{
		InputWord:  entity.SynonymPair{EN: "lemon", HI: "नींबू"},
		ResolvesTo: []string{"Lemon", "Acid Lime"},
	}}
	if err := store.writeLocked(&next); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, &stubLLM{}, logger.NewNoopLogger())
	res, err := r.Resolve(context.Background(), "नींबू में कीड़े")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeAmbiguous {
		t.Fatalf("outcome = %q, want ambiguous", res.Outcome)
	}
	// No curated buttons, so the choices come from the resolution list.
	if len(res.Options) != 2 || res.Options[0].Title != "Lemon" || res.Options[1].Title != "Acid Lime" {
		t.Errorf("options = %+v", res.Options)
	}
	if res.Options[0].ID != "crop_opt_0" {
		t.Errorf("option id = %q, want crop_opt_0", res.Options[0].ID)
	}
}

func TestResolveCuratedSingleWordNeedsTokenBoundary(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)

	vocab, _ := store.Load()
	next := *vocab
	next.AmbiguousNames = []entity.AmbiguityEntry{{
		InputWord:  entity.SynonymPair{EN: "dal"},
		ResolvesTo: []string{"Pigeon Pea", "Black Gram"},
	}}
	if err := store.writeLocked(&next); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(store, &stubLLM{reply: "no crop found"}, logger.NewNoopLogger())
	res, err := r.Resolve(context.Background(), "daldal wali zameen")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome == OutcomeAmbiguous {
		t.Error("single-word trigger must not match inside a longer token")
	}
}

func TestResolveLLMFoundExisting(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)
	llm := &stubLLM{reply: "Rice|found"}
	r := NewResolver(store, llm, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "paddy ke baare mein batao")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeResolved {
		t.Fatalf("outcome = %q, want resolved", res.Outcome)
	}
	if res.MasterName != "Rice" || !res.IsExistingCrop {
		t.Errorf("got %+v, want existing Rice", res)
	}
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1", llm.calls)
	}
}

func TestResolveLLMNewCropGrowsVocabulary(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)
	llm := &stubLLM{reply: `Here you go: {"master_name": "Dragon Fruit", "synonyms": [{"en": "kamalam", "hi": "ड्रैगन फ्रूट"}]}`}
	r := NewResolver(store, llm, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "dragun frut me kya daale")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeResolved {
		t.Fatalf("outcome = %q, want resolved", res.Outcome)
	}
	if res.MasterName != "Dragon Fruit" {
		t.Errorf("master = %q, want Dragon Fruit", res.MasterName)
	}
	if res.IsExistingCrop {
		t.Error("newly learned crop must be flagged as not existing")
	}
	if res.HindiName != "ड्रैगन फ्रूट" {
		t.Errorf("hindi = %q", res.HindiName)
	}

	vocab, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, c := range vocab.Crops {
		if c.MasterName == "Dragon Fruit" {
			found = true
		}
	}
	if !found {
		t.Error("new crop was not persisted")
	}
}

func TestResolveLLMNoCropFound(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)
	r := NewResolver(store, &stubLLM{reply: "no crop found"}, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "aaj mausam kaisa hai")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Errorf("outcome = %q, want not_found", res.Outcome)
	}
}

func TestResolveLLMErrorDegradesToNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	seedVocabulary(t, store)
	r := NewResolver(store, &stubLLM{err: errors.New("upstream down")}, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "xyzzy plugh")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Errorf("outcome = %q, want not_found", res.Outcome)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	store, _ := newTestStore(t)
	r := NewResolver(store, &stubLLM{}, logger.NewNoopLogger())

	res, err := r.Resolve(context.Background(), "   !!!   ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Errorf("outcome = %q, want not_found", res.Outcome)
	}
}
