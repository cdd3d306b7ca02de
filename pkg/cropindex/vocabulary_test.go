package cropindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crops.json")
	return NewStore(path, logger.NewNoopLogger()), path
}

func TestLoadMissingFileWritesSkeleton(t *testing.T) {
	store, path := newTestStore(t)

	vocab, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vocab.Crops) != 0 || len(vocab.AmbiguousNames) != 0 {
		t.Errorf("expected empty vocabulary, got %+v", vocab)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("skeleton was not written: %v", err)
	}
	var onDisk entity.Vocabulary
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("skeleton is not valid JSON: %v", err)
	}
}

func TestLoadCorruptFileSelfHeals(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	vocab, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vocab.Crops) != 0 {
		t.Errorf("expected reset vocabulary, got %d crops", len(vocab.Crops))
	}
}

func TestAddCropGrowsAndDeduplicates(t *testing.T) {
	store, _ := newTestStore(t)

	grown, err := store.AddCrop(entity.CropEntry{
		MasterName: "Okra",
		Synonyms: []entity.SynonymPair{
			{EN: "bhindi", HI: "भिंडी"},
			{EN: "bhindi", HI: "भिंडी"}, // duplicate synonym
			{EN: "", HI: ""},           // empty pair
		},
	})
	if err != nil {
		t.Fatalf("AddCrop: %v", err)
	}
	if !grown {
		t.Fatal("expected vocabulary to grow")
	}

	// same name again, different case
	grown, err = store.AddCrop(entity.CropEntry{MasterName: "okra"})
	if err != nil {
		t.Fatalf("AddCrop: %v", err)
	}
	if grown {
		t.Error("duplicate master name must not grow the vocabulary")
	}

	vocab, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vocab.Crops) != 1 {
		t.Fatalf("crops = %d, want 1", len(vocab.Crops))
	}
	if got := len(vocab.Crops[0].Synonyms); got != 1 {
		t.Errorf("synonyms = %d, want 1 after dedup", got)
	}
}

func TestAddCropRejectsEmptyName(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.AddCrop(entity.CropEntry{MasterName: "   "}); err == nil {
		t.Error("expected an error for an empty crop name")
	}
}

func TestLoadPicksUpExternalEdits(t *testing.T) {
	store, path := newTestStore(t)
	if _, err := store.Load(); err != nil {
		t.Fatal(err)
	}

	edited := entity.Vocabulary{
		Crops:          []entity.CropEntry{{MasterName: "Maize"}},
		AmbiguousNames: []entity.AmbiguityEntry{},
	}
	raw, _ := json.Marshal(edited)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	// force a distinct mtime regardless of filesystem granularity
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	vocab, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vocab.Crops) != 1 || vocab.Crops[0].MasterName != "Maize" {
		t.Errorf("external edit not picked up: %+v", vocab.Crops)
	}
}

func TestSnapshotReusesDetectorUntilVocabularyChanges(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.AddCrop(entity.CropEntry{MasterName: "Wheat"}); err != nil {
		t.Fatal(err)
	}

	_, det1, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	_, det2, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if det1 != det2 {
		t.Error("alias index rebuilt without a vocabulary change")
	}

	if _, err := store.AddCrop(entity.CropEntry{MasterName: "Rice"}); err != nil {
		t.Fatal(err)
	}
	vocab, det3, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if det3 == det1 {
		t.Error("alias index not rebuilt after the vocabulary grew")
	}
	if len(vocab.Crops) != 2 {
		t.Fatalf("crops = %d, want 2", len(vocab.Crops))
	}
	if res := det3.Identify("rice", 3); res.Best == nil || res.Best.MasterName != "Rice" {
		t.Errorf("rebuilt index does not know the new crop: %+v", res.Best)
	}
}
