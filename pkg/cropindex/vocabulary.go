package cropindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

// Store loads the crop vocabulary from disk and keeps a cached copy that is
// refreshed when the file's mtime changes. Writes go through a temp file and
// rename so readers never observe a partial file.
type Store struct {
	path string
	log  logger.ILogger

	mu       sync.Mutex
	cached   *entity.Vocabulary
	detector *Detector
	loadedAt time.Time
	mtime    time.Time
}

func NewStore(path string, log logger.ILogger) *Store {
	return &Store{path: path, log: log}
}

// Load returns the current vocabulary, rereading the file only when it has
// changed on disk. A missing or corrupt file yields an empty skeleton that is
// written back so later appends have a valid base.
func (s *Store) Load() (*entity.Vocabulary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Snapshot returns the current vocabulary together with an alias index over
// it. The index is rebuilt only when the vocabulary itself is reloaded.
func (s *Store) Snapshot() (*entity.Vocabulary, *Detector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vocab, err := s.loadLocked()
	if err != nil {
		return nil, nil, err
	}
	if s.detector == nil {
		s.detector = NewDetector(vocab.Crops)
	}
	return vocab, s.detector, nil
}

func (s *Store) loadLocked() (*entity.Vocabulary, error) {
	info, err := os.Stat(s.path)
	if err == nil && s.cached != nil && info.ModTime().Equal(s.mtime) {
		return s.cached, nil
	}

	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat vocabulary: %w", err)
		}
		s.log.Warn("cropindex", "vocabulary file missing, starting empty", map[string]interface{}{"path": s.path})
		empty := &entity.Vocabulary{Crops: []entity.CropEntry{}, AmbiguousNames: []entity.AmbiguityEntry{}}
		if werr := s.writeLocked(empty); werr != nil {
			return nil, werr
		}
		return s.cached, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var vocab entity.Vocabulary
	if err := json.Unmarshal(raw, &vocab); err != nil {
		s.log.Error("cropindex", "vocabulary file is corrupt, resetting", map[string]interface{}{"path": s.path, "error": err.Error()})
		empty := &entity.Vocabulary{Crops: []entity.CropEntry{}, AmbiguousNames: []entity.AmbiguityEntry{}}
		if werr := s.writeLocked(empty); werr != nil {
			return nil, werr
		}
		return s.cached, nil
	}
	if vocab.Crops == nil {
		vocab.Crops = []entity.CropEntry{}
	}
	if vocab.AmbiguousNames == nil {
		vocab.AmbiguousNames = []entity.AmbiguityEntry{}
	}

	s.cached = &vocab
	s.detector = nil
	s.mtime = info.ModTime()
	s.loadedAt = time.Now()
	return s.cached, nil
}

// AddCrop appends a new crop entry, deduplicating against existing master
// names case-insensitively. Returns true when the vocabulary grew.
func (s *Store) AddCrop(crop entity.CropEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vocab, err := s.loadLocked()
	if err != nil {
		return false, err
	}

	name := NormalizeText(crop.MasterName)
	if name == "" {
		return false, fmt.Errorf("empty crop name")
	}
	for _, existing := range vocab.Crops {
		if NormalizeText(existing.MasterName) == name {
			return false, nil
		}
	}

	crop.Synonyms = cleanSynonyms(crop.Synonyms)

	next := &entity.Vocabulary{
		Crops:          append(append([]entity.CropEntry{}, vocab.Crops...), crop),
		AmbiguousNames: vocab.AmbiguousNames,
	}
	if err := s.writeLocked(next); err != nil {
		return false, err
	}
	s.log.Info("cropindex", "vocabulary grew", map[string]interface{}{"crop": crop.MasterName, "total": len(next.Crops)})
	return true, nil
}

func cleanSynonyms(syns []entity.SynonymPair) []entity.SynonymPair {
	seen := make(map[string]bool)
	out := make([]entity.SynonymPair, 0, len(syns))
	for _, p := range syns {
		en := NormalizeText(p.EN)
		hi := NormalizeText(p.HI)
		if en == "" && hi == "" {
			continue
		}
		key := en + "|" + hi
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entity.SynonymPair{EN: p.EN, HI: p.HI})
	}
	return out
}

func (s *Store) writeLocked(vocab *entity.Vocabulary) error {
	data, err := json.MarshalIndent(vocab, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vocabulary: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir vocabulary dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".crops-*.json")
	if err != nil {
		return fmt.Errorf("temp vocabulary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write vocabulary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close vocabulary: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace vocabulary: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat vocabulary after write: %w", err)
	}
	s.cached = vocab
	s.detector = nil
	s.mtime = info.ModTime()
	s.loadedAt = time.Now()
	return nil
}
