package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kisaanbot-be/internal/config"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/contract"
	"kisaanbot-be/internal/repository/implementation"
	"kisaanbot-be/pkg/embedding"
	"kisaanbot-be/pkg/rag"
)

const batchSize = 32

// ragindex walks the knowledge base directory (one sub-directory per crop,
// holding .txt passage files), embeds every passage, and loads them into the
// vector index. A progress file makes interrupted runs resumable; pass
// -reindex to rebuild files that were already loaded.
func main() {
	reindex := flag.Bool("reindex", false, "re-embed files that are already indexed")
	flag.Parse()

	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, false)
	defer sysLogger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.Connection), &gorm.Config{})
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	repo := implementation.NewKnowledgeChunkRepository(db)
	provider := embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Pipeline.EmbeddingModel)

	progressPath := filepath.Join(cfg.Data.Dir, "ragindex.progress")
	done := loadProgress(progressPath)

	ctx := context.Background()
	cropDirs, err := os.ReadDir(cfg.Data.KnowledgeDir)
	if err != nil {
		log.Fatalf("Unable to read knowledge base dir %s: %v", cfg.Data.KnowledgeDir, err)
	}

	var indexed, skipped int
	for _, cropDir := range cropDirs {
		if !cropDir.IsDir() {
			continue
		}
		cropTag := rag.NormalizeCropTag(cropDir.Name())

		files, err := os.ReadDir(filepath.Join(cfg.Data.KnowledgeDir, cropDir.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", cropDir.Name(), err)
			continue
		}

		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".txt") {
				continue
			}
			sourceFile := filepath.Join(cropDir.Name(), file.Name())

			if done[sourceFile] && !*reindex {
				skipped++
				continue
			}

			path := filepath.Join(cfg.Data.KnowledgeDir, sourceFile)
			if err := indexFile(ctx, repo, provider, path, sourceFile, cropTag); err != nil {
				log.Printf("Failed to index %s: %v", sourceFile, err)
				continue
			}
			appendProgress(progressPath, sourceFile)
			done[sourceFile] = true
			indexed++
			log.Printf("Indexed %s (crop tag %s)", sourceFile, cropTag)
		}
	}

	log.Printf("Done. Indexed %d files, skipped %d already-indexed files.", indexed, skipped)
}

func indexFile(
	ctx context.Context,
	repo contract.KnowledgeChunkRepository,
	provider embedding.EmbeddingProvider,
	path, sourceFile, cropTag string,
) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	passages := splitPassages(string(raw))
	if len(passages) == 0 {
		return fmt.Errorf("no passages found")
	}

	// Drop any partial load from an interrupted or repeated run.
	if err := repo.DeleteBySourceFile(ctx, sourceFile); err != nil {
		return err
	}

	var batch []*contract.ChunkInsert
	for i, passage := range passages {
		resp, err := provider.Generate(ctx, passage, embedding.TaskTypeRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embedding passage %d: %w", i, err)
		}
		batch = append(batch, &contract.ChunkInsert{
			Document:   passage,
			CropTag:    cropTag,
			SourceFile: sourceFile,
			ChunkIndex: i,
			Embedding:  resp.Embedding.Values,
		})
		if len(batch) >= batchSize {
			if err := repo.CreateBulk(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		return repo.CreateBulk(ctx, batch)
	}
	return nil
}

// splitPassages treats blank lines as passage boundaries.
func splitPassages(text string) []string {
	var passages []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			passages = append(passages, block)
		}
	}
	return passages
}

func loadProgress(path string) map[string]bool {
	done := map[string]bool{}
	f, err := os.Open(path)
	if err != nil {
		return done
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			done[line] = true
		}
	}
	return done
}

func appendProgress(path, sourceFile string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Unable to record progress: %v", err)
		return
	}
	defer f.Close()
	fmt.Fprintln(f, sourceFile)
}
