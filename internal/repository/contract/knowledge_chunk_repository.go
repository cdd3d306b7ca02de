package contract

import (
	"context"

	"github.com/google/uuid"
)

// ScoredChunk wraps a retrieved document with its cosine distance to the
// query vector (0 = identical, 2 = opposite).
type ScoredChunk struct {
	Id       uuid.UUID
	Document string
	CropTag  string
	Distance float64
}

type KnowledgeChunkRepository interface {
	Create(ctx context.Context, document, cropTag, sourceFile string, chunkIndex int, embedding []float32) error
	CreateBulk(ctx context.Context, chunks []*ChunkInsert) error
	DeleteBySourceFile(ctx context.Context, sourceFile string) error
	// SearchByTag returns the closest chunks for one crop tag, nearest first.
	SearchByTag(ctx context.Context, embedding []float32, cropTag string, limit int) ([]*ScoredChunk, error)
	// DistinctCropTags lists every crop tag present in the index.
	DistinctCropTags(ctx context.Context) ([]string, error)
	CountBySourceFile(ctx context.Context, sourceFile string) (int64, error)
}

type ChunkInsert struct {
	Document   string
	CropTag    string
	SourceFile string
	ChunkIndex int
	Embedding  []float32
}
