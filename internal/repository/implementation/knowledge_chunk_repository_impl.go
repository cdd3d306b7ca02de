package implementation

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"kisaanbot-be/internal/model"
	"kisaanbot-be/internal/repository/contract"
)

type KnowledgeChunkRepositoryImpl struct {
	db *gorm.DB
}

func NewKnowledgeChunkRepository(db *gorm.DB) contract.KnowledgeChunkRepository {
	return &KnowledgeChunkRepositoryImpl{db: db}
}

func (r *KnowledgeChunkRepositoryImpl) Create(ctx context.Context, document, cropTag, sourceFile string, chunkIndex int, embedding []float32) error {
	m := &model.KnowledgeChunk{
		Document:       document,
		CropTag:        cropTag,
		SourceFile:     sourceFile,
		ChunkIndex:     chunkIndex,
		EmbeddingValue: pgvector.NewVector(embedding),
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *KnowledgeChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*contract.ChunkInsert) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]*model.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		models[i] = &model.KnowledgeChunk{
			Document:       c.Document,
			CropTag:        c.CropTag,
			SourceFile:     c.SourceFile,
			ChunkIndex:     c.ChunkIndex,
			EmbeddingValue: pgvector.NewVector(c.Embedding),
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *KnowledgeChunkRepositoryImpl) DeleteBySourceFile(ctx context.Context, sourceFile string) error {
	return r.db.WithContext(ctx).Where("source_file = ?", sourceFile).Delete(&model.KnowledgeChunk{}).Error
}

func (r *KnowledgeChunkRepositoryImpl) SearchByTag(ctx context.Context, embedding []float32, cropTag string, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 3
	}

	// Cosine distance in pgvector: embedding_value <=> query_vector
	type result struct {
		model.KnowledgeChunk
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("knowledge_chunks").
		Select("knowledge_chunks.*, (embedding_value <=> ?) as distance", queryVector).
		Where("crop_tag = ?", cropTag).
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	chunks := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		chunks[i] = &contract.ScoredChunk{
			Id:       res.Id,
			Document: res.Document,
			CropTag:  res.CropTag,
			Distance: res.Distance,
		}
	}
	return chunks, nil
}

func (r *KnowledgeChunkRepositoryImpl) DistinctCropTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&model.KnowledgeChunk{}).
		Distinct("crop_tag").
		Order("crop_tag ASC").
		Pluck("crop_tag", &tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *KnowledgeChunkRepositoryImpl) CountBySourceFile(ctx context.Context, sourceFile string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.KnowledgeChunk{}).
		Where("source_file = ?", sourceFile).
		Count(&count).Error
	return count, err
}
