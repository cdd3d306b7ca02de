package rag

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/contract"
	"kisaanbot-be/pkg/embedding"
	"kisaanbot-be/pkg/orchestrator"
)

const (
	// Retrieval is trusted only below this cosine distance.
	maxEvidenceDistance = 0.35

	censusCacheKey = "crop_tag_census"
	censusCacheTTL = 5 * time.Minute
)

// Query is one atomic sub-question bound to a crop.
type Query struct {
	Crop string
	Text string
}

// Retriever answers decomposed sub-questions from the vector index, one
// grouped lookup per crop tag. Evidence below the distance threshold is
// FOUND, weak or absent evidence is MISSING, and an unreachable index yields
// ERROR records so the caller can fall back to model knowledge.
type Retriever struct {
	repo  contract.KnowledgeChunkRepository
	embed embedding.EmbeddingProvider
	orch  *orchestrator.Orchestrator
	cache *gocache.Cache
	log   logger.ILogger
	topK  int
}

func NewRetriever(
	repo contract.KnowledgeChunkRepository,
	embed embedding.EmbeddingProvider,
	orch *orchestrator.Orchestrator,
	log logger.ILogger,
	topK int,
) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		repo:  repo,
		embed: embed,
		orch:  orch,
		cache: gocache.New(censusCacheTTL, 10*time.Minute),
		log:   log,
		topK:  topK,
	}
}

// NormalizeCropTag turns a crop name into index tag form.
func NormalizeCropTag(crop string) string {
	tag := strings.ToLower(strings.TrimSpace(crop))
	tag = strings.Join(strings.Fields(tag), "_")
	return tag
}

// Retrieve answers every query, grouping by crop so each tag is resolved and
// searched once per batch. Record order follows query order.
func (r *Retriever) Retrieve(ctx context.Context, queries []Query) []entity.EvidenceRecord {
	records := make([]entity.EvidenceRecord, len(queries))

	census, err := r.cropTagCensus(ctx)
	if err != nil {
		r.log.Error("rag", "index unreachable", map[string]interface{}{"error": err.Error()})
		for i, q := range queries {
			records[i] = entity.EvidenceRecord{Query: q.Text, Crop: q.Crop, Status: entity.EvidenceError}
		}
		return records
	}

	resolvedTags := make(map[string]string)
	for i, q := range queries {
		tag, ok := resolvedTags[q.Crop]
		if !ok {
			tag = r.resolveTag(census, q.Crop)
			resolvedTags[q.Crop] = tag
		}
		records[i] = r.retrieveOne(ctx, q, tag)
	}
	return records
}

func (r *Retriever) retrieveOne(ctx context.Context, q Query, tag string) entity.EvidenceRecord {
	rec := entity.EvidenceRecord{Query: q.Text, Crop: q.Crop, MatchedCropTag: tag}

	var vector []float32
	err := r.orch.Call(ctx, orchestrator.KindEmbedding, func(ctx context.Context) error {
		res, err := r.embed.Generate(ctx, q.Text, embedding.TaskTypeRetrievalQuery)
		if err != nil {
			return err
		}
		vector = res.Embedding.Values
		return nil
	})
	if err != nil {
		r.log.Warn("rag", "query embedding failed", map[string]interface{}{"query": q.Text, "error": err.Error()})
		rec.Status = entity.EvidenceError
		return rec
	}

	chunks, err := r.repo.SearchByTag(ctx, vector, tag, r.topK)
	if err != nil {
		r.log.Warn("rag", "index search failed", map[string]interface{}{"tag": tag, "error": err.Error()})
		rec.Status = entity.EvidenceError
		return rec
	}

	if len(chunks) == 0 || chunks[0].Distance >= maxEvidenceDistance {
		rec.Status = entity.EvidenceMissing
		if len(chunks) > 0 {
			rec.Score = chunks[0].Distance
		}
		return rec
	}

	rec.Status = entity.EvidenceFound
	rec.Score = chunks[0].Distance
	rec.Evidence = dedupeDocuments(chunks)
	return rec
}

// resolveTag maps a crop name onto the census: exact tag first, then a tag
// namespaced under it ("paddy" matches "paddy_rice" but never "paddyfield"),
// otherwise the normalized name as-is.
func (r *Retriever) resolveTag(census []string, crop string) string {
	tag := NormalizeCropTag(crop)
	for _, t := range census {
		if t == tag {
			return t
		}
	}
	for _, t := range census {
		if strings.HasPrefix(t, tag+"_") {
			return t
		}
	}
	return tag
}

func (r *Retriever) cropTagCensus(ctx context.Context) ([]string, error) {
	if cached, ok := r.cache.Get(censusCacheKey); ok {
		return cached.([]string), nil
	}
	tags, err := r.repo.DistinctCropTags(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(censusCacheKey, tags, censusCacheTTL)
	return tags, nil
}

func dedupeDocuments(chunks []*contract.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		doc := strings.TrimSpace(c.Document)
		if doc == "" || seen[doc] {
			continue
		}
		seen[doc] = true
		out = append(out, doc)
	}
	return out
}
