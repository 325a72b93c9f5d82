// Package pipeline orchestrates the literature-acquisition flow: keyword
// search against the bibliographic index, lexical relevance screening, and
// ingestion of selected candidates into the knowledge store.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-ingest-service/internal/cache"
	"github.com/helixir/paper-ingest-service/internal/domain"
	"github.com/helixir/paper-ingest-service/internal/knowledgestore"
	"github.com/helixir/paper-ingest-service/internal/observability"
	"github.com/helixir/paper-ingest-service/internal/pdf"
	"github.com/helixir/paper-ingest-service/internal/sourceindex"
)

// SourceIndex is the bibliographic index consumed by the pipeline.
type SourceIndex interface {
	Search(ctx context.Context, params sourceindex.SearchParams) (*sourceindex.SearchResult, error)
	GetWork(ctx context.Context, id, query string) (*domain.Candidate, error)
}

// KnowledgeStore is the ingestion sink consumed by the pipeline. A store is
// passed per ingestion call so callers can override the target service.
type KnowledgeStore interface {
	GetOrCreateKnowledgeBase(ctx context.Context, params knowledgestore.GetOrCreateParams) (*knowledgestore.KnowledgeBase, bool, error)
	UploadFile(ctx context.Context, path string, metadata map[string]any) (string, error)
	WaitForFileProcessed(ctx context.Context, fileID string, timeout time.Duration) (knowledgestore.ProcessResult, error)
	AddFilesToKnowledgeBase(ctx context.Context, kbID string, fileIDs []string) error
}

// Downloader fetches open-access PDFs.
type Downloader interface {
	Download(ctx context.Context, url string) (*pdf.DownloadResult, error)
}

// Pipeline holds the collaborators shared by all operations. Candidates
// resolved by any operation land in the cache, so later screen and ingest
// calls avoid re-fetching.
type Pipeline struct {
	cache      *cache.Cache
	source     SourceIndex
	downloader Downloader
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline.
func New(c *cache.Cache, source SourceIndex, downloader Downloader, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cache:      c,
		source:     source,
		downloader: downloader,
		logger:     observability.WithComponent(logger, "pipeline"),
		metrics:    metrics,
	}
}

// SearchReport is the search operation response.
type SearchReport struct {
	// Total is the server-reported hit count.
	Total int `json:"total"`
	// Count is the number of candidates returned.
	Count int `json:"count"`
	// Candidates is ranked by relevance score, descending.
	Candidates []domain.CandidateSummary `json:"candidates"`
}

// Search queries the bibliographic index, caches every candidate, and
// returns summaries ranked by relevance score.
func (p *Pipeline) Search(ctx context.Context, params sourceindex.SearchParams) (*SearchReport, error) {
	start := time.Now()
	log := observability.WithSearchContext(p.logger, params.Query, params.Limit)

	result, err := p.source.Search(ctx, params)
	if err != nil {
		p.metrics.RecordSearch("error", 0, time.Since(start).Seconds())
		log.Error().Err(err).Msg("search failed")
		return nil, err
	}

	for _, c := range result.Candidates {
		p.cache.Put(c)
	}

	ranked := make([]*domain.Candidate, len(result.Candidates))
	copy(ranked, result.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	summaries := make([]domain.CandidateSummary, 0, len(ranked))
	for _, c := range ranked {
		summaries = append(summaries, c.Summary())
	}

	p.metrics.RecordSearch("ok", len(summaries), time.Since(start).Seconds())
	log.Info().Int("total", result.Total).Int("returned", len(summaries)).Msg("search completed")

	return &SearchReport{
		Total:      result.Total,
		Count:      len(summaries),
		Candidates: summaries,
	}, nil
}

// resolve returns the candidate for an identifier, from the cache when
// possible and from the source index otherwise. Fetched candidates are
// cached under both identifier forms.
func (p *Pipeline) resolve(ctx context.Context, id, query string) (*domain.Candidate, error) {
	canonical, _, err := domain.NormalizeWorkID(id)
	if err != nil {
		return nil, err
	}

	if c, ok := p.cache.Get(canonical); ok {
		p.metrics.RecordCacheHit()
		return c, nil
	}
	p.metrics.RecordCacheMiss()

	c, err := p.source.GetWork(ctx, canonical, query)
	if err != nil {
		return nil, err
	}
	p.cache.Put(c)
	return c, nil
}
