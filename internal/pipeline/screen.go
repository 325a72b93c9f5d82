package pipeline

import (
	"context"
	"fmt"

	"github.com/helixir/paper-ingest-service/internal/domain"
)

// ScreenParams holds the screening inputs.
type ScreenParams struct {
	// Query is the text candidates are rescored against.
	Query string
	// CandidateIDs are the identifiers to screen, in any accepted form.
	CandidateIDs []string
	// Threshold is the inclusive relevance cutoff: score >= Threshold
	// lands in the relevant partition.
	Threshold float64
}

// ScreenReport partitions the screened candidates by the threshold.
// Identifiers that could not be resolved appear in Errors and in neither
// partition.
type ScreenReport struct {
	Relevant        []domain.CandidateSummary `json:"relevant"`
	Irrelevant      []domain.CandidateSummary `json:"irrelevant"`
	RelevantCount   int                       `json:"relevant_count"`
	IrrelevantCount int                       `json:"irrelevant_count"`
	Errors          []string                  `json:"errors,omitempty"`
}

// Screen re-resolves each identifier, recomputes its relevance against the
// query, and partitions by the inclusive threshold. Rescored candidates
// stay in the cache, so a following ingest call sees the updated scores.
func (p *Pipeline) Screen(ctx context.Context, params ScreenParams) (*ScreenReport, error) {
	report := &ScreenReport{
		Relevant:   []domain.CandidateSummary{},
		Irrelevant: []domain.CandidateSummary{},
	}

	for _, id := range params.CandidateIDs {
		c, err := p.resolve(ctx, id, params.Query)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		c.Rescore(params.Query)
		p.cache.Put(c)

		if c.Score >= params.Threshold {
			report.Relevant = append(report.Relevant, c.Summary())
		} else {
			report.Irrelevant = append(report.Irrelevant, c.Summary())
		}
	}

	report.RelevantCount = len(report.Relevant)
	report.IrrelevantCount = len(report.Irrelevant)

	p.logger.Info().
		Str("query", params.Query).
		Float64("threshold", params.Threshold).
		Int("relevant", report.RelevantCount).
		Int("irrelevant", report.IrrelevantCount).
		Int("errors", len(report.Errors)).
		Msg("screening completed")

	return report, nil
}
