// Package domain defines the core types of the paper ingest service:
// candidates discovered in the bibliographic index, ingestion records and
// reports, and the error taxonomy shared by all clients.
package domain

import (
	"github.com/helixir/paper-ingest-service/internal/textutil"
)

// MaxAuthors is the maximum number of author display names kept per candidate.
const MaxAuthors = 6

// summaryAbstractLen bounds the abstract excerpt in search summaries.
const summaryAbstractLen = 500

// Candidate is one scholarly work enriched with open-access metadata and a
// lexical relevance score. Bibliographic fields are immutable once fetched;
// only Rescore mutates the relevance fields.
type Candidate struct {
	// ID is the canonical OpenAlex URL form, e.g. "https://openalex.org/W123".
	ID string `json:"id"`
	// ShortID is the derived short form, e.g. "W123", used for cache keys
	// and scratch filenames.
	ShortID string `json:"short_id"`

	Title           string   `json:"title"`
	PublicationYear int      `json:"publication_year"`
	PublicationDate string   `json:"publication_date,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Authors         []string `json:"authors"`
	CitationCount   int      `json:"cited_by_count"`

	IsOpenAccess bool   `json:"is_oa"`
	OAStatus     string `json:"oa_status"`
	PDFURL       string `json:"pdf_url,omitempty"`
	LandingURL   string `json:"landing_url,omitempty"`

	// Abstract is reconstructed from the source's inverted index and may
	// be empty.
	Abstract string `json:"abstract,omitempty"`

	Score   float64  `json:"relevance_score"`
	Reasons []string `json:"relevance_reasons"`
}

// Rescore recomputes the relevance fields against a new query. All other
// fields are left untouched.
func (c *Candidate) Rescore(query string) {
	c.Score, c.Reasons = textutil.RelevanceScore(query, c.Title, c.Abstract)
}

// CandidateSummary is the compact candidate shape returned by search,
// with the abstract truncated for transport.
type CandidateSummary struct {
	ID              string   `json:"id"`
	ShortID         string   `json:"short_id"`
	Title           string   `json:"title"`
	PublicationYear int      `json:"publication_year"`
	DOI             string   `json:"doi,omitempty"`
	Authors         []string `json:"authors"`
	CitationCount   int      `json:"cited_by_count"`
	IsOpenAccess    bool     `json:"is_oa"`
	OAStatus        string   `json:"oa_status"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	LandingURL      string   `json:"landing_url,omitempty"`
	Abstract        string   `json:"abstract,omitempty"`
	Score           float64  `json:"relevance_score"`
	Reasons         []string `json:"relevance_reasons"`
}

// Summary returns the transport shape of the candidate.
func (c *Candidate) Summary() CandidateSummary {
	return CandidateSummary{
		ID:              c.ID,
		ShortID:         c.ShortID,
		Title:           c.Title,
		PublicationYear: c.PublicationYear,
		DOI:             c.DOI,
		Authors:         c.Authors,
		CitationCount:   c.CitationCount,
		IsOpenAccess:    c.IsOpenAccess,
		OAStatus:        c.OAStatus,
		PDFURL:          c.PDFURL,
		LandingURL:      c.LandingURL,
		Abstract:        textutil.TruncateText(c.Abstract, summaryAbstractLen),
		Score:           c.Score,
		Reasons:         c.Reasons,
	}
}
