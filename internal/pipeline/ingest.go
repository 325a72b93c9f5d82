package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-ingest-service/internal/domain"
	"github.com/helixir/paper-ingest-service/internal/knowledgestore"
	"github.com/helixir/paper-ingest-service/internal/observability"
	"github.com/helixir/paper-ingest-service/internal/textutil"
)

// IngestParams holds the ingestion inputs. CandidateIDs are deduplicated
// preserving first occurrence, then capped at MaxPapers; the dropped
// remainder is reported in the result's SkippedIDs.
type IngestParams struct {
	CandidateIDs []string
	// Query rescopes cache misses fetched during resolution. May be empty.
	Query string

	KnowledgeBaseName        string
	KnowledgeBaseDescription string
	MakePublic               bool

	MaxPapers          int
	FileProcessTimeout time.Duration
}

// acquisition is the tagged outcome of the retrieval tiers: either a
// downloaded PDF or a synthesized abstract-only note, always backed by a
// scratch file.
type acquisition struct {
	Mode domain.RetrievalMode
	Path string
	Note string
	// ContentHash is the SHA-256 of the PDF bytes; empty for notes.
	ContentHash string
}

// Ingest runs the full ingestion pass: resolve each selected candidate,
// acquire its content with the PDF-or-note fallback, upload and poll to a
// terminal status, then resolve the knowledge base once and attach every
// file that completed processing. One candidate's retrieval or upload
// failure never fails the pass; only knowledge-base resolution or
// attachment errors do.
func (p *Pipeline) Ingest(ctx context.Context, store KnowledgeStore, params IngestParams) (*domain.IngestReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := observability.WithRunContext(p.logger, runID, params.KnowledgeBaseName)

	scratchDir, err := os.MkdirTemp("", "paper-ingest-*")
	if err != nil {
		p.metrics.RecordIngestRun("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	selected, skipped := selectCandidates(params.CandidateIDs, params.MaxPapers)
	log.Info().
		Int("requested", len(params.CandidateIDs)).
		Int("selected", len(selected)).
		Int("skipped", len(skipped)).
		Msg("ingestion started")

	records := make([]domain.IngestionRecord, 0, len(selected))
	var completedFileIDs []string

	for _, id := range selected {
		rec := p.processCandidate(ctx, store, scratchDir, id, params.Query, params.FileProcessTimeout, log)
		p.metrics.RecordIngestCandidate(modeLabel(rec.RetrievalMode), string(rec.Status))
		if rec.Status == domain.StatusCompleted && rec.FileID != nil {
			completedFileIDs = append(completedFileIDs, *rec.FileID)
		}
		records = append(records, rec)
	}

	kb, created, err := store.GetOrCreateKnowledgeBase(ctx, knowledgestore.GetOrCreateParams{
		Name:        params.KnowledgeBaseName,
		Description: params.KnowledgeBaseDescription,
		MakePublic:  params.MakePublic,
	})
	if err != nil {
		p.metrics.RecordIngestRun("error", time.Since(start).Seconds())
		log.Error().Err(err).Msg("knowledge base resolution failed")
		return nil, err
	}

	if len(completedFileIDs) > 0 {
		if err := store.AddFilesToKnowledgeBase(ctx, kb.ID, completedFileIDs); err != nil {
			p.metrics.RecordIngestRun("error", time.Since(start).Seconds())
			log.Error().Err(err).Str("kb_id", kb.ID).Msg("batch attach failed")
			return nil, err
		}
	}

	actualPublic := kb.IsPublic()
	var warning *string
	if params.MakePublic && !actualPublic {
		w := fmt.Sprintf("requested a public knowledge base but %q carries an access restriction", kb.Name)
		warning = &w
	}

	succeeded := len(completedFileIDs)
	report := &domain.IngestReport{
		KnowledgeBase: domain.KnowledgeBaseResult{
			ID:              kb.ID,
			Name:            kb.Name,
			Created:         created,
			RequestedPublic: params.MakePublic,
			ActualPublic:    actualPublic,
		},
		Warning:    warning,
		Succeeded:  succeeded,
		Failed:     len(records) - succeeded,
		SkippedIDs: skipped,
		Results:    records,
	}

	p.metrics.RecordIngestRun("ok", time.Since(start).Seconds())
	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Bool("kb_created", created).
		Msg("ingestion completed")

	return report, nil
}

// processCandidate drives one candidate through resolution, acquisition,
// upload, and the processing poll. Every failure is folded into the
// returned record; the scratch file is removed regardless of outcome.
func (p *Pipeline) processCandidate(ctx context.Context, store KnowledgeStore, scratchDir, id, query string, timeout time.Duration, log zerolog.Logger) domain.IngestionRecord {
	rec := domain.IngestionRecord{CandidateID: id, Status: domain.StatusPending}

	c, err := p.resolve(ctx, id, query)
	if err != nil {
		return failRecord(rec, fmt.Errorf("resolving candidate: %w", err))
	}
	rec.CandidateID = c.ID
	rec.ShortID = c.ShortID
	rec.Title = c.Title
	plog := observability.WithPaperContext(log, c.ID, c.Title)

	acq, err := p.acquire(ctx, scratchDir, c, plog)
	if err != nil {
		return failRecord(rec, err)
	}
	rec.RetrievalMode = acq.Mode
	rec.RetrievalNote = acq.Note
	// Cleanup failures must not mask the candidate's outcome.
	defer func() { _ = os.Remove(acq.Path) }()

	metadata := map[string]any{
		"openalex_id":    c.ID,
		"title":          c.Title,
		"retrieval_mode": string(acq.Mode),
	}
	if c.DOI != "" {
		metadata["doi"] = c.DOI
	}
	if c.PublicationYear != 0 {
		metadata["publication_year"] = c.PublicationYear
	}
	if acq.ContentHash != "" {
		metadata["content_sha256"] = acq.ContentHash
	}

	fileID, err := store.UploadFile(ctx, acq.Path, metadata)
	if err != nil {
		plog.Error().Err(err).Msg("upload failed")
		return failRecord(rec, fmt.Errorf("uploading file: %w", err))
	}
	rec.FileID = &fileID

	waitStart := time.Now()
	result, err := store.WaitForFileProcessed(ctx, fileID, timeout)
	if err != nil {
		plog.Error().Err(err).Str("file_id", fileID).Msg("processing poll failed")
		return failRecord(rec, fmt.Errorf("waiting for processing: %w", err))
	}
	p.metrics.RecordProcessingWait(time.Since(waitStart).Seconds())

	rec.Status = result.Status
	switch result.Status {
	case domain.StatusTimeout:
		msg := fmt.Sprintf("processing did not reach a terminal status within %s", timeout)
		rec.Error = &msg
	case domain.StatusFailed:
		msg := "knowledge store reported processing failure"
		rec.Error = &msg
	}

	plog.Info().
		Str("file_id", fileID).
		Str("mode", string(acq.Mode)).
		Str("status", string(rec.Status)).
		Msg("candidate processed")

	return rec
}

// acquire executes the retrieval tiers. A PDF is attempted only for
// open-access candidates with a PDF URL; every download failure falls back
// to an abstract-only note embedding the error, so acquire itself fails
// only when the scratch file cannot be written.
func (p *Pipeline) acquire(ctx context.Context, scratchDir string, c *domain.Candidate, log zerolog.Logger) (acquisition, error) {
	base := textutil.SanitizeFilename(c.Title+"_"+c.ShortID, textutil.DefaultMaxFilenameLen)

	if c.IsOpenAccess && c.PDFURL != "" {
		result, err := p.downloader.Download(ctx, c.PDFURL)
		if err == nil {
			p.metrics.RecordPDFDownload(result.SizeBytes)
			path := filepath.Join(scratchDir, base+".pdf")
			if werr := os.WriteFile(path, result.Content, 0o600); werr != nil {
				return acquisition{}, fmt.Errorf("writing scratch PDF: %w", werr)
			}
			return acquisition{
				Mode:        domain.RetrievalModePDF,
				Path:        path,
				Note:        "Downloaded open-access PDF.",
				ContentHash: result.ContentHash,
			}, nil
		}

		p.metrics.RecordPDFDownloadFailed()
		log.Warn().Err(err).Str("pdf_url", c.PDFURL).Msg("pdf download failed, falling back to note")
		return p.writeNote(scratchDir, base, c, fmt.Sprintf("PDF download failed (%v); stored abstract-only note.", err))
	}

	return p.writeNote(scratchDir, base, c, noteUnavailable)
}

// writeNote persists the abstract-only note to the scratch directory.
func (p *Pipeline) writeNote(scratchDir, base string, c *domain.Candidate, note string) (acquisition, error) {
	path := filepath.Join(scratchDir, base+".md")
	if err := os.WriteFile(path, []byte(buildNote(c, note)), 0o600); err != nil {
		return acquisition{}, fmt.Errorf("writing scratch note: %w", err)
	}
	return acquisition{
		Mode: domain.RetrievalModeAbstractOnly,
		Path: path,
		Note: note,
	}, nil
}

// selectCandidates deduplicates the identifiers by canonical form,
// preserving first occurrence, and caps the list at maxPapers. The capped
// remainder is returned separately and never processed.
func selectCandidates(ids []string, maxPapers int) (selected, skipped []string) {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		key := id
		if canonical, _, err := domain.NormalizeWorkID(id); err == nil {
			key = canonical
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, key)
	}

	if maxPapers > 0 && len(deduped) > maxPapers {
		return deduped[:maxPapers], deduped[maxPapers:]
	}
	return deduped, []string{}
}

// failRecord finalizes a record for a candidate whose processing could not
// reach the knowledge store's terminal status.
func failRecord(rec domain.IngestionRecord, err error) domain.IngestionRecord {
	msg := err.Error()
	rec.Status = domain.StatusFailed
	rec.Error = &msg
	return rec
}

// modeLabel maps the retrieval mode to a metrics label, covering records
// that failed before any retrieval happened.
func modeLabel(mode domain.RetrievalMode) string {
	if mode == "" {
		return "none"
	}
	return string(mode)
}
