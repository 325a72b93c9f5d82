package domain

// RetrievalMode identifies how a candidate's content was acquired.
type RetrievalMode string

// Retrieval modes.
const (
	// RetrievalModePDF means the open-access PDF was downloaded and stored.
	RetrievalModePDF RetrievalMode = "pdf"
	// RetrievalModeAbstractOnly means a synthesized markdown note holding
	// the abstract was stored instead of full text.
	RetrievalModeAbstractOnly RetrievalMode = "abstract-only"
)

// ProcessingStatus is the server-side processing state of an uploaded file.
type ProcessingStatus string

// Processing statuses. Completed, failed, and timeout are terminal.
const (
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusTimeout   ProcessingStatus = "timeout"
)

// IngestionRecord is the per-candidate outcome of one ingestion pass. It
// is finalized within the pass and never mutated afterwards.
type IngestionRecord struct {
	CandidateID string `json:"candidate_id"`
	ShortID     string `json:"short_id,omitempty"`
	Title       string `json:"title,omitempty"`

	RetrievalMode RetrievalMode `json:"retrieval_mode,omitempty"`
	RetrievalNote string        `json:"retrieval_note,omitempty"`

	// FileID is the knowledge-store file identifier, null when the upload
	// never started or failed before an ID was assigned.
	FileID *string          `json:"file_id"`
	Status ProcessingStatus `json:"status"`
	Error  *string          `json:"error"`
}

// KnowledgeBaseResult describes the knowledge base an ingestion pass
// resolved, including the requested-vs-observed visibility.
type KnowledgeBaseResult struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Created         bool   `json:"created"`
	RequestedPublic bool   `json:"requested_public"`
	ActualPublic    bool   `json:"actual_public"`
}

// IngestReport is the aggregated, stable response contract of the ingest
// operation.
type IngestReport struct {
	KnowledgeBase KnowledgeBaseResult `json:"knowledge_base"`
	// Warning is non-null when the caller requested a public knowledge
	// base but the resolved base carries a restriction.
	Warning   *string `json:"warning"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	// SkippedIDs lists deduplicated candidate IDs dropped by the
	// max-papers cap; they do not appear in Results.
	SkippedIDs []string          `json:"skipped_ids"`
	Results    []IngestionRecord `json:"results"`
}
