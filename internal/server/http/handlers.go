package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-ingest-service/internal/domain"
	"github.com/helixir/paper-ingest-service/internal/pipeline"
	"github.com/helixir/paper-ingest-service/internal/sourceindex"
)

// Request validation constants.
const (
	defaultSearchLimit = 20
	defaultThreshold   = 0.35
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// searchRequest is the JSON request body for the search endpoint.
type searchRequest struct {
	Query    string `json:"query" validate:"required,min=2"`
	Limit    *int   `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
	FromYear *int   `json:"from_year,omitempty" validate:"omitempty,min=1900,max=2100"`
	OAOnly   bool   `json:"oa_only,omitempty"`
}

// screenRequest is the JSON request body for the screen endpoint.
type screenRequest struct {
	Query        string   `json:"query" validate:"required"`
	CandidateIDs []string `json:"candidate_ids" validate:"required,min=1,max=100,dive,required"`
	Threshold    *float64 `json:"threshold,omitempty" validate:"omitempty,min=0,max=1"`
}

// ingestRequest is the JSON request body for the ingest endpoint.
type ingestRequest struct {
	CandidateIDs             []string `json:"candidate_ids" validate:"required,min=1,max=30,dive,required"`
	Query                    string   `json:"query,omitempty"`
	KnowledgeBaseName        string   `json:"knowledge_base_name,omitempty"`
	KnowledgeBaseDescription string   `json:"knowledge_base_description,omitempty"`
	MakePublic               *bool    `json:"make_public,omitempty"`
	MaxPapers                *int     `json:"max_papers,omitempty" validate:"omitempty,min=1,max=30"`
	FileProcessTimeoutSec    *int     `json:"file_process_timeout_sec,omitempty" validate:"omitempty,min=30,max=3600"`

	// KnowledgeStoreURL and KnowledgeStoreAPIKey override the configured
	// target service for this request only.
	KnowledgeStoreURL    string `json:"knowledge_store_url,omitempty" validate:"omitempty,url"`
	KnowledgeStoreAPIKey string `json:"knowledge_store_api_key,omitempty"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	params := sourceindex.SearchParams{
		Query:  strings.TrimSpace(req.Query),
		Limit:  defaultSearchLimit,
		OAOnly: req.OAOnly,
	}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}
	if req.FromYear != nil {
		params.FromYear = *req.FromYear
	}

	report, err := s.service.Search(r.Context(), params)
	if err != nil {
		s.logger.Error().Err(err).
			Str("correlation_id", correlationIDFromContext(r.Context())).
			Str("query", params.Query).
			Msg("search failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleScreen handles POST /api/v1/screen.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	params := pipeline.ScreenParams{
		Query:        strings.TrimSpace(req.Query),
		CandidateIDs: req.CandidateIDs,
		Threshold:    defaultThreshold,
	}
	if req.Threshold != nil {
		params.Threshold = *req.Threshold
	}

	report, err := s.service.Screen(r.Context(), params)
	if err != nil {
		s.logger.Error().Err(err).
			Str("correlation_id", correlationIDFromContext(r.Context())).
			Msg("screening failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleIngest handles POST /api/v1/ingest. The request may override the
// knowledge-store address and API key; otherwise the configured default
// store is used.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	store := s.defaultStore
	if req.KnowledgeStoreURL != "" {
		cfg := s.storeConfig
		cfg.BaseURL = req.KnowledgeStoreURL
		if req.KnowledgeStoreAPIKey != "" {
			cfg.APIKey = req.KnowledgeStoreAPIKey
		}
		override, err := s.newStore(cfg)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid knowledge store override: %v", err))
			return
		}
		store = override
	}

	params := pipeline.IngestParams{
		CandidateIDs:             req.CandidateIDs,
		Query:                    strings.TrimSpace(req.Query),
		KnowledgeBaseName:        s.defaults.KnowledgeBaseName,
		KnowledgeBaseDescription: s.defaults.KnowledgeBaseDescription,
		MakePublic:               true,
		MaxPapers:                s.defaults.MaxPapers,
		FileProcessTimeout:       s.defaults.FileProcessTimeout,
	}
	if name := strings.TrimSpace(req.KnowledgeBaseName); name != "" {
		params.KnowledgeBaseName = name
	}
	if req.KnowledgeBaseDescription != "" {
		params.KnowledgeBaseDescription = req.KnowledgeBaseDescription
	}
	if req.MakePublic != nil {
		params.MakePublic = *req.MakePublic
	}
	if req.MaxPapers != nil {
		params.MaxPapers = *req.MaxPapers
	}
	if req.FileProcessTimeoutSec != nil {
		params.FileProcessTimeout = time.Duration(*req.FileProcessTimeoutSec) * time.Second
	}

	report, err := s.service.Ingest(r.Context(), store, params)
	if err != nil {
		s.logger.Error().Err(err).
			Str("correlation_id", correlationIDFromContext(r.Context())).
			Msg("ingestion failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// decodeAndValidate reads a bounded JSON request body into dst and runs
// struct validation. On failure it writes a 400 response and returns false.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first field violation as a client-facing
// message, e.g. "query failed validation on 'min'".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed validation on '%s=%s'", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed validation on '%s'", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

// writeDomainError maps domain errors to HTTP status codes and writes a
// JSON error response. Upstream response bodies are not echoed to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var apiErr *domain.ExternalAPIError
	switch {
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway,
			fmt.Sprintf("upstream %s request failed with status %d", apiErr.Source, apiErr.StatusCode))
	case errors.Is(err, domain.ErrInvalidIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "operation timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
