package sourceindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-ingest-service/internal/domain"
	"github.com/helixir/paper-ingest-service/internal/observability"
	"github.com/helixir/paper-ingest-service/internal/textutil"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit in requests per second.
	// The OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search request.
	DefaultMaxResults = 25

	// sourceName labels errors raised by this client.
	sourceName = "OpenAlex"
)

// selectFields is the fixed field-selection list requested on every works
// call; it keeps responses to the fields the candidate shape consumes.
const selectFields = "id,doi,title,display_name,publication_year,publication_date," +
	"cited_by_count,authorships,open_access,primary_location,abstract_inverted_index"

// Config holds configuration for the source index client.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://api.openalex.org.
	BaseURL string

	// Email is the contact email for the polite pool; omitted from
	// requests when empty.
	Email string

	// APIKey is an optional premium API key; omitted from requests when
	// empty.
	APIKey string

	// Timeout is the request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 10.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 10.
	BurstSize int

	// MaxResults caps results per search request. Defaults to 25.
	MaxResults int

	// Metrics instruments requests when set; nil disables instrumentation.
	Metrics *observability.Metrics
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// SearchParams holds the inputs of a works search.
type SearchParams struct {
	// Query is the keyword query candidates are scored against.
	Query string

	// Limit caps the number of returned works.
	Limit int

	// FromYear, when non-zero, restricts results to works published on or
	// after January 1st of that year.
	FromYear int

	// OAOnly restricts results to open-access works.
	OAOnly bool
}

// SearchResult holds the outcome of a works search.
type SearchResult struct {
	// Total is the server-reported hit count, falling back to the number
	// of returned works when the server omits it.
	Total int

	// Candidates are the normalized, relevance-scored works.
	Candidates []*domain.Candidate
}

// Client queries the bibliographic source index.
type Client struct {
	config     Config
	httpClient *HTTPClient
}

// New creates a new source index client.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-PaperIngest/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	return &Client{
		config: cfg,
		httpClient: NewHTTPClient(HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: userAgent,
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client, useful for
// testing against mock servers.
func NewWithHTTPClient(cfg Config, httpClient *HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search issues one works search and returns the normalized, scored
// candidates. Failed requests are not retried.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var searchResp SearchResponse
	if err := c.getJSON(ctx, "/works", searchURL, &searchResp); err != nil {
		return nil, err
	}

	candidates := make([]*domain.Candidate, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if cand := c.toCandidate(&searchResp.Results[i], params.Query); cand != nil {
			candidates = append(candidates, cand)
		}
	}

	total := searchResp.Meta.Count
	if total == 0 {
		total = len(candidates)
	}

	return &SearchResult{
		Total:      total,
		Candidates: candidates,
	}, nil
}

// GetWork fetches a single work by any accepted identifier form and
// normalizes and scores it like a search result.
func (c *Client) GetWork(ctx context.Context, id, query string) (*domain.Candidate, error) {
	_, short, err := domain.NormalizeWorkID(id)
	if err != nil {
		return nil, err
	}

	fetchURL, err := c.buildGetWorkURL(short)
	if err != nil {
		return nil, fmt.Errorf("building fetch URL: %w", err)
	}

	var work Work
	if err := c.getJSON(ctx, "/works/{id}", fetchURL, &work); err != nil {
		return nil, err
	}

	cand := c.toCandidate(&work, query)
	if cand == nil {
		return nil, domain.NewNotFoundError("work", id)
	}
	return cand, nil
}

// getJSON executes a GET request and decodes the JSON body into out. The
// response body is capped at 10MB to prevent resource exhaustion. Every
// attempt is counted under the endpoint label; failures carry an
// additional error-type label.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.recordRequest(endpoint, time.Since(start))
	if err != nil {
		c.recordFailure(endpoint, "transport")
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(endpoint, fmt.Sprintf("http_%d", resp.StatusCode))
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, rawURL, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		c.recordFailure(endpoint, "decode")
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) recordRequest(endpoint string, elapsed time.Duration) {
	if c.config.Metrics != nil {
		c.config.Metrics.RecordSourceRequest(endpoint, elapsed.Seconds())
	}
}

func (c *Client) recordFailure(endpoint, errorType string) {
	if c.config.Metrics != nil {
		c.config.Metrics.RecordSourceRequestFailed(endpoint, errorType)
	}
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = "/works"

	query := url.Values{}
	if params.Query != "" {
		query.Set("search", params.Query)
	}

	if filters := buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	limit := params.Limit
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}
	query.Set("per-page", strconv.Itoa(limit))
	query.Set("select", selectFields)

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the comma-joined filter clauses.
func buildFilters(params SearchParams) []string {
	var filters []string
	if params.FromYear > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", params.FromYear))
	}
	if params.OAOnly {
		filters = append(filters, "is_oa:true")
	}
	return filters
}

// buildGetWorkURL constructs the URL for fetching a work by short ID.
func (c *Client) buildGetWorkURL(shortID string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = "/works/" + shortID

	query := url.Values{}
	query.Set("select", selectFields)
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// toCandidate normalizes a raw work into a scored candidate. Works whose
// ID carries no recognizable work-ID pattern are dropped.
func (c *Client) toCandidate(work *Work, query string) *domain.Candidate {
	if work == nil {
		return nil
	}

	canonical, short, err := domain.NormalizeWorkID(work.ID)
	if err != nil {
		return nil
	}

	title := strings.TrimSpace(work.DisplayName)
	if title == "" {
		title = strings.TrimSpace(work.Title)
	}

	authors := make([]string, 0, domain.MaxAuthors)
	for _, authorship := range work.Authorships {
		name := strings.TrimSpace(authorship.Author.DisplayName)
		if name == "" {
			continue
		}
		authors = append(authors, name)
		if len(authors) == domain.MaxAuthors {
			break
		}
	}

	isOA := false
	oaStatus := "unknown"
	oaURL := ""
	if work.OpenAccess != nil {
		isOA = work.OpenAccess.IsOA
		oaURL = work.OpenAccess.OAURL
		if work.OpenAccess.OAStatus != "" {
			oaStatus = work.OpenAccess.OAStatus
		}
	}

	pdfURL := ""
	landingURL := ""
	if work.PrimaryLocation != nil {
		pdfURL = work.PrimaryLocation.PDFURL
		landingURL = work.PrimaryLocation.LandingPageURL
	}
	if pdfURL == "" {
		pdfURL = oaURL
	}
	if landingURL == "" {
		landingURL = work.DOI
	}

	abstract := textutil.RebuildAbstract(work.AbstractInvertedIndex)
	score, reasons := textutil.RelevanceScore(query, title, abstract)

	return &domain.Candidate{
		ID:              canonical,
		ShortID:         short,
		Title:           title,
		PublicationYear: work.PublicationYear,
		PublicationDate: work.PublicationDate,
		DOI:             work.DOI,
		Authors:         authors,
		CitationCount:   work.CitedByCount,
		IsOpenAccess:    isOA,
		OAStatus:        oaStatus,
		PDFURL:          pdfURL,
		LandingURL:      landingURL,
		Abstract:        abstract,
		Score:           score,
		Reasons:         reasons,
	}
}
