// Package pdf downloads open-access PDF files from publisher and
// repository URLs, with size limits and private-network protection.
package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for download operations.
var (
	// ErrNotPDF is returned when the response is neither declared nor
	// recognizable as a PDF.
	ErrNotPDF = errors.New("pdf: response is not a PDF")
	// ErrTooLarge is returned when the file exceeds the maximum allowed size.
	ErrTooLarge = errors.New("pdf: file exceeds maximum size")
	// ErrDownloadFailed is returned when the download fails due to network or HTTP errors.
	ErrDownloadFailed = errors.New("pdf: download failed")
	// ErrPrivateNetwork is returned when the URL resolves to a private or internal address.
	ErrPrivateNetwork = errors.New("pdf: request to private network denied")
)

const (
	// DefaultMaxSize caps downloads at 80 MiB.
	DefaultMaxSize = 80 << 20

	// DefaultTimeout is the per-download timeout.
	DefaultTimeout = 60 * time.Second

	// maxRedirects bounds redirect chains.
	maxRedirects = 10
)

// pdfMagic is the leading byte signature of a PDF document.
var pdfMagic = []byte("%PDF")

// DownloadResult holds a fetched PDF.
type DownloadResult struct {
	// Content is the PDF bytes.
	Content []byte
	// ContentHash is the SHA-256 hex digest of the content.
	ContentHash string
	// SizeBytes is the size of the content in bytes.
	SizeBytes int64
	// ContentType is the Content-Type header of the response.
	ContentType string
}

// Config holds downloader configuration.
type Config struct {
	// Timeout is the HTTP request timeout. Default: 60 seconds.
	Timeout time.Duration
	// MaxSize is the maximum file size in bytes. Default: 80 MiB.
	MaxSize int64
	// UserAgent is the User-Agent header sent with each request.
	UserAgent string
	// AllowPrivateNetworks disables the private-address checks. This MUST
	// only be set in test environments.
	AllowPrivateNetworks bool
}

// Downloader fetches PDFs from URLs.
type Downloader struct {
	client               *http.Client
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool // For testing only; never enable in production.
}

// NewDownloader creates a Downloader with the given configuration.
func NewDownloader(cfg Config) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; Helixir-PaperIngest/1.0; +https://helixir.io/bot)"
	}

	d := &Downloader{
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}

	d.client = &http.Client{
		Timeout: cfg.Timeout,
		// Each redirect target is re-validated so an open redirect cannot
		// land the request on an internal address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrPrivateNetwork)
			}
			if !d.allowPrivateNetworks {
				return validateURLNotPrivate(req.URL.String())
			}
			return nil
		},
	}

	return d
}

// isPrivateIP reports whether the address is private, loopback, link-local,
// or otherwise non-routable.
func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}

// validateURLNotPrivate rejects non-HTTP schemes and hosts that resolve to
// private addresses.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrivateNetwork, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrPrivateNetwork, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrDownloadFailed, host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrPrivateNetwork, host, ipStr)
		}
	}
	return nil
}

// looksLikePDF accepts a response when the Content-Type mentions PDF or the
// body starts with the PDF signature. Repositories frequently serve PDFs as
// application/octet-stream, so the header alone is not trusted.
func looksLikePDF(contentType string, content []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	if len(content) >= len(pdfMagic) && string(content[:len(pdfMagic)]) == string(pdfMagic) {
		return true
	}
	return false
}

// Download fetches a PDF from the given URL.
// Returns ErrNotPDF when neither the Content-Type nor the leading bytes
// identify a PDF, ErrTooLarge when the declared or measured size exceeds
// MaxSize, ErrPrivateNetwork when the URL resolves to an internal address,
// and ErrDownloadFailed wrapped with the HTTP status for non-2xx responses.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	if !d.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	// The declared length short-circuits obviously oversized responses
	// before any body bytes are read.
	if resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("%w: declared %d bytes exceeds %d", ErrTooLarge, resp.ContentLength, d.maxSize)
	}

	// Read one byte past the limit to detect undeclared oversize bodies.
	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if !looksLikePDF(contentType, content) {
		return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotPDF, contentType)
	}

	hash := sha256.Sum256(content)

	return &DownloadResult{
		Content:     content,
		ContentHash: hex.EncodeToString(hash[:]),
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
	}, nil
}
