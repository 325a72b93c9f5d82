package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDownloader(cfg Config) *Downloader {
	cfg.AllowPrivateNetworks = true
	return NewDownloader(cfg)
}

func TestDownload(t *testing.T) {
	t.Run("downloads pdf and computes hash", func(t *testing.T) {
		body := "%PDF-1.7\nfake pdf content"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Accept"), "application/pdf")
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte(body))
		}))
		defer server.Close()

		d := newTestDownloader(Config{})

		result, err := d.Download(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte(body), result.Content)
		assert.Equal(t, int64(len(body)), result.SizeBytes)
		assert.Equal(t, "application/pdf", result.ContentType)

		sum := sha256.Sum256([]byte(body))
		assert.Equal(t, hex.EncodeToString(sum[:]), result.ContentHash)
	})

	t.Run("accepts octet-stream body with pdf signature", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("%PDF-1.4 content"))
		}))
		defer server.Close()

		d := newTestDownloader(Config{})

		result, err := d.Download(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", result.ContentType)
	})

	t.Run("rejects html error page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>Please log in</body></html>"))
		}))
		defer server.Close()

		d := newTestDownloader(Config{})

		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	t.Run("reports http status on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		d := newTestDownloader(Config{})

		_, err := d.Download(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrDownloadFailed)
		assert.Contains(t, err.Error(), "HTTP 404")
	})

	t.Run("rejects oversized declared length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Length", "2048")
			w.Write(make([]byte, 2048))
		}))
		defer server.Close()

		d := newTestDownloader(Config{MaxSize: 1024})

		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("rejects oversized streamed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			// Flushing first forces chunked encoding, leaving the length
			// undeclared.
			w.(http.Flusher).Flush()
			w.Write([]byte("%PDF" + strings.Repeat("x", 2048)))
		}))
		defer server.Close()

		d := newTestDownloader(Config{MaxSize: 1024})

		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		d := newTestDownloader(Config{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := d.Download(ctx, server.URL)
		assert.Error(t, err)
	})
}

func TestPrivateNetworkGuard(t *testing.T) {
	t.Run("rejects loopback target", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.7"))
		}))
		defer server.Close()

		d := NewDownloader(Config{})

		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrPrivateNetwork)
	})

	t.Run("rejects non-http scheme", func(t *testing.T) {
		err := validateURLNotPrivate("file:///etc/passwd")
		assert.ErrorIs(t, err, ErrPrivateNetwork)
	})

	t.Run("classifies addresses", func(t *testing.T) {
		private := []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1", "169.254.1.1", "::1", "fc00::1", "fe80::1", "0.0.0.0"}
		for _, addr := range private {
			ip := net.ParseIP(addr)
			require.NotNil(t, ip, addr)
			assert.True(t, isPrivateIP(ip), addr)
		}

		public := []string{"8.8.8.8", "93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"}
		for _, addr := range public {
			ip := net.ParseIP(addr)
			require.NotNil(t, ip, addr)
			assert.False(t, isPrivateIP(ip), addr)
		}
	})
}
