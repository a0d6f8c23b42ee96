package fulltext

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// HTTPConfig holds HTTP fetcher configuration.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Default: 60 seconds.
	Timeout time.Duration
	// MaxSize is the maximum file size in bytes. Default: DefaultMaxSize.
	MaxSize int64
	// UserAgent is the User-Agent header.
	UserAgent string
	// AllowPrivateNetworks disables the private address guard. Only tests
	// and local mirrors set it.
	AllowPrivateNetworks bool
}

// HTTPFetcher downloads files over HTTP(S).
type HTTPFetcher struct {
	client               *http.Client
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool
}

// NewHTTPFetcher creates an HTTPFetcher with the given configuration.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "bibliographic-ingest/1.0"
	}

	f := &HTTPFetcher{
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		// Redirects are checked too, so an open redirect cannot reach an
		// internal address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrSSRF)
			}
			if !f.allowPrivateNetworks {
				return validateURLNotPrivate(req.URL.String())
			}
			return nil
		},
	}
	return f
}

// Fetch downloads rawURL. A 404 or 410 is ErrLinkNotFound; other non-2xx
// statuses are external API errors classified by domain.IsTransient.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if !f.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/pdf, application/gzip, application/zip, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: HTTP %d for %s", domain.ErrLinkNotFound, resp.StatusCode, rawURL)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, domain.NewExternalAPIError("fulltext", resp.StatusCode,
			fmt.Sprintf("GET %s", rawURL), ErrDownloadFailed)
	}

	// Read one extra byte to detect oversize bodies.
	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, f.maxSize)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "text/html") && !IsPDF(content) {
		return nil, fmt.Errorf("%w: Content-Type is %q", domain.ErrNotPDF, contentType)
	}

	doc := newDocument(remoteName(resp.Request.URL), content, StrategyHTTP)
	return &doc, nil
}

func remoteName(u *url.URL) string {
	if u == nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// isPrivateIP returns true if the IP address is in a private, loopback, or
// otherwise non-routable range.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	return false
}

// validateURLNotPrivate resolves the hostname and rejects private IPs.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "ftp":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrDownloadFailed, host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, ipStr)
		}
	}
	return nil
}
