package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// FTPConfig holds FTP fetcher configuration.
type FTPConfig struct {
	// Timeout bounds the dial and every control-connection exchange. Default: 60 seconds.
	Timeout time.Duration
	// MaxSize is the maximum file size in bytes. Default: DefaultMaxSize.
	MaxSize int64
	// AllowPrivateNetworks disables the private address guard.
	AllowPrivateNetworks bool
}

// FTPFetcher retrieves files from anonymous FTP servers such as the PMC
// open-access mirror.
type FTPFetcher struct {
	timeout              time.Duration
	maxSize              int64
	allowPrivateNetworks bool
}

// NewFTPFetcher creates an FTPFetcher with the given configuration.
func NewFTPFetcher(cfg FTPConfig) *FTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return &FTPFetcher{
		timeout:              cfg.Timeout,
		maxSize:              cfg.MaxSize,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}
}

// Fetch logs in anonymously (or with URL credentials) and retrieves the file
// at rawURL. A 550 reply is ErrLinkNotFound.
func (f *FTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "ftp" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid FTP URL %q", ErrDownloadFailed, rawURL)
	}
	if !f.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return nil, err
		}
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(f.timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrDownloadFailed, addr, err)
	}
	defer func() { _ = conn.Quit() }()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrDownloadFailed, err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, rawURL)
		}
		return nil, fmt.Errorf("%w: retr %s: %w", ErrDownloadFailed, u.Path, err)
	}
	defer func() { _ = resp.Close() }()

	content, err := io.ReadAll(io.LimitReader(resp, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDownloadFailed, u.Path, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, f.maxSize)
	}

	doc := newDocument(path.Base(u.Path), content, StrategyFTP)
	return &doc, nil
}
