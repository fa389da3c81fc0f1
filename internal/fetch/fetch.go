// Package fetch retrieves raw HTML for tracked URLs with a fixed outbound
// policy: identifying user agent, bounded redirects, and a hard timeout.
// It maps transport failures to a closed error taxonomy and never retries;
// retry policy belongs to the scheduler.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/config"
)

// ErrorKind names one class of fetch failure.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"          // DNS resolution failed
	KindConnectionRefused ErrorKind = "connection_refused"
	KindTimeout           ErrorKind = "timeout"
	KindForbidden         ErrorKind = "forbidden"      // HTTP 403
	KindPageNotFound      ErrorKind = "page_not_found" // HTTP 404
	KindOtherHTTP         ErrorKind = "http_error"
)

// Error is a fetch failure with its taxonomy kind and, for HTTP-level
// failures, the response status code.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "Website not found"
	case KindConnectionRefused:
		return "Connection refused"
	case KindTimeout:
		return "Request timeout"
	case KindForbidden:
		return "Access forbidden"
	case KindPageNotFound:
		return "Page not found"
	default:
		if e.StatusCode > 0 {
			return fmt.Sprintf("HTTP %d", e.StatusCode)
		}
		return "HTTP unknown error"
	}
}

func (e *Error) Unwrap() error { return e.cause }

// AsFetchError extracts a *Error from err, if present.
func AsFetchError(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}

// Response is a successful page fetch.
type Response struct {
	StatusCode   int
	Body         string
	ContentType  string
	LastModified *time.Time
	FetchedAt    time.Time
}

// Fetcher retrieves pages over HTTP. The client is constructed once and
// owned by the fetcher, not shared ambient state.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// New builds a fetcher from configuration.
func New(cfg config.FetcherConfig, logger *zap.Logger) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch performs a single GET of url. Any response status >= 400 and any
// transport failure is returned as a *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindOtherHTTP, URL: url, cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classifyTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		kind := KindOtherHTTP
		switch resp.StatusCode {
		case http.StatusForbidden:
			kind = KindForbidden
		case http.StatusNotFound:
			kind = KindPageNotFound
		}
		f.logger.Debug("fetch rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return nil, &Error{Kind: kind, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.classifyTransportError(url, err)
	}

	result := &Response{
		StatusCode:  resp.StatusCode,
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = &t
		}
	}

	f.logger.Debug("fetch ok",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(result.Body)))
	return result, nil
}

func (f *Fetcher) classifyTransportError(url string, err error) *Error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindNotFound, URL: url, cause: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConnectionRefused, URL: url, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return &Error{Kind: KindTimeout, URL: url, cause: err}
	}

	return &Error{Kind: KindOtherHTTP, URL: url, cause: err}
}
