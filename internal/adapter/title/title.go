// Package title looks up page titles for new links.
package title

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
	"clickloop/internal/infra/tracer"
)

// Lookup modes.
const (
	ModeProxy  = "proxy"
	ModeDirect = "direct"
	ModeOff    = "off"
)

const (
	maxBody   = 2 * 1024 * 1024
	userAgent = "Mozilla/5.0 (compatible; clickloop/1.0)"
)

// Fetcher implements domain.TitleLookup over HTTP.
type Fetcher struct {
	mode     string
	proxyURL string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a title fetcher for cfg.Mode. ModeOff yields a lookup that
// always returns "".
func New(cfg config.TitleConfig, logger *slog.Logger) domain.TitleLookup {
	if cfg.Mode == ModeOff {
		return off{}
	}
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Mode == ModeDirect && !cfg.AllowPrivate {
		client.Transport = publicOnlyTransport()
	}
	return NewFetcher(cfg, client, logger)
}

// NewFetcher creates a Fetcher using client. Zero rate settings mean 2 rps, burst 4.
func NewFetcher(cfg config.TitleConfig, client *http.Client, logger *slog.Logger) *Fetcher {
	rps, burst := cfg.RatePerSecond, cfg.Burst
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 4
	}
	if client.Timeout <= 0 {
		c := *client
		c.Timeout = 10 * time.Second
		client = &c
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeProxy
	}
	return &Fetcher{
		mode:     mode,
		proxyURL: cfg.ProxyURL,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		logger:   logger,
	}
}

// Lookup returns the first <title> text of pageURL, or "" on any failure.
func (f *Fetcher) Lookup(ctx context.Context, pageURL string) string {
	ctx, span := tracer.StartSpan(ctx, "title.lookup",
		trace.WithAttributes(tracer.StringAttr("title.mode", f.mode)),
	)
	defer span.End()

	t, err := f.lookup(ctx, pageURL)
	if err != nil {
		tracer.RecordError(span, err)
		f.logger.Debug("title lookup failed", "url", pageURL, "error", err)
		return ""
	}
	tracer.SetOK(span)
	return t
}

func (f *Fetcher) lookup(ctx context.Context, pageURL string) (string, error) {
	if err := domain.ValidateURL(pageURL); err != nil {
		return "", err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRateLimit, err)
	}

	var html string
	var err error
	switch f.mode {
	case ModeDirect:
		html, err = f.fetchDirect(ctx, pageURL)
	default:
		html, err = f.fetchViaProxy(ctx, pageURL)
	}
	if err != nil {
		return "", err
	}
	return extractTitle(html)
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

func (f *Fetcher) fetchDirect(ctx context.Context, pageURL string) (string, error) {
	body, err := f.get(ctx, pageURL)
	return string(body), err
}

// fetchViaProxy uses an allorigins-style proxy: GET <proxy>?url=<escaped>
// answering {"contents": "<html>"}.
func (f *Fetcher) fetchViaProxy(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(f.proxyURL)
	if err != nil {
		return "", fmt.Errorf("%w: proxy url: %v", domain.ErrInvalidInput, err)
	}
	q := u.Query()
	q.Set("url", pageURL)
	u.RawQuery = q.Encode()

	body, err := f.get(ctx, u.String())
	if err != nil {
		return "", err
	}
	var payload struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: proxy response: %v", domain.ErrUpstream, err)
	}
	return payload.Contents, nil
}

func extractTitle(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	t := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if t == "" {
		return "", fmt.Errorf("%w: no title", domain.ErrNotFound)
	}
	return t, nil
}

type off struct{}

func (off) Lookup(context.Context, string) string { return "" }
