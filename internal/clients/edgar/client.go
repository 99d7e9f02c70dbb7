// Package edgar provides a client for the SEC EDGAR submissions index and filing archive.
//
// EDGAR requires a descriptive User-Agent on every request and enforces a fair-access
// limit of 10 requests per second, so all requests share one pacing gate.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aristath/thirteenf/internal/cache"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultSubmissionsBaseURL = "https://data.sec.gov/submissions"
	defaultArchivesBaseURL    = "https://www.sec.gov/Archives/edgar/data"
	maxBodyBytes              = 64 << 20
	serviceName               = "edgar"
)

// Config holds EDGAR client settings.
type Config struct {
	UserAgent          string
	Timeout            time.Duration // per request
	MinRequestInterval time.Duration
	CacheTTL           time.Duration // submissions and manifests

	// Overrides for the public endpoints; empty means default.
	SubmissionsBaseURL string
	ArchivesBaseURL    string
}

// RecentFilings holds the parallel arrays of the submissions index.
// Entry i of every slice describes the same filing.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber" msgpack:"a"`
	FilingDate      []string `json:"filingDate" msgpack:"f"`
	ReportDate      []string `json:"reportDate" msgpack:"r"`
	Form            []string `json:"form" msgpack:"t"`
	PrimaryDocument []string `json:"primaryDocument" msgpack:"p"`
}

// Submissions is the subset of the submissions index the pipeline consumes.
type Submissions struct {
	CIK     string `json:"cik" msgpack:"cik"`
	Name    string `json:"name" msgpack:"name"`
	Filings struct {
		Recent RecentFilings `json:"recent" msgpack:"recent"`
	} `json:"filings" msgpack:"filings"`
}

// fileManifest is the shape of a filing directory's index.json.
type fileManifest struct {
	Directory struct {
		Name string `json:"name"`
		Item []struct {
			Name string `json:"name"`
		} `json:"item"`
	} `json:"directory"`
}

// Client is the EDGAR HTTP client.
type Client struct {
	submissionsBaseURL string
	archivesBaseURL    string
	cfg                Config
	httpClient         *http.Client
	cache              cache.Cache
	log                zerolog.Logger

	paceMu      sync.Mutex
	nextRequest time.Time
}

// NewClient creates a new EDGAR client.
// respCache is optional - if nil, submissions and manifests are always fetched.
func NewClient(cfg Config, respCache cache.Cache, log zerolog.Logger) *Client {
	submissionsBaseURL := cfg.SubmissionsBaseURL
	if submissionsBaseURL == "" {
		submissionsBaseURL = defaultSubmissionsBaseURL
	}
	archivesBaseURL := cfg.ArchivesBaseURL
	if archivesBaseURL == "" {
		archivesBaseURL = defaultArchivesBaseURL
	}

	return &Client{
		submissionsBaseURL: strings.TrimRight(submissionsBaseURL, "/"),
		archivesBaseURL:    strings.TrimRight(archivesBaseURL, "/"),
		cfg:                cfg,
		httpClient:         &http.Client{},
		cache:              respCache,
		log:                log.With().Str("component", "edgar").Logger(),
	}
}

// FilingBaseURL returns the archive directory of one filing.
func (c *Client) FilingBaseURL(cikNoLead, accessionNo string) string {
	return fmt.Sprintf("%s/%s/%s", c.archivesBaseURL, cikNoLead, accessionNo)
}

// GetSubmissions fetches the full submissions index of a 10-digit CIK.
func (c *Client) GetSubmissions(ctx context.Context, cik10 string) (*Submissions, error) {
	cacheKey := "edgar:submissions:" + cik10

	var subs Submissions
	if c.getCached(ctx, cacheKey, &subs) {
		c.log.Debug().Str("cik", cik10).Msg("Submissions cache hit")
		return &subs, nil
	}

	url := fmt.Sprintf("%s/CIK%s.json", c.submissionsBaseURL, cik10)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: fmt.Errorf("failed to decode submissions: %w", err)}
	}

	c.setCached(ctx, cacheKey, &subs)
	return &subs, nil
}

// GetFileManifest returns the file names listed in a filing's index.json.
func (c *Client) GetFileManifest(ctx context.Context, cikNoLead, accessionNo string) ([]string, error) {
	cacheKey := fmt.Sprintf("edgar:manifest:%s:%s", cikNoLead, accessionNo)

	var names []string
	if c.getCached(ctx, cacheKey, &names) {
		return names, nil
	}

	url := c.FilingBaseURL(cikNoLead, accessionNo) + "/index.json"
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var manifest fileManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: fmt.Errorf("failed to decode file manifest: %w", err)}
	}

	names = make([]string, 0, len(manifest.Directory.Item))
	for _, item := range manifest.Directory.Item {
		names = append(names, item.Name)
	}

	c.setCached(ctx, cacheKey, names)
	return names, nil
}

// Exists reports whether url answers a HEAD request with a success status.
// Any failure, including network errors, counts as absent.
func (c *Client) Exists(ctx context.Context, url string) bool {
	if err := c.pace(ctx); err != nil {
		return false
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodHead, url)
	if err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("HEAD request failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// FetchDocument downloads a filing document.
func (c *Client) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url)
}

// get performs a GET and reads the whole body. The request timeout starts once
// the pacing slot is reached and also covers the body read.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.pace(ctx); err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: err}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return body, nil
}

// withTimeout bounds ctx by the per-request timeout, if one is configured.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// send issues one request. Callers pace first.
func (c *Client) send(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.8")

	c.log.Debug().Str("method", method).Str("url", url).Msg("EDGAR request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: err}
	}
	return resp, nil
}

// pace reserves the next request slot and waits for it.
func (c *Client) pace(ctx context.Context) error {
	if c.cfg.MinRequestInterval <= 0 {
		return ctx.Err()
	}

	c.paceMu.Lock()
	now := time.Now()
	slot := c.nextRequest
	if slot.Before(now) {
		slot = now
	}
	c.nextRequest = slot.Add(c.cfg.MinRequestInterval)
	c.paceMu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) getCached(ctx context.Context, key string, v any) bool {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return false
	}
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := cache.Unmarshal(data, v); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached entry")
		return false
	}
	return true
}

func (c *Client) setCached(ctx context.Context, key string, v any) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return
	}
	data, err := cache.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
	}
}
