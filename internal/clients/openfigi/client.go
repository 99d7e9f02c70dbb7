// Package openfigi provides a client for Bloomberg's OpenFIGI API.
// OpenFIGI is a free service for mapping securities identifiers like CUSIPs
// to exchange-specific ticker symbols.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/thirteenf/internal/clientdata"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.openfigi.com/v3"
	serviceName    = "openfigi"

	// IDTypeCUSIP is the OpenFIGI identifier type for CUSIPs.
	IDTypeCUSIP = "ID_CUSIP"

	// Jobs per mapping request: 10 without an API key, 100 with one.
	batchSizeAnonymous = 10
	batchSizeWithKey   = 100
)

// MappingRequest represents a request to the OpenFIGI mapping API.
type MappingRequest struct {
	IDType   string `json:"idType"`
	IDValue  string `json:"idValue"`
	ExchCode string `json:"exchCode,omitempty"`
}

// MappingResult represents a single result from the OpenFIGI API.
type MappingResult struct {
	FIGI          string `json:"figi"`
	Ticker        string `json:"ticker"`
	ExchCode      string `json:"exchCode"` // e.g. "US", "UN", "UW"
	Name          string `json:"name"`
	MarketSector  string `json:"marketSector"`
	SecurityType  string `json:"securityType"`
	CompositeFIGI string `json:"compositeFIGI"`
}

// MappingResponse represents a response item from the OpenFIGI API.
type MappingResponse struct {
	Data    []MappingResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// Client is the OpenFIGI API client.
type Client struct {
	baseURL    string
	apiKey     string // Optional - increases rate limits and batch size
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
}

// NewClient creates a new OpenFIGI client.
// apiKey is optional but recommended for higher rate limits.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(apiKey string, timeout time.Duration, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:       log.With().Str("component", "openfigi").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL points the client at another mapping endpoint.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// BatchSize returns the number of mapping jobs allowed per request.
func (c *Client) BatchSize() int {
	if c.apiKey != "" {
		return batchSizeWithKey
	}
	return batchSizeAnonymous
}

// LookupCUSIP maps a CUSIP to its listings.
// An empty result means OpenFIGI knows no match.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) LookupCUSIP(ctx context.Context, cusip string) ([]MappingResult, error) {
	cusip = normalizeCUSIP(cusip)

	if results, ok := c.getFromCache(cusip); ok {
		c.log.Debug().Str("cusip", cusip).Msg("OpenFIGI cache hit")
		return results, nil
	}

	responses, err := c.doRequest(ctx, []MappingRequest{{IDType: IDTypeCUSIP, IDValue: cusip}})
	if err != nil {
		if staleResults, ok := c.getStaleFromCache(cusip); ok {
			c.log.Warn().
				Err(err).
				Str("cusip", cusip).
				Msg("API failed, using stale cached data")
			return staleResults, nil
		}
		return nil, err
	}

	if len(responses) == 0 {
		return nil, nil
	}

	results := responses[0].Data
	c.setCache(cusip, results)

	return results, nil
}

// BatchLookupCUSIPs looks up many CUSIPs, splitting them into requests of BatchSize jobs.
// Returns a map of CUSIP -> []MappingResult keyed by the normalized CUSIP.
// A failed chunk falls back to stale cache entries; the error is returned only
// when nothing at all could be resolved.
func (c *Client) BatchLookupCUSIPs(ctx context.Context, cusips []string) (map[string][]MappingResult, error) {
	results := make(map[string][]MappingResult, len(cusips))

	seen := make(map[string]bool, len(cusips))
	uncached := make([]string, 0, len(cusips))
	for _, raw := range cusips {
		cusip := normalizeCUSIP(raw)
		if cusip == "" || seen[cusip] {
			continue
		}
		seen[cusip] = true

		if cached, ok := c.getFromCache(cusip); ok {
			results[cusip] = cached
		} else {
			uncached = append(uncached, cusip)
		}
	}

	if len(uncached) == 0 {
		c.log.Debug().Int("count", len(seen)).Msg("All CUSIPs found in cache")
		return results, nil
	}

	c.log.Debug().
		Int("total", len(seen)).
		Int("cached", len(seen)-len(uncached)).
		Int("to_fetch", len(uncached)).
		Msg("BatchLookupCUSIPs cache stats")

	var firstErr error
	size := c.BatchSize()
	for start := 0; start < len(uncached); start += size {
		end := start + size
		if end > len(uncached) {
			end = len(uncached)
		}
		chunk := uncached[start:end]

		requests := make([]MappingRequest, len(chunk))
		for i, cusip := range chunk {
			requests[i] = MappingRequest{IDType: IDTypeCUSIP, IDValue: cusip}
		}

		responses, err := c.doRequest(ctx, requests)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			staleCount := 0
			for _, cusip := range chunk {
				if stale, ok := c.getStaleFromCache(cusip); ok {
					results[cusip] = stale
					staleCount++
				}
			}
			c.log.Warn().
				Err(err).
				Int("chunk_size", len(chunk)).
				Int("stale_count", staleCount).
				Msg("OpenFIGI batch failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// Responses are positional: item i answers request i
		for i, resp := range responses {
			if i >= len(chunk) {
				break
			}
			results[chunk[i]] = resp.Data
			c.setCache(chunk[i], resp.Data)
		}
	}

	if firstErr != nil && len(results) == 0 {
		return nil, firstErr
	}

	return results, nil
}

// FirstTicker returns the ticker of the first listing, or "".
func FirstTicker(results []MappingResult) string {
	if len(results) == 0 {
		return ""
	}
	return strings.TrimSpace(results[0].Ticker)
}

// doRequest performs the HTTP request to the OpenFIGI API.
func (c *Client) doRequest(ctx context.Context, requests []MappingRequest) ([]MappingResponse, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/mapping"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.log.Debug().Int("count", len(requests)).Msg("Making OpenFIGI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{
			Service:    serviceName,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body: %s", strings.TrimSpace(string(bodyBytes))),
		}
	}

	var responses []MappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, &domain.UpstreamError{Service: serviceName, URL: url, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return responses, nil
}

// getFromCache retrieves cached results if they exist and haven't expired.
func (c *Client) getFromCache(cusip string) ([]MappingResult, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.GetIfFresh(clientdata.TableOpenFIGI, cusip)
	if err != nil {
		c.log.Warn().Err(err).Str("cusip", cusip).Msg("Failed to get from cache")
		return nil, false
	}
	return c.decodeCached(cusip, data)
}

// getStaleFromCache retrieves cached results even if expired.
func (c *Client) getStaleFromCache(cusip string) ([]MappingResult, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get(clientdata.TableOpenFIGI, cusip)
	if err != nil {
		c.log.Warn().Err(err).Str("cusip", cusip).Msg("Failed to get stale data from cache")
		return nil, false
	}
	return c.decodeCached(cusip, data)
}

func (c *Client) decodeCached(cusip string, data json.RawMessage) ([]MappingResult, bool) {
	if data == nil {
		return nil, false
	}

	var results []MappingResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.log.Warn().Err(err).Str("cusip", cusip).Msg("Failed to unmarshal cached data")
		return nil, false
	}

	return results, true
}

// setCache stores results in the persistent cache. Misses expire sooner.
func (c *Client) setCache(cusip string, results []MappingResult) {
	if c.cacheRepo == nil {
		return
	}

	ttl := clientdata.TTLOpenFIGI
	if len(results) == 0 {
		ttl = clientdata.TTLOpenFIGIMiss
		results = []MappingResult{}
	}

	if err := c.cacheRepo.Store(clientdata.TableOpenFIGI, cusip, results, ttl); err != nil {
		c.log.Warn().Err(err).Str("cusip", cusip).Msg("Failed to cache OpenFIGI results")
	}
}

func normalizeCUSIP(cusip string) string {
	return strings.ToUpper(strings.TrimSpace(cusip))
}
