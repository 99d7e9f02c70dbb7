package tickers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/thirteenf/internal/clients/openfigi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name    string
	answers map[string]string
	err     error
	calls   [][]string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Lookup(_ context.Context, cusips []string) (map[string]string, error) {
	s.calls = append(s.calls, append([]string(nil), cusips...))
	if s.err != nil {
		return nil, s.err
	}
	found := make(map[string]string)
	for _, c := range cusips {
		if t, ok := s.answers[c]; ok {
			found[c] = t
		}
	}
	return found, nil
}

// resolveOne resolves a single CUSIP through a one-element batch.
func resolveOne(resolver *Resolver, cusip string) string {
	return resolver.ResolveBatch(context.Background(), []string{cusip})[normalize(cusip)]
}

func TestResolveBatch_SinglePrimaryWins(t *testing.T) {
	primary := &stubSource{name: "primary", answers: map[string]string{"037833100": "AAPL"}}
	fallback := &stubSource{name: "fallback", answers: map[string]string{"037833100": "OLD"}}
	resolver := NewResolver(zerolog.Nop(), primary, fallback)

	assert.Equal(t, "AAPL", resolveOne(resolver, "037833100"))
	assert.Empty(t, fallback.calls)
}

func TestResolveBatch_SingleFallsBackOnFailure(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("rate limited")}
	resolver := NewResolver(zerolog.Nop(), primary, NewStaticSource(nil))

	assert.Equal(t, "AAPL", resolveOne(resolver, "037833100"))
}

func TestResolveBatch_SingleFallsBackOnMiss(t *testing.T) {
	primary := &stubSource{name: "primary", answers: map[string]string{"037833100": "  "}}
	resolver := NewResolver(zerolog.Nop(), primary, NewStaticSource(nil))

	assert.Equal(t, "AAPL", resolveOne(resolver, "037833100"))
}

func TestResolveBatch_SingleBothMissIsEmpty(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("down")}
	resolver := NewResolver(zerolog.Nop(), primary, NewStaticSource(nil))

	assert.Equal(t, "", resolveOne(resolver, "999999999"))
}

func TestResolveBatch_SingleNormalizesInput(t *testing.T) {
	resolver := NewResolver(zerolog.Nop(), NewStaticSource(nil))
	assert.Equal(t, "MA", resolveOne(resolver, " 57636q104 "))
}

func TestResolveBatch_SingleNoSources(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())
	assert.Equal(t, "", resolveOne(resolver, "037833100"))
}

func TestResolveBatch_OnlyUnresolvedReachLaterSources(t *testing.T) {
	primary := &stubSource{name: "primary", answers: map[string]string{"111111111": "ONE"}}
	fallback := &stubSource{name: "fallback", answers: map[string]string{"222222222": "TWO"}}
	resolver := NewResolver(zerolog.Nop(), primary, fallback)

	got := resolver.ResolveBatch(context.Background(), []string{"111111111", "222222222", "333333333", "111111111", ""})

	assert.Equal(t, map[string]string{"111111111": "ONE", "222222222": "TWO"}, got)
	require.Len(t, primary.calls, 1)
	assert.Equal(t, []string{"111111111", "222222222", "333333333"}, primary.calls[0])
	require.Len(t, fallback.calls, 1)
	assert.Equal(t, []string{"222222222", "333333333"}, fallback.calls[0])
}

func TestResolveBatch_SingleOpenFIGIFailureUsesStaticTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	resolver := newOpenFIGIResolver(t, server.URL)

	assert.Equal(t, "AAPL", resolveOne(resolver, "037833100"))
	assert.Equal(t, "", resolveOne(resolver, "000000000"))
}

func TestResolveBatch_OpenFIGISuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req []openfigi.MappingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		resp := make([]openfigi.MappingResponse, len(req))
		for i, job := range req {
			if job.IDValue == "594918104" {
				resp[i] = openfigi.MappingResponse{Data: []openfigi.MappingResult{{Ticker: "MSFT"}}}
			} else {
				resp[i] = openfigi.MappingResponse{Warning: "No identifier found."}
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	resolver := newOpenFIGIResolver(t, server.URL)

	got := resolver.ResolveBatch(context.Background(), []string{"594918104", "060505104", "000000000"})
	assert.Equal(t, map[string]string{"594918104": "MSFT", "060505104": "BAC"}, got)
}

// newOpenFIGIResolver builds the production chain against a test server.
func newOpenFIGIResolver(t *testing.T, baseURL string) *Resolver {
	t.Helper()
	client := openfigi.NewClient("", time.Second, nil, zerolog.Nop())
	client.SetBaseURL(baseURL)
	return NewResolver(zerolog.Nop(), NewOpenFIGISource(client), NewStaticSource(nil))
}

// countingFIGI records which OpenFIGI entry point the source used.
type countingFIGI struct {
	single  []string
	batches [][]string
	err     error
}

func (c *countingFIGI) LookupCUSIP(_ context.Context, cusip string) ([]openfigi.MappingResult, error) {
	c.single = append(c.single, cusip)
	if c.err != nil {
		return nil, c.err
	}
	return []openfigi.MappingResult{{Ticker: "T" + cusip[:3]}}, nil
}

func (c *countingFIGI) BatchLookupCUSIPs(_ context.Context, cusips []string) (map[string][]openfigi.MappingResult, error) {
	c.batches = append(c.batches, append([]string(nil), cusips...))
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string][]openfigi.MappingResult, len(cusips))
	for _, cusip := range cusips {
		out[cusip] = []openfigi.MappingResult{{Ticker: "T" + cusip[:3]}}
	}
	return out, nil
}

func TestOpenFIGISource_Lookup(t *testing.T) {
	tests := []struct {
		name            string
		cusips          []string
		expected        map[string]string
		expectedSingle  int
		expectedBatches int
	}{
		{name: "one cusip uses single lookup", cusips: []string{"037833100"}, expected: map[string]string{"037833100": "T037"}, expectedSingle: 1},
		{name: "many cusips use batch lookup", cusips: []string{"037833100", "060505104"}, expected: map[string]string{"037833100": "T037", "060505104": "T060"}, expectedBatches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &countingFIGI{}
			got, err := NewOpenFIGISource(client).Lookup(context.Background(), tt.cusips)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, got)
			assert.Len(t, client.single, tt.expectedSingle)
			assert.Len(t, client.batches, tt.expectedBatches)
		})
	}
}

func TestOpenFIGISource_SingleLookupFailure(t *testing.T) {
	client := &countingFIGI{err: errors.New("rate limited")}
	_, err := NewOpenFIGISource(client).Lookup(context.Background(), []string{"037833100"})
	assert.Error(t, err)
}

func TestResolveBatch_SingleCUSIPSendsOneJob(t *testing.T) {
	var jobs []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req []openfigi.MappingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		jobs = append(jobs, len(req))
		_ = json.NewEncoder(w).Encode([]openfigi.MappingResponse{{Data: []openfigi.MappingResult{{Ticker: "MSFT"}}}})
	}))
	defer server.Close()

	resolver := newOpenFIGIResolver(t, server.URL)

	assert.Equal(t, "MSFT", resolveOne(resolver, "594918104"))
	assert.Equal(t, []int{1}, jobs)
}
