package filings

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/thirteenf/internal/clients/edgar"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filingRow struct {
	form, accession, reportDate, filingDate string
}

func recentOf(rows ...filingRow) edgar.RecentFilings {
	var recent edgar.RecentFilings
	for _, row := range rows {
		recent.Form = append(recent.Form, row.form)
		recent.AccessionNumber = append(recent.AccessionNumber, row.accession)
		recent.ReportDate = append(recent.ReportDate, row.reportDate)
		recent.FilingDate = append(recent.FilingDate, row.filingDate)
	}
	return recent
}

type fakeSubmissions struct {
	subs *edgar.Submissions
	err  error
}

func (f *fakeSubmissions) GetSubmissions(_ context.Context, _ string) (*edgar.Submissions, error) {
	return f.subs, f.err
}

func TestSelectLatest(t *testing.T) {
	tests := []struct {
		name          string
		rows          []filingRow
		wantOK        bool
		wantAccession string
	}{
		{
			name:   "no filings",
			wantOK: false,
		},
		{
			name: "only other forms",
			rows: []filingRow{
				{"10-K", "0000000001-24-000001", "2024-06-30", "2024-08-01"},
				{"SC 13G", "0000000001-24-000002", "", "2024-08-02"},
			},
			wantOK: false,
		},
		{
			name: "single filing",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000001",
		},
		{
			name: "amendment filed later replaces original for the same period",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
				{"13F-HR/A", "0000000001-24-000002", "2024-06-30", "2024-08-20"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000002",
		},
		{
			name: "newest filing date across periods wins",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000003", "2024-09-30", "2024-11-14"},
				{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000003",
		},
		{
			name: "late amendment of an older period beats newer original",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000003", "2024-09-30", "2024-11-14"},
				{"13F-HR/A", "0000000001-24-000004", "2024-06-30", "2024-12-02"},
				{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000004",
		},
		{
			name: "filing date tie within a period keeps first seen",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
				{"13F-HR/A", "0000000001-24-000002", "2024-06-30", "2024-08-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000001",
		},
		{
			name: "filing date tie across periods keeps first seen",
			rows: []filingRow{
				{"13F-HR", "0000000001-24-000005", "2024-09-30", "2024-11-14"},
				{"13F-HR", "0000000001-24-000006", "2024-06-30", "2024-11-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000005",
		},
		{
			name: "form match is case insensitive and ignores notices",
			rows: []filingRow{
				{"13F-NT", "0000000001-24-000007", "2024-12-31", "2025-02-14"},
				{"13f-hr", "0000000001-24-000008", "2024-09-30", "2024-11-14"},
			},
			wantOK:        true,
			wantAccession: "0000000001-24-000008",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := SelectLatest(recentOf(tt.rows...))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantAccession, ref.Accession)
			}
		})
	}
}

func TestSelectLatest_GroupWinnerHasMaxFilingDate(t *testing.T) {
	rows := []filingRow{
		{"13F-HR", "a-1", "2023-12-31", "2024-02-14"},
		{"13F-HR/A", "a-2", "2023-12-31", "2024-03-01"},
		{"13F-HR/A", "a-3", "2023-12-31", "2024-02-20"},
		{"13F-HR", "b-1", "2024-03-31", "2024-05-15"},
		{"13F-HR/A", "b-2", "2024-03-31", "2024-05-10"},
	}

	ref, ok := SelectLatest(recentOf(rows...))
	require.True(t, ok)
	assert.Equal(t, "b-1", ref.Accession)
	assert.Equal(t, "2024-03-31", ref.ReportDate)
	assert.Equal(t, "2024-05-15", ref.FilingDate)
}

func TestSelectLatest_RaggedColumns(t *testing.T) {
	recent := recentOf(
		filingRow{"13F-HR", "0000000001-24-000001", "2024-06-30", "2024-08-14"},
		filingRow{"13F-HR", "0000000001-24-000002", "2024-09-30", "2024-11-14"},
	)
	recent.FilingDate = recent.FilingDate[:1]

	ref, ok := SelectLatest(recent)
	require.True(t, ok)
	assert.Equal(t, "0000000001-24-000001", ref.Accession)
}

func TestSelectLatest_NormalizesAccession(t *testing.T) {
	ref, ok := SelectLatest(recentOf(filingRow{"13F-HR", "0000950123-24-011775", "2024-09-30", "2024-11-14"}))
	require.True(t, ok)
	assert.Equal(t, "0000950123-24-011775", ref.Accession)
	assert.Equal(t, "000095012324011775", ref.AccessionNo)
	assert.Equal(t, "13F-HR", ref.Form)
}

func TestResolveLatestFiling(t *testing.T) {
	subs := &edgar.Submissions{}
	subs.Filings.Recent = recentOf(filingRow{"13F-HR", "0000950123-24-011775", "2024-09-30", "2024-11-14"})

	resolver := NewResolver(&fakeSubmissions{subs: subs}, zerolog.Nop())

	ref, err := resolver.ResolveLatestFiling(context.Background(), "0001067983")
	require.NoError(t, err)
	assert.Equal(t, "0001067983", ref.CIK)
	assert.Equal(t, "1067983", ref.CIKNoLead)
	assert.Equal(t, "000095012324011775", ref.AccessionNo)
}

func TestResolveLatestFiling_NotFound(t *testing.T) {
	subs := &edgar.Submissions{}
	subs.Filings.Recent = recentOf(filingRow{"10-K", "x", "2024-06-30", "2024-08-01"})

	resolver := NewResolver(&fakeSubmissions{subs: subs}, zerolog.Nop())

	_, err := resolver.ResolveLatestFiling(context.Background(), "0000000042")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Contains(t, err.Error(), "0000000042")
}

func TestResolveLatestFiling_UpstreamError(t *testing.T) {
	upstream := &domain.UpstreamError{Service: "edgar", URL: "https://example.test", StatusCode: 503}
	resolver := NewResolver(&fakeSubmissions{err: upstream}, zerolog.Nop())

	_, err := resolver.ResolveLatestFiling(context.Background(), "0001067983")
	require.Error(t, err)

	var got *domain.UpstreamError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 503, got.StatusCode)
	assert.False(t, domain.IsNotFound(err))
}
