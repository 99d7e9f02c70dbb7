package filings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/thirteenf/internal/clients/edgar"
	"github.com/aristath/thirteenf/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	manifest    []string
	manifestErr error
	existing    map[string]bool
	probed      []string
}

func (f *fakeArchive) FilingBaseURL(cikNoLead, accessionNo string) string {
	return "https://archive.test/" + cikNoLead + "/" + accessionNo
}

func (f *fakeArchive) GetFileManifest(_ context.Context, _, _ string) ([]string, error) {
	return f.manifest, f.manifestErr
}

func (f *fakeArchive) Exists(_ context.Context, url string) bool {
	f.probed = append(f.probed, url)
	return f.existing[url]
}

func TestMatchManifest(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		want   string
		wantOK bool
	}{
		{
			name:   "infotable wins over earlier generic file",
			files:  []string{"primary_doc.xml", "0001-13F.xml", "infotable.xml"},
			want:   "infotable.xml",
			wantOK: true,
		},
		{
			name:   "info.xml matches first pattern",
			files:  []string{"form13f.xml", "INFO.XML"},
			want:   "INFO.XML",
			wantOK: true,
		},
		{
			name:   "form13fInfoTable matches first pattern",
			files:  []string{"form13fInfoTable.xml"},
			want:   "form13fInfoTable.xml",
			wantOK: true,
		},
		{
			name:   "13f info table with separators",
			files:  []string{"random.xml", "13F_Info_Table_Q3.xml"},
			want:   "13F_Info_Table_Q3.xml",
			wantOK: true,
		},
		{
			name:   "form13f prefix",
			files:  []string{"report.xml", "form13f_2024.xml"},
			want:   "form13f_2024.xml",
			wantOK: true,
		},
		{
			name:   "any name containing 13f",
			files:  []string{"report.xml", "acme-13F-q3.xml"},
			want:   "acme-13F-q3.xml",
			wantOK: true,
		},
		{
			name:   "numeric sequence file",
			files:  []string{"primary_doc.xml", "46994.xml"},
			want:   "46994.xml",
			wantOK: true,
		},
		{
			name:   "13f name beats numeric",
			files:  []string{"46994.xml", "x13fy.xml"},
			want:   "x13fy.xml",
			wantOK: true,
		},
		{
			name:   "non xml files ignored",
			files:  []string{"infotable.html", "13f.txt", "0001.htm"},
			wantOK: false,
		},
		{
			name:   "empty manifest",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchManifest(tt.files)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocateInfoTable_FromManifest(t *testing.T) {
	archive := &fakeArchive{manifest: []string{"primary_doc.xml", "46994.xml"}}
	locator := NewLocator(archive, zerolog.Nop())

	url, err := locator.LocateInfoTable(context.Background(), "1067983", "000095012324011775")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.test/1067983/000095012324011775/46994.xml", url)
	assert.Empty(t, archive.probed)
}

func TestLocateInfoTable_ProbesWhenManifestMissing(t *testing.T) {
	archive := &fakeArchive{
		manifestErr: errors.New("404"),
		existing: map[string]bool{
			"https://archive.test/1/2/infotable.xml": true,
		},
	}
	locator := NewLocator(archive, zerolog.Nop())

	url, err := locator.LocateInfoTable(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.test/1/2/infotable.xml", url)
	assert.Equal(t, []string{
		"https://archive.test/1/2/primary_doc.xml",
		"https://archive.test/1/2/infotable.xml",
	}, archive.probed)
}

func TestLocateInfoTable_ProbesWhenManifestHasNoMatch(t *testing.T) {
	archive := &fakeArchive{
		manifest: []string{"cover.htm"},
		existing: map[string]bool{"https://archive.test/1/2/primary_doc.xml": true},
	}
	locator := NewLocator(archive, zerolog.Nop())

	url, err := locator.LocateInfoTable(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.test/1/2/primary_doc.xml", url)
}

func TestLocateInfoTable_Exhausted(t *testing.T) {
	archive := &fakeArchive{manifestErr: errors.New("gone")}
	locator := NewLocator(archive, zerolog.Nop())

	_, err := locator.LocateInfoTable(context.Background(), "1", "2")
	require.Error(t, err)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"index.json", "primary_doc.xml", "infotable.xml", "form13fInfoTable.xml"}, nf.Attempted)
	assert.False(t, domain.IsUpstream(err))
}

func TestLocateInfoTable_CancelledContextIsNotNotFound(t *testing.T) {
	archive := &fakeArchive{manifestErr: errors.New("gone")}
	locator := NewLocator(archive, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locator.LocateInfoTable(ctx, "1", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsNotFound(err))
}

func TestLocateInfoTable_AgainstEDGARClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Archives/1/000000000124000001/index.json":
			_, _ = w.Write([]byte(`{"directory":{"item":[{"name":"cover.htm"}]}}`))
		case "/Archives/1/000000000124000001/form13fInfoTable.xml":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := edgar.NewClient(edgar.Config{
		Timeout:         time.Second,
		ArchivesBaseURL: server.URL + "/Archives",
	}, nil, zerolog.Nop())
	locator := NewLocator(client, zerolog.Nop())

	url, err := locator.LocateInfoTable(context.Background(), "1", "000000000124000001")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/Archives/1/000000000124000001/form13fInfoTable.xml", url)
}
