package datacite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const doiJSON = `{
	"data": {
		"id": "10.5061/dryad.abc",
		"type": "dois",
		"attributes": {
			"doi": "10.5061/DRYAD.ABC",
			"titles": [{"title": "Subtitle", "titleType": "Subtitle"}, {"title": "Field data for river otters"}],
			"creators": [
				{"name": "Otter, River", "nameType": "Personal", "givenName": "River", "familyName": "Otter",
				 "affiliation": [{"name": "University of North Carolina at Chapel Hill"}],
				 "nameIdentifiers": [{"nameIdentifier": "0000-0002-0000-0002", "nameIdentifierScheme": "ORCID"}]},
				{"name": "Otter Survey Group", "nameType": "Organizational", "affiliation": []}
			],
			"publisher": "Dryad",
			"publicationYear": 2022,
			"dates": [{"date": "2021-11-01", "dateType": "Collected"}, {"date": "2022-03", "dateType": "Issued"}],
			"descriptions": [{"description": "Methods text", "descriptionType": "Methods"}, {"description": "<p>Otter counts.</p>", "descriptionType": "Abstract"}],
			"subjects": [{"subject": "Ecology"}, {"subject": "Ecology"}],
			"fundingReferences": [{"funderName": "National Science Foundation", "awardNumber": "DEB-1"}],
			"container": {"title": "Dryad Collection"}
		}
	}
}`

func newTestClient(url string) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Name:       domain.ProviderDataCite,
		RateLimit:  1000,
		BurstSize:  10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{BaseURL: url, Enabled: true}, httpClient)
}

func TestClient_FetchMetadata(t *testing.T) {
	t.Run("fetches by doi with affiliation objects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dois/10.5061/dryad.abc", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("affiliation"))
			w.Write([]byte(doiJSON))
		}))
		defer server.Close()

		raw, err := newTestClient(server.URL).FetchMetadata(context.Background(), domain.CandidateIDs{DOI: "10.5061/DRYAD.ABC"})
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderDataCite, raw.Provider)
	})

	t.Run("requires a doi", func(t *testing.T) {
		_, err := newTestClient("http://localhost").FetchMetadata(context.Background(), domain.CandidateIDs{SecondaryID: "PMC1"})
		assert.ErrorIs(t, err, domain.ErrNoIdentifier)
	})

	t.Run("404 is not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).FetchMetadata(context.Background(), domain.CandidateIDs{DOI: "10.1/none"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBuilder_Build(t *testing.T) {
	meta, err := Builder{}.Build(&papersources.RawRecord{Payload: []byte(doiJSON)})
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderDataCite, meta.SourceProvider)
	assert.Equal(t, "Field data for river otters", meta.Title)
	assert.Equal(t, "Otter counts.", meta.Abstract)
	assert.Equal(t, "2022-03", meta.DateIssued)
	assert.Equal(t, "Dryad", meta.Publisher)
	assert.Equal(t, "Dryad Collection", meta.Journal.Title)
	assert.Equal(t, []string{"Ecology"}, meta.Keywords)
	assert.Equal(t, []string{"National Science Foundation"}, meta.Funders)
	assert.Equal(t, "10.5061/dryad.abc", meta.Identifiers.DOI)

	require.Len(t, meta.Authors, 2)
	assert.Equal(t, "River Otter", meta.Authors[0].Name)
	assert.Equal(t, "https://orcid.org/0000-0002-0000-0002", meta.Authors[0].ORCID)
	assert.Equal(t, []string{"University of North Carolina at Chapel Hill"}, meta.Authors[0].Affiliations)
	assert.Equal(t, "Otter Survey Group", meta.Authors[1].Name)
}

func TestDateIssued_FallsBackToYear(t *testing.T) {
	assert.Equal(t, "2019", dateIssued(Attributes{PublicationYear: 2019}))
	assert.Equal(t, "2019-05-06", dateIssued(Attributes{Dates: []Date{{Date: "2019-05-06", DateType: "Issued"}}}))
	assert.Equal(t, "", dateIssued(Attributes{}))
}
