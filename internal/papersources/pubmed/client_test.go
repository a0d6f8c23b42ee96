package pubmed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const esearchResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE eSearchResult PUBLIC "-//NLM//DTD esearch 20060628//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20060628/esearch.dtd">
<eSearchResult>
	<Count>5</Count>
	<RetMax>2</RetMax>
	<RetStart>0</RetStart>
	<IdList>
		<Id>12345678</Id>
		<Id>87654321</Id>
	</IdList>
</eSearchResult>`

const esearchPMCResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>1</Count>
	<RetMax>1</RetMax>
	<RetStart>0</RetStart>
	<IdList>
		<Id>123456</Id>
	</IdList>
</eSearchResult>`

const esearchPhraseNotFoundXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<Count>0</Count>
	<RetMax>0</RetMax>
	<RetStart>0</RetStart>
	<IdList>
	</IdList>
	<ErrorList>
		<PhraseNotFound>nonexistent_term_xyz</PhraseNotFound>
	</ErrorList>
</eSearchResult>`

const esearchErrorXML = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult>
	<ERROR>Invalid query</ERROR>
</eSearchResult>`

const efetchEmptyResponseXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
</PubmedArticleSet>`

func createTestClient(baseURL string, enabled bool) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Name:       domain.ProviderPubMed,
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{BaseURL: baseURL, Enabled: enabled, Email: "ops@example.edu"}, httpClient)
}

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := New(Config{Enabled: true})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		client := New(Config{BaseURL: "https://example.org/eutils/"})
		assert.Equal(t, "https://example.org/eutils", client.config.BaseURL)
	})
}

func TestClient_NameAndEnabled(t *testing.T) {
	client := createTestClient("http://localhost", true)
	assert.Equal(t, domain.ProviderPubMed, client.Name())
	assert.True(t, client.IsEnabled())
	assert.False(t, createTestClient("http://localhost", false).IsEnabled())
}

func TestClient_SearchIDs(t *testing.T) {
	t.Run("returns ids and total with paging parameters", func(t *testing.T) {
		var query map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/esearch.fcgi"))
			query = map[string]string{}
			for k := range r.URL.Query() {
				query[k] = r.URL.Query().Get(k)
			}
			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(esearchResponseXML))
		}))
		defer server.Close()

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

		page, err := createTestClient(server.URL, true).SearchIDs(context.Background(), papersources.SearchParams{
			Database: DatabasePubMed,
			Term:     AffiliationTerm("University of North Carolina"),
			DateFrom: &from,
			DateTo:   &to,
			Offset:   200,
			Limit:    2,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"12345678", "87654321"}, page.IDs)
		assert.Equal(t, 5, page.Total)

		assert.Equal(t, "pubmed", query["db"])
		assert.Equal(t, `"University of North Carolina"[Affiliation]`, query["term"])
		assert.Equal(t, "200", query["retstart"])
		assert.Equal(t, "2", query["retmax"])
		assert.Equal(t, "pdat", query["datetype"])
		assert.Equal(t, "2024/01/01", query["mindate"])
		assert.Equal(t, "2024/12/31", query["maxdate"])
		assert.Equal(t, "ops@example.edu", query["email"])
	})

	t.Run("prefixes pmc ids", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "pmc", r.URL.Query().Get("db"))
			w.Write([]byte(esearchPMCResponseXML))
		}))
		defer server.Close()

		page, err := createTestClient(server.URL, true).SearchIDs(context.Background(), papersources.SearchParams{
			Database: DatabasePMC,
			Term:     "x",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"PMC123456"}, page.IDs)
	})

	t.Run("phrase not found is an empty page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(esearchPhraseNotFoundXML))
		}))
		defer server.Close()

		page, err := createTestClient(server.URL, true).SearchIDs(context.Background(), papersources.SearchParams{Term: "nonexistent_term_xyz"})
		require.NoError(t, err)
		assert.Empty(t, page.IDs)
		assert.Zero(t, page.Total)
	})

	t.Run("error element is an api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(esearchErrorXML))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).SearchIDs(context.Background(), papersources.SearchParams{Term: "x"})
		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Contains(t, apiErr.Message, "Invalid query")
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad term"))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).SearchIDs(context.Background(), papersources.SearchParams{Term: "x"})
		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.False(t, domain.IsTransient(err))
	})

	t.Run("disabled client", func(t *testing.T) {
		_, err := createTestClient("http://localhost", false).SearchIDs(context.Background(), papersources.SearchParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})
}

func TestClient_FetchMetadata(t *testing.T) {
	t.Run("fetches by pmid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.True(t, strings.HasSuffix(r.URL.Path, "/efetch.fcgi"))
			assert.Equal(t, "12345678", r.URL.Query().Get("id"))
			assert.Equal(t, "xml", r.URL.Query().Get("retmode"))
			w.Write([]byte(efetchArticleXML))
		}))
		defer server.Close()

		raw, err := createTestClient(server.URL, true).FetchMetadata(context.Background(), domain.CandidateIDs{PrimaryID: "12345678"})
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderPubMed, raw.Provider)
		assert.Equal(t, "12345678", raw.IDs.PrimaryID)
		assert.Contains(t, string(raw.Payload), "<PubmedArticleSet>")
	})

	t.Run("resolves pmid from doi first", func(t *testing.T) {
		var terms []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
				terms = append(terms, r.URL.Query().Get("term"))
				w.Write([]byte(`<eSearchResult><Count>1</Count><IdList><Id>12345678</Id></IdList></eSearchResult>`))
			case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
				w.Write([]byte(efetchArticleXML))
			}
		}))
		defer server.Close()

		raw, err := createTestClient(server.URL, true).FetchMetadata(context.Background(), domain.CandidateIDs{
			DOI:         "10.1234/TEST.2023.001",
			SecondaryID: "PMC9876543",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{`"10.1234/test.2023.001"[doi]`}, terms)
		assert.Equal(t, "12345678", raw.IDs.PrimaryID)
		assert.Equal(t, "PMC9876543", raw.IDs.SecondaryID)
	})

	t.Run("falls back to pmcid when doi is unknown", func(t *testing.T) {
		var terms []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
				term := r.URL.Query().Get("term")
				terms = append(terms, term)
				if strings.HasSuffix(term, "[pmcid]") {
					w.Write([]byte(`<eSearchResult><Count>1</Count><IdList><Id>12345678</Id></IdList></eSearchResult>`))
					return
				}
				w.Write([]byte(`<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`))
			case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
				w.Write([]byte(efetchArticleXML))
			}
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).FetchMetadata(context.Background(), domain.CandidateIDs{
			DOI:         "10.9/unknown",
			SecondaryID: "PMC9876543",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{`"10.9/unknown"[doi]`, "PMC9876543[pmcid]"}, terms)
	})

	t.Run("no identifiers", func(t *testing.T) {
		_, err := createTestClient("http://localhost", true).FetchMetadata(context.Background(), domain.CandidateIDs{})
		assert.ErrorIs(t, err, domain.ErrNoIdentifier)
	})

	t.Run("empty article set is not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(efetchEmptyResponseXML))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).FetchMetadata(context.Background(), domain.CandidateIDs{PrimaryID: "1"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAffiliationTerm(t *testing.T) {
	assert.Equal(t, `"UNC"[Affiliation]`, AffiliationTerm("UNC"))
	assert.Equal(t, `"UNC"[Affiliation]`, AffiliationTerm(`"UNC"`))
	assert.Equal(t, `UNC[ad] OR Chapel Hill[ad]`, AffiliationTerm(`UNC[ad] OR Chapel Hill[ad]`))
	assert.Empty(t, AffiliationTerm("  "))
}
