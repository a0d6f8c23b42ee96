package pmc

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

const idconvResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<pmcids status="ok">
	<request idtype="pmcid" dt="2024-01-01 00:00:00">
		<echo>ids=PMC123456%2C12345678%2CPMC999</echo>
	</request>
	<record requested-id="PMC123456" pmcid="PMC123456" doi="10.1/X">
		<versions><version pmcid="PMC123456.1" current="true"/></versions>
	</record>
	<record requested-id="12345678" pmcid="PMC777" pmid="12345678" doi="10.2/y"/>
	<record requested-id="PMC999" status="error" errmsg="invalid article id"/>
	<record requested-id="" status="error"/>
</pmcids>`

const oaPackageXML = `<?xml version="1.0"?>
<OA><responseDate>2024-01-01 00:00:00</responseDate>
<request id="PMC123456">https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi?id=PMC123456</request>
<records returned-count="1" total-count="1">
	<record id="PMC123456" citation="J Test. 2023" license="CC BY" retracted="no">
		<link format="tgz" updated="2023-01-01 00:00:00" href="ftp://ftp.ncbi.nlm.nih.gov/pub/pmc/oa_package/12/34/PMC123456.tar.gz"/>
	</record>
</records>
</OA>`

const oaPDFXML = `<OA><records returned-count="1" total-count="1">
	<record id="PMC123456">
		<link format="tgz" href="ftp://host/PMC123456.tar.gz"/>
		<link format="pdf" href="ftp://host/PMC123456.pdf"/>
	</record>
</records></OA>`

const oaNotOpenXML = `<OA><responseDate>2024-01-01</responseDate>
<error code="idIsNotOpenAccess">identifier 'PMC5' is not Open Access</error></OA>`

func newTestClient(url string) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Name:       "pmc",
		RateLimit:  1000,
		BurstSize:  10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{BaseURL: url, OABaseURL: url + "/oa.fcgi", Enabled: true}, httpClient)
}

func TestClient_ConvertIDs(t *testing.T) {
	t.Run("maps records and keeps failed requests", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "PMC123456,12345678,PMC999", r.URL.Query().Get("ids"))
			assert.Equal(t, "xml", r.URL.Query().Get("format"))
			assert.Equal(t, toolName, r.URL.Query().Get("tool"))
			w.Write([]byte(idconvResponseXML))
		}))
		defer server.Close()

		got, err := newTestClient(server.URL).ConvertIDs(context.Background(), []string{"PMC123456", "12345678", "PMC999"})
		require.NoError(t, err)

		assert.Equal(t, []domain.CandidateIDs{
			{SecondaryID: "PMC123456", DOI: "10.1/x"},
			{PrimaryID: "12345678", SecondaryID: "PMC777", DOI: "10.2/y"},
			{SecondaryID: "PMC999", Error: "invalid article id"},
		}, got)
	})

	t.Run("empty batch", func(t *testing.T) {
		got, err := newTestClient("http://localhost").ConvertIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("oversized batch", func(t *testing.T) {
		ids := make([]string, MaxBatchSize+1)
		_, err := newTestClient("http://localhost").ConvertIDs(context.Background(), ids)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("server error is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).ConvertIDs(context.Background(), []string{"1"})
		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})
}

func TestClient_LocateFullText(t *testing.T) {
	serve := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/oa.fcgi", r.URL.Path)
			w.Write([]byte(body))
		}))
	}

	t.Run("package link", func(t *testing.T) {
		server := serve(oaPackageXML)
		defer server.Close()

		link, err := newTestClient(server.URL).LocateFullText(context.Background(), domain.CandidateIDs{SecondaryID: "123456"})
		require.NoError(t, err)
		assert.Equal(t, "tgz", link.Format)
		assert.Equal(t, "ftp://ftp.ncbi.nlm.nih.gov/pub/pmc/oa_package/12/34/PMC123456.tar.gz", link.URL)
	})

	t.Run("pdf preferred", func(t *testing.T) {
		server := serve(oaPDFXML)
		defer server.Close()

		link, err := newTestClient(server.URL).LocateFullText(context.Background(), domain.CandidateIDs{SecondaryID: "PMC123456"})
		require.NoError(t, err)
		assert.Equal(t, "pdf", link.Format)
		assert.Equal(t, "ftp://host/PMC123456.pdf", link.URL)
	})

	t.Run("not open access", func(t *testing.T) {
		server := serve(oaNotOpenXML)
		defer server.Close()

		_, err := newTestClient(server.URL).LocateFullText(context.Background(), domain.CandidateIDs{SecondaryID: "PMC5"})
		assert.ErrorIs(t, err, domain.ErrLinkNotFound)
		assert.False(t, domain.IsTransient(err))
	})

	t.Run("no pmcid", func(t *testing.T) {
		_, err := newTestClient("http://localhost").LocateFullText(context.Background(), domain.CandidateIDs{DOI: "10.1/x"})
		assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	})
}

func TestClassifyID(t *testing.T) {
	assert.Equal(t, domain.CandidateIDs{SecondaryID: "PMC1"}, ClassifyID("pmc1"))
	assert.Equal(t, domain.CandidateIDs{DOI: "10.1/ab"}, ClassifyID("https://doi.org/10.1/AB"))
	assert.Equal(t, domain.CandidateIDs{PrimaryID: "42"}, ClassifyID(" 42 "))
	assert.Equal(t, domain.CandidateIDs{}, ClassifyID(""))
}
