package main

import (
	"fmt"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/config"
	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/metadata"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/papersources/crossref"
	"github.com/helixir/bibliographic-ingest/internal/papersources/datacite"
	"github.com/helixir/bibliographic-ingest/internal/papersources/govinfo"
	"github.com/helixir/bibliographic-ingest/internal/papersources/openalex"
	"github.com/helixir/bibliographic-ingest/internal/papersources/pmc"
	"github.com/helixir/bibliographic-ingest/internal/papersources/pubmed"
	"github.com/helixir/bibliographic-ingest/internal/pipeline"
)

// clients holds the provider clients of a run.
type clients struct {
	pubmed   *pubmed.Client
	pmc      *pmc.Client
	govinfo  *govinfo.Client
	registry *papersources.Registry
	builders *metadata.Builders
}

func newClients(cfg *config.Config, metrics *observability.Metrics) *clients {
	p := cfg.Providers
	opt := papersources.WithMetrics(metrics)

	c := &clients{
		pubmed: pubmed.New(pubmed.Config{
			BaseURL:    p.PubMed.BaseURL,
			APIKey:     p.PubMed.APIKey,
			Email:      p.PubMed.Email,
			Timeout:    p.PubMed.Timeout,
			RateLimit:  p.PubMed.RateLimit,
			MaxRetries: p.PubMed.MaxRetries,
			Enabled:    p.PubMed.Enabled,
		}, opt),
		pmc: pmc.New(pmc.Config{
			BaseURL:   p.PMC.BaseURL,
			OABaseURL: p.PMC.OABaseURL,
			APIKey:    p.PMC.APIKey,
			Email:     p.PMC.Email,
			Timeout:   p.PMC.Timeout,
			RateLimit: p.PMC.RateLimit,
			Enabled:   p.PMC.Enabled,
		}, opt),
		govinfo: govinfo.New(govinfo.Config{
			BaseURL:   p.GovInfo.BaseURL,
			APIKey:    p.GovInfo.APIKey,
			Timeout:   p.GovInfo.Timeout,
			RateLimit: p.GovInfo.RateLimit,
			Enabled:   p.GovInfo.Enabled,
		}, opt),
		registry: papersources.NewRegistry(),
		builders: metadata.NewBuilders(
			pubmed.Builder{},
			openalex.Builder{},
			crossref.Builder{},
			datacite.Builder{},
			govinfo.Builder{},
		),
	}

	c.registry.Register(c.pubmed)
	c.registry.Register(c.govinfo)
	c.registry.Register(openalex.New(openalex.Config{
		BaseURL:   p.OpenAlex.BaseURL,
		Email:     p.OpenAlex.Email,
		APIKey:    p.OpenAlex.APIKey,
		Timeout:   p.OpenAlex.Timeout,
		RateLimit: p.OpenAlex.RateLimit,
		Enabled:   p.OpenAlex.Enabled,
	}, opt))
	c.registry.Register(crossref.New(crossref.Config{
		BaseURL:   p.Crossref.BaseURL,
		Email:     p.Crossref.Email,
		APIKey:    p.Crossref.APIKey,
		Timeout:   p.Crossref.Timeout,
		RateLimit: p.Crossref.RateLimit,
		Enabled:   p.Crossref.Enabled,
	}, opt))
	c.registry.Register(datacite.New(datacite.Config{
		BaseURL:   p.DataCite.BaseURL,
		Timeout:   p.DataCite.Timeout,
		RateLimit: p.DataCite.RateLimit,
		Enabled:   p.DataCite.Enabled,
	}, opt))
	return c
}

// buildSource assembles the source selected by --source.
func buildSource(opts RunOptions, cfg *config.Config, c *clients, from, to *time.Time) (pipeline.Source, error) {
	switch opts.Source {
	case pipeline.SourcePubMed:
		params := papersources.SearchParams{
			Term:     cfg.Pipeline.AffiliationQuery,
			DateFrom: from,
			DateTo:   to,
		}
		return pipeline.PubMedSource(c.pubmed, c.pmc, c.pmc, params, cfg.Providers.PubMed.RequestDelay), nil

	case pipeline.SourceNSF:
		return pipeline.NSFSource(opts.InputFile), nil

	case pipeline.SourceGovInfo:
		if !cfg.Providers.GovInfo.Enabled {
			return pipeline.Source{}, fmt.Errorf("%w: providers.govinfo must be enabled", domain.ErrMissingConfig)
		}
		params := papersources.SearchParams{
			Term:     cfg.Pipeline.GovInfoCollection,
			DateFrom: from,
			DateTo:   to,
		}
		return pipeline.GovInfoSource(c.govinfo, opts.InputFile, params, cfg.Providers.GovInfo.RequestDelay), nil
	}
	return pipeline.Source{}, fmt.Errorf("unknown source %q", opts.Source)
}
