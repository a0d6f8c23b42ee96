package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
	"github.com/helixir/bibliographic-ingest/internal/tracker"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

type fakeSearcher struct {
	ids    []string
	failAt map[int]error
	calls  []papersources.SearchParams
}

func (f *fakeSearcher) SearchIDs(_ context.Context, params papersources.SearchParams) (*papersources.SearchPage, error) {
	f.calls = append(f.calls, params)
	if err, ok := f.failAt[params.Offset]; ok {
		return nil, err
	}
	end := params.Offset + params.Limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	var page []string
	if params.Offset < len(f.ids) {
		page = f.ids[params.Offset:end]
	}
	return &papersources.SearchPage{IDs: page, Total: len(f.ids)}, nil
}

func newTestRetriever(t *testing.T, dir string, mode tracker.Mode) (*Retriever, *tracker.Tracker, *int) {
	t.Helper()
	tr, err := tracker.Open(dir, tracker.RunInfo{Source: "pubmed"}, mode)
	require.NoError(t, err)

	r := New(tr, zerolog.Nop(), nil)
	sleeps := 0
	r.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	return r, tr, &sleeps
}

func TestRetriever_Run(t *testing.T) {
	dir := t.TempDir()
	r, tr, sleeps := newTestRetriever(t, dir, tracker.ModeNew)
	searcher := &fakeSearcher{ids: []string{"PMC1", "PMC2", "PMC3", "PMC4", "PMC5"}}
	out := filepath.Join(dir, "pmc_ids.txt")

	res, err := r.Run(context.Background(), Stream{
		Name:       "pmc",
		Searcher:   searcher,
		Params:     papersources.SearchParams{Database: "pmc", Term: "x"},
		PageSize:   2,
		Delay:      time.Second,
		OutputPath: out,
	})
	require.NoError(t, err)

	assert.True(t, res.Completed)
	assert.Equal(t, 5, res.Retrieved)
	assert.Equal(t, 5, res.Total)
	require.Len(t, searcher.calls, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{searcher.calls[0].Offset, searcher.calls[1].Offset, searcher.calls[2].Offset})
	assert.Equal(t, "pmc", searcher.calls[1].Database)
	assert.Equal(t, 2, *sleeps, "the delay separates consecutive requests")

	lines, err := wal.ReadLines(out, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, searcher.ids, lines)

	assert.True(t, tr.IsCompleted("retrieve_pmc"))
	assert.Equal(t, 5, tr.Cursor("retrieve_pmc"))
	assert.Equal(t, 5, tr.Counter("retrieve_pmc", CounterLines))
}

func TestRetriever_HaltAndResume(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pubmed_ids.txt")
	ids := []string{"1", "2", "3", "4", "5"}

	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	failing := &fakeSearcher{ids: ids, failAt: map[int]error{
		2: domain.NewExternalAPIError("PubMed", 500, "server error", nil),
	}}

	res, err := r.Run(context.Background(), Stream{Name: "pubmed", Searcher: failing, PageSize: 2, OutputPath: out})
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "retrieve_pubmed", stageErr.Stage)
	assert.Equal(t, 2, stageErr.Cursor)
	assert.False(t, res.Completed)
	assert.Equal(t, tracker.StatusInProgress, tr.Status("retrieve_pubmed"))
	assert.Equal(t, 2, tr.Cursor("retrieve_pubmed"))

	resumed, _, _ := newTestRetriever(t, dir, tracker.ModeResume)
	healthy := &fakeSearcher{ids: ids}
	res, err = resumed.Run(context.Background(), Stream{Name: "pubmed", Searcher: healthy, PageSize: 2, OutputPath: out})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 2, healthy.calls[0].Offset)

	lines, err := wal.ReadLines(out, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ids, lines, "no id is written twice")
}

func TestRetriever_DropsLinesAfterLastCheckpoint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pubmed_ids.txt")
	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	require.NoError(t, tr.Checkpoint("retrieve_pubmed", 2, map[string]int{CounterLines: 2}))
	require.NoError(t, wal.Rewrite(out, []string{"1", "2", "3"}))

	_, err := r.Run(context.Background(), Stream{
		Name:       "pubmed",
		Searcher:   &fakeSearcher{ids: []string{"1", "2", "3", "4"}},
		PageSize:   10,
		OutputPath: out,
	})
	require.NoError(t, err)

	lines, err := wal.ReadLines(out, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, lines)
}

func TestRetriever_ShortLogIsFatal(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pubmed_ids.txt")
	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	require.NoError(t, tr.Checkpoint("retrieve_pubmed", 4, map[string]int{CounterLines: 4}))
	require.NoError(t, wal.Rewrite(out, []string{"1"}))

	_, err := r.Run(context.Background(), Stream{Name: "pubmed", Searcher: &fakeSearcher{}, OutputPath: out})
	assert.ErrorIs(t, err, domain.ErrTrackerCorrupt)
}

func TestRetriever_SkipsCompletedStage(t *testing.T) {
	dir := t.TempDir()
	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	require.NoError(t, tr.Complete("retrieve_pmc"))
	searcher := &fakeSearcher{ids: []string{"PMC1"}}

	res, err := r.Run(context.Background(), Stream{Name: "pmc", Searcher: searcher, OutputPath: filepath.Join(dir, "pmc_ids.txt")})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Empty(t, searcher.calls)
}

func TestRetriever_EmptyResult(t *testing.T) {
	dir := t.TempDir()
	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)

	res, err := r.Run(context.Background(), Stream{Name: "pmc", Searcher: &fakeSearcher{}, OutputPath: filepath.Join(dir, "pmc_ids.txt")})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Zero(t, res.Retrieved)
	assert.True(t, tr.IsCompleted("retrieve_pmc"))
}

func TestRetriever_RunList(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "nsf.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"DOI,Title,PDF\n"+
			"10.1000/A,First,files/a.pdf\n"+
			",No identifier,\n"+
			"https://doi.org/10.1000/b,Second,/staged/b.pdf\n"+
			"10.1000/c,Third,\n"), 0o644))
	out := filepath.Join(dir, "nsf_reconciled.jsonl")

	r, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	res, err := r.RunList(context.Background(), ListStream{Name: "nsf", InputPath: input, OutputPath: out, BatchSize: 2})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 3, res.Retrieved)
	assert.Equal(t, 4, tr.Cursor("retrieve_nsf"))
	assert.Equal(t, 1, tr.Counter("retrieve_nsf", CounterRowsSkipped))

	got, err := wal.ReadJSON[domain.Candidate](out, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.Candidate{
		{CandidateIDs: domain.CandidateIDs{DOI: "10.1000/a"}, FilePath: filepath.Join(dir, "files", "a.pdf")},
		{CandidateIDs: domain.CandidateIDs{DOI: "10.1000/b"}, FilePath: "/staged/b.pdf"},
		{CandidateIDs: domain.CandidateIDs{DOI: "10.1000/c"}},
	}, got)
}

func TestRetriever_RunListResumes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "govinfo.csv")
	require.NoError(t, os.WriteFile(input, []byte("package_id\nGAOREPORTS-1\nGAOREPORTS-2\nGAOREPORTS-3\n"), 0o644))
	out := filepath.Join(dir, "govinfo_reconciled.jsonl")

	_, tr, _ := newTestRetriever(t, dir, tracker.ModeNew)
	require.NoError(t, wal.Rewrite(out, []string{`{"pmid":"GAOREPORTS-1"}`}))
	require.NoError(t, tr.Checkpoint("retrieve_govinfo", 1, map[string]int{CounterLines: 1}))

	r, _, _ := newTestRetriever(t, dir, tracker.ModeResume)
	_, err := r.RunList(context.Background(), ListStream{Name: "govinfo", InputPath: input, OutputPath: out})
	require.NoError(t, err)

	got, err := wal.ReadJSON[domain.Candidate](out, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "GAOREPORTS-3", got[2].PrimaryID)
}

func TestRetriever_RunListRejectsUnknownHeader(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(input, []byte("title\nx\n"), 0o644))

	r, _, _ := newTestRetriever(t, dir, tracker.ModeNew)
	_, err := r.RunList(context.Background(), ListStream{Name: "nsf", InputPath: input, OutputPath: filepath.Join(dir, "o.jsonl")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
