package report

import (
	"archive/zip"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

func outcome(pmid string, cat domain.Category, msg string) domain.Outcome {
	o := domain.NewOutcome(domain.CandidateIDs{PrimaryID: pmid}, cat, msg)
	o.Timestamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return o
}

func TestSummarize(t *testing.T) {
	outcomes := []domain.Outcome{
		outcome("1", domain.CategoryIngestedAndAttached, "").WithWork("w1").WithFile("a.pdf"),
		outcome("2", domain.CategoryFailed, "metadata: no provider"),
		outcome("3", domain.CategoryFailed, "attach: timeout"),
		outcome("4", domain.CategoryFailed, "create: boom"),
		outcome("5", domain.CategorySkipped, ""),
		outcome("6", domain.CategoryAttached, "").WithWork("w0"),
	}

	s := Summarize(outcomes, 2)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.Counts[domain.CategoryFailed])
	assert.Equal(t, 1, s.Counts[domain.CategoryIngestedAndAttached])
	assert.Len(t, s.Samples[domain.CategoryFailed], 2)
	assert.True(t, s.Truncated[domain.CategoryFailed])
	assert.False(t, s.Truncated[domain.CategorySkipped])
	assert.Equal(t, Sample{IDs: "PMID:1", FileName: "a.pdf", WorkID: "w1"}, s.Samples[domain.CategoryIngestedAndAttached][0])
	assert.Equal(t, 2, s.Successes())
}

func TestSummarize_DefaultCap(t *testing.T) {
	var outcomes []domain.Outcome
	for i := 0; i < DefaultRowCap+1; i++ {
		outcomes = append(outcomes, outcome("x", domain.CategorySkipped, ""))
	}
	s := Summarize(outcomes, 0)
	assert.Len(t, s.Samples[domain.CategorySkipped], DefaultRowCap)
	assert.True(t, s.Truncated[domain.CategorySkipped])
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	outcomes := []domain.Outcome{
		outcome("1", domain.CategoryIngestedAndAttached, "").WithWork("w1").WithFile("a.pdf"),
		outcome("2", domain.CategoryFailed, `metadata: "quoted", with comma`),
		outcome("3", domain.CategoryFailed, "attach: timeout"),
	}

	result, err := Write(dir, outcomes, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, []string{
		filepath.Join(dir, DirName, "successfully_ingested_and_attached.csv"),
		filepath.Join(dir, DirName, "failed.csv"),
	}, result.CSVPaths)

	f, err := os.Open(filepath.Join(dir, DirName, "failed.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"2", "", "", "2024-05-01T12:00:00Z", "failed", `metadata: "quoted", with comma`, "", ""}, records[1])

	zr, err := zip.OpenReader(result.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"successfully_ingested_and_attached.csv", "failed.csv"}, names)
}

func TestWrite_NoOutcomes(t *testing.T) {
	dir := t.TempDir()
	result, err := Write(dir, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, result.CSVPaths)
	assert.Zero(t, result.Summary.Total)
	_, err = os.Stat(result.ArchivePath)
	assert.NoError(t, err)
}
