package retrieval

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// DefaultListBatchSize is the number of input rows between checkpoints.
const DefaultListBatchSize = 500

// CounterRowsSkipped counts input rows without any identifier.
const CounterRowsSkipped = "rows_skipped"

// columnAliases maps accepted header names to identifier fields.
var columnAliases = map[string]string{
	"doi":        "doi",
	"pmid":       "pmid",
	"pmcid":      "pmcid",
	"package_id": "pmid",
	"packageid":  "pmid",
	"id":         "pmid",
	"file":       "file",
	"pdf":        "file",
	"pdf_path":   "file",
	"file_path":  "file",
}

// ListStream is an identifier list supplied as a CSV file with a header row.
// Recognized columns are doi, pmid, pmcid, package_id and a file column
// naming a staged full-text file; other columns are ignored.
type ListStream struct {
	Name       string
	InputPath  string
	OutputPath string
	BatchSize  int
}

// RunList copies the rows of a list stream into a reconciled identifier log
// as domain.Candidate JSON lines. The cursor counts input rows consumed.
// Relative file paths are resolved against the input file's directory.
func (r *Retriever) RunList(ctx context.Context, stream ListStream) (*Result, error) {
	stage := StageName(stream.Name)
	logger := observability.WithStageContext(r.logger, stage, stream.Name)
	result := &Result{Stream: stream.Name}

	if r.tracker.IsCompleted(stage) {
		logger.Info().Msg("stage already completed, skipping")
		result.Completed = true
		result.Cursor = r.tracker.Cursor(stage)
		return result, nil
	}

	in, err := os.Open(stream.InputPath)
	if err != nil {
		return result, fmt.Errorf("open input list: %w", err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return result, fmt.Errorf("read input list header: %w", err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return result, err
	}

	if err := wal.Align(stream.OutputPath, r.tracker.Counter(stage, CounterLines)); err != nil {
		return result, err
	}
	w, err := wal.Open(stream.OutputPath)
	if err != nil {
		return result, err
	}
	defer w.Close()

	if err := r.tracker.Begin(stage); err != nil {
		return result, err
	}

	batchSize := stream.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultListBatchSize
	}
	cursor := r.tracker.Cursor(stage)
	baseDir := filepath.Dir(stream.InputPath)

	row := 0
	written, skipped := 0, 0
	checkpoint := func() error {
		if err := w.Flush(); err != nil {
			return err
		}
		if err := r.tracker.Checkpoint(stage, row, map[string]int{
			CounterLines:       written,
			CounterRowsSkipped: skipped,
		}); err != nil {
			return err
		}
		result.Retrieved += written
		result.Cursor = row
		r.metrics.RecordIdentifiersRetrieved(stream.Name, written)
		written, skipped = 0, 0
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read input list row %d: %w", row+1, err)
		}
		row++
		if row <= cursor {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		candidate := columns.candidate(record, baseDir)
		if candidate.Empty() {
			skipped++
			logger.Warn().Int("row", row).Msg("input row has no identifier, skipping")
		} else {
			if err := w.WriteJSON(candidate); err != nil {
				return result, err
			}
			written++
		}

		if (row-cursor)%batchSize == 0 {
			if err := checkpoint(); err != nil {
				return result, err
			}
		}
	}

	if row > cursor {
		if err := checkpoint(); err != nil {
			return result, err
		}
	}
	result.Total = row
	if err := r.tracker.SetTotal(stage, row); err != nil {
		return result, err
	}
	if err := r.tracker.Complete(stage); err != nil {
		return result, err
	}
	result.Completed = true

	logger.Info().
		Int("rows", row).
		Int("retrieved", result.Retrieved).
		Msg("identifier list loaded")
	return result, nil
}

type columnMap map[string]int

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := columnAliases[key]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	_, hasDOI := cols["doi"]
	_, hasPMID := cols["pmid"]
	_, hasPMCID := cols["pmcid"]
	if !hasDOI && !hasPMID && !hasPMCID {
		return nil, domain.NewValidationError("input_file", "header has no identifier column (doi, pmid, pmcid or package_id)")
	}
	return cols, nil
}

func (c columnMap) value(record []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columnMap) candidate(record []string, baseDir string) domain.Candidate {
	cand := domain.Candidate{
		CandidateIDs: domain.CandidateIDs{
			PrimaryID:   c.value(record, "pmid"),
			SecondaryID: c.value(record, "pmcid"),
			DOI:         c.value(record, "doi"),
		}.Normalize(),
	}
	if path := c.value(record, "file"); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		cand.FilePath = path
	}
	return cand
}
