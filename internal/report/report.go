// Package report turns a run's outcome log into per-category CSV files, a
// zip bundle of them, and the summary handed to the notifier.
package report

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// Directory and archive names inside a run directory.
const (
	DirName     = "report"
	ArchiveName = "report.zip"
)

// DefaultRowCap is the number of sample rows per category kept in a summary.
const DefaultRowCap = 50

// Header is the column header of every category CSV.
var Header = []string{"pmid", "pmcid", "doi", "timestamp", "category", "message", "file_name", "work_id"}

// Sample is one outcome as shown in the notification body.
type Sample struct {
	IDs      string `json:"ids"`
	Message  string `json:"message,omitempty"`
	FileName string `json:"file_name,omitempty"`
	WorkID   string `json:"work_id,omitempty"`
}

// Summary is the digest of a run's outcomes.
type Summary struct {
	Counts    map[domain.Category]int      `json:"counts"`
	Samples   map[domain.Category][]Sample `json:"samples"`
	Truncated map[domain.Category]bool     `json:"truncated"`
	Total     int                          `json:"total"`
}

// Successes returns the number of outcomes that wrote to the repository.
func (s Summary) Successes() int {
	var n int
	for cat, count := range s.Counts {
		if cat.IsSuccess() {
			n += count
		}
	}
	return n
}

// Result lists the files written by Write.
type Result struct {
	Summary     Summary
	CSVPaths    []string
	ArchivePath string
	GeneratedAt time.Time
}

// Summarize counts outcomes per category and keeps up to rowCap samples of
// each; a category with more rows is marked truncated.
func Summarize(outcomes []domain.Outcome, rowCap int) Summary {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	s := Summary{
		Counts:    make(map[domain.Category]int),
		Samples:   make(map[domain.Category][]Sample),
		Truncated: make(map[domain.Category]bool),
	}
	for _, o := range outcomes {
		s.Counts[o.Category]++
		s.Total++
		if len(s.Samples[o.Category]) >= rowCap {
			s.Truncated[o.Category] = true
			continue
		}
		s.Samples[o.Category] = append(s.Samples[o.Category], Sample{
			IDs:      o.IDs.String(),
			Message:  o.Message,
			FileName: o.FileName,
			WorkID:   o.WorkID,
		})
	}
	return s
}

// Write groups outcomes by category into <dir>/report/<category>.csv, one
// file per category that has outcomes, bundles them into <dir>/report.zip
// and returns the summary. Existing report files are replaced.
func Write(dir string, outcomes []domain.Outcome, rowCap int) (*Result, error) {
	grouped := make(map[domain.Category][]domain.Outcome)
	for _, o := range outcomes {
		grouped[o.Category] = append(grouped[o.Category], o)
	}

	reportDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	result := &Result{
		Summary:     Summarize(outcomes, rowCap),
		ArchivePath: filepath.Join(dir, ArchiveName),
		GeneratedAt: time.Now().UTC(),
	}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	for _, cat := range domain.Categories() {
		rows := grouped[cat]
		if len(rows) == 0 {
			continue
		}

		data, err := encodeCSV(rows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cat, err)
		}
		name := string(cat) + ".csv"
		path := filepath.Join(reportDir, name)
		if err := wal.WriteFileAtomic(path, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		result.CSVPaths = append(result.CSVPaths, path)

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: result.GeneratedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := wal.WriteFileAtomic(result.ArchivePath, archive.Bytes()); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	return result, nil
}

func encodeCSV(outcomes []domain.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		record := []string{
			o.IDs.PrimaryID,
			o.IDs.SecondaryID,
			o.IDs.DOI,
			o.Timestamp.UTC().Format(time.RFC3339),
			string(o.Category),
			o.Message,
			o.FileName,
			o.WorkID,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
