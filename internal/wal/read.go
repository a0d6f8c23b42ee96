package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// ErrStop can be returned by a Scan callback to end the scan without error.
var ErrStop = errors.New("wal: stop scan")

// Scan calls fn for every complete line of path starting at line offset.
// lineNo is the zero-based line number, so lineNo+1 is the cursor after the
// line. A missing file has no lines.
func Scan(path string, offset int, fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	lineNo := 0
	for {
		line, err := readLine(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s line %d: %w", path, lineNo+1, err)
		}
		if lineNo >= offset {
			if err := fn(lineNo, line); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
		lineNo++
	}
}

// readLine returns the next newline-terminated line without its terminator.
// A trailing line without a newline is reported as io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		frag, err := r.ReadSlice('\n')
		sb.Write(frag)
		if sb.Len() > MaxLineCapacity {
			return "", fmt.Errorf("line exceeds %d bytes", MaxLineCapacity)
		}
		switch {
		case err == nil:
			return strings.TrimRight(sb.String(), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return "", err
		}
	}
}

// ReadLines returns up to limit complete lines of path starting at line
// offset. A limit of zero or less reads to the end.
func ReadLines(path string, offset, limit int) ([]string, error) {
	var lines []string
	err := Scan(path, offset, func(_ int, line string) error {
		lines = append(lines, line)
		if limit > 0 && len(lines) >= limit {
			return ErrStop
		}
		return nil
	})
	return lines, err
}

// CountLines returns the number of complete lines in path.
func CountLines(path string) (int, error) {
	n := 0
	err := Scan(path, 0, func(int, string) error {
		n++
		return nil
	})
	return n, err
}

// ReadJSON decodes up to limit JSON lines of path starting at line offset.
func ReadJSON[T any](path string, offset, limit int) ([]T, error) {
	var out []T
	err := Scan(path, offset, func(lineNo int, line string) error {
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			return fmt.Errorf("parse %s line %d: %w", path, lineNo+1, err)
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			return ErrStop
		}
		return nil
	})
	return out, err
}

// Rewrite atomically replaces path with lines.
func Rewrite(path string, lines []string) error {
	var sb strings.Builder
	for _, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return fmt.Errorf("wal: line contains a newline: %q", line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return WriteFileAtomic(path, []byte(sb.String()))
}

// WriteFileAtomic writes data to a temporary file in the directory of path,
// syncs it and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".ingest-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

// Align drops lines of path beyond the first want, which a crash between a
// log flush and the matching tracker checkpoint leaves behind. A log shorter
// than want wraps domain.ErrTrackerCorrupt.
func Align(path string, want int) error {
	have, err := CountLines(path)
	if err != nil {
		return err
	}
	switch {
	case have == want:
		return nil
	case have < want:
		return fmt.Errorf("%w: %s has %d lines, tracker recorded %d",
			domain.ErrTrackerCorrupt, path, have, want)
	}

	lines, err := ReadLines(path, 0, want)
	if err != nil {
		return err
	}
	return Rewrite(path, lines)
}
