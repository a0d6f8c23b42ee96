// Package wal implements the append-only line files a run writes between
// stages: raw identifiers, reconciled identifier sets and outcomes.
//
// Writers buffer lines and make them durable on Flush. Readers address lines
// by a zero-based line cursor and ignore a trailing line without a newline,
// which is what a crash in the middle of a write leaves behind. Open
// truncates such a line before appending.
package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MaxLineCapacity is the longest line readers accept.
const MaxLineCapacity = 1024 * 1024

// ErrClosed is returned by writes to a closed Writer.
var ErrClosed = errors.New("wal: writer closed")

// Writer appends lines to a file.
type Writer struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	buf     *bufio.Writer
	pending int
	closed  bool
}

// Open opens path for appending, creating it and its directory when missing.
// A partial trailing line is truncated first.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent for %s: %w", path, err)
	}
	if err := repairTail(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for append: %w", path, err)
	}
	return &Writer{
		path: path,
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// Pending returns the number of lines written since the last Flush.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// WriteLine buffers one line. The line must not contain a newline.
func (w *Writer) WriteLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("wal: line contains a newline: %q", line)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.buf.WriteString(line); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.pending++
	return nil
}

// WriteJSON buffers v encoded as one JSON line.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode line for %s: %w", w.path, err)
	}
	return w.WriteLine(string(data))
}

// Flush writes buffered lines and syncs the file to stable storage.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	w.pending = 0
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.flushLocked()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", w.path, closeErr)
	}
	return nil
}

// repairTail truncates bytes after the last newline of path.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	// Scan backwards in chunks for the last newline.
	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep := start + int64(i) + 1
			if keep == size {
				return nil
			}
			return truncate(f, path, keep)
		}
		end = start
	}
	return truncate(f, path, 0)
}

func truncate(f *os.File, path string, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("truncate partial line of %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return nil
}
