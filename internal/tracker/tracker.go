// Package tracker persists the progress of a run so that a restarted run
// continues where the previous one stopped.
//
// The state lives in a single JSON file in the run directory and is
// rewritten atomically after every mutation. Stages move from not_started
// to in_progress to completed; there is no failed state. A stage that
// halts stays in_progress at its last cursor.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/observability"
	"github.com/helixir/bibliographic-ingest/internal/wal"
)

// FileName is the name of the progress file inside a run directory.
const FileName = "progress.json"

// Status is the lifecycle state of a stage.
type Status string

// Stage statuses.
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Mode selects whether Open starts a new run or resumes an existing one.
type Mode string

// Run modes.
const (
	ModeNew    Mode = "new"
	ModeResume Mode = "resume"
)

// ErrRunExists is returned when a new run targets a directory that already
// holds a progress file.
var ErrRunExists = errors.New("run directory already holds a progress file")

// ErrNoRun is returned when resuming a directory without a progress file.
var ErrNoRun = errors.New("run directory holds no progress file")

// DateRange bounds the publication dates a run retrieves, as YYYY-MM-DD.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// RunInfo describes the run parameters recorded when a run starts.
type RunInfo struct {
	Source    string
	DateRange DateRange
	AdminSet  string
	Depositor string
}

// StageState is the persisted state of one stage.
type StageState struct {
	Status    Status         `json:"status"`
	Cursor    int            `json:"cursor"`
	Total     int            `json:"total,omitempty"`
	Counters  map[string]int `json:"counters,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Progress is the job progress state of one run directory.
type Progress struct {
	RunID            string                 `json:"run_id"`
	StartTime        time.Time              `json:"start_time"`
	RestartTime      *time.Time             `json:"restart_time,omitempty"`
	Source           string                 `json:"source"`
	DateRange        DateRange              `json:"date_range"`
	AdminSet         string                 `json:"admin_set"`
	Depositor        string                 `json:"depositor"`
	OutputPaths      map[string]string      `json:"output_paths"`
	Stages           map[string]*StageState `json:"stages"`
	DedupCompleted   bool                   `json:"dedup_completed"`
	NotificationSent bool                   `json:"notification_sent"`
}

// StageNames returns the names of the recorded stages, sorted.
func (p *Progress) StageNames() []string {
	names := make([]string, 0, len(p.Stages))
	for name := range p.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMetrics reports cursors and stage completions to m.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker owns the progress file of one run directory. It assumes no other
// process writes the same directory.
type Tracker struct {
	mu       sync.Mutex
	path     string
	progress Progress
	metrics  *observability.Metrics
	now      func() time.Time
}

// Path returns the progress file path for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Open creates or loads the progress file of dir.
//
// In ModeNew the directory must not hold a progress file yet. In ModeResume
// the file must exist; its RestartTime is set and a non-empty info.Source
// must match the recorded source. An unreadable file wraps
// domain.ErrTrackerCorrupt.
func Open(dir string, info RunInfo, mode Mode, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		path: Path(dir),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}

	switch mode {
	case ModeNew:
		if _, err := os.Stat(t.path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, t.path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", t.path, err)
		}
		t.progress = Progress{
			RunID:       uuid.NewString(),
			StartTime:   t.now(),
			Source:      info.Source,
			DateRange:   info.DateRange,
			AdminSet:    info.AdminSet,
			Depositor:   info.Depositor,
			OutputPaths: map[string]string{},
			Stages:      map[string]*StageState{},
		}

	case ModeResume:
		p, err := Load(dir)
		if err != nil {
			return nil, err
		}
		if info.Source != "" && p.Source != info.Source {
			return nil, domain.NewValidationError("source",
				fmt.Sprintf("run directory belongs to source %q, not %q", p.Source, info.Source))
		}
		restart := t.now()
		p.RestartTime = &restart
		t.progress = *p

	default:
		return nil, domain.NewValidationError("mode", fmt.Sprintf("unknown mode %q", mode))
	}

	if err := t.checkpoint(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads the progress file of dir without taking ownership of it.
func Load(dir string) (*Progress, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrTrackerCorrupt, path, err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrTrackerCorrupt, path, err)
	}
	if p.RunID == "" {
		return nil, fmt.Errorf("%w: %s has no run id", domain.ErrTrackerCorrupt, path)
	}
	if p.Stages == nil {
		p.Stages = map[string]*StageState{}
	}
	if p.OutputPaths == nil {
		p.OutputPaths = map[string]string{}
	}
	for name, st := range p.Stages {
		if st == nil {
			return nil, fmt.Errorf("%w: stage %s is null", domain.ErrTrackerCorrupt, name)
		}
	}
	return &p, nil
}

// Path returns the progress file path.
func (t *Tracker) Path() string {
	return t.path
}

// RunID returns the run id.
func (t *Tracker) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.RunID
}

// Snapshot returns a deep copy of the current progress.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.progress
	p.OutputPaths = make(map[string]string, len(t.progress.OutputPaths))
	for k, v := range t.progress.OutputPaths {
		p.OutputPaths[k] = v
	}
	p.Stages = make(map[string]*StageState, len(t.progress.Stages))
	for name, st := range t.progress.Stages {
		cp := *st
		cp.Counters = make(map[string]int, len(st.Counters))
		for k, v := range st.Counters {
			cp.Counters[k] = v
		}
		p.Stages[name] = &cp
	}
	return p
}

// SetOutputPath records the path of a run artifact.
func (t *Tracker) SetOutputPath(name, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress.OutputPaths[name] == path {
		return nil
	}
	t.progress.OutputPaths[name] = path
	return t.checkpoint()
}

// Begin moves a not-started stage to in_progress. Stages already in progress
// or completed are left unchanged.
func (t *Tracker) Begin(stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stage(stage)
	if st.Status != StatusNotStarted {
		return nil
	}
	st.Status = StatusInProgress
	st.UpdatedAt = t.now()
	return t.checkpoint()
}

// Checkpoint stores the cursor of an in-progress stage and adds deltas to its
// counters in a single write.
func (t *Tracker) Checkpoint(stage string, cursor int, deltas map[string]int) error {
	if cursor < 0 {
		return domain.NewValidationError("cursor", "must not be negative")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stage(stage)
	if st.Status == StatusCompleted {
		return fmt.Errorf("advance %s: stage already completed", stage)
	}
	st.Status = StatusInProgress
	st.Cursor = cursor
	if len(deltas) > 0 && st.Counters == nil {
		st.Counters = map[string]int{}
	}
	for name, d := range deltas {
		st.Counters[name] += d
	}
	st.UpdatedAt = t.now()
	t.metrics.RecordStageCursor(stage, cursor)
	return t.checkpoint()
}

// SetTotal records the number of items a stage expects to process.
func (t *Tracker) SetTotal(stage string, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stage(stage)
	if st.Total == total {
		return nil
	}
	st.Total = total
	st.UpdatedAt = t.now()
	return t.checkpoint()
}

// Complete marks a stage completed.
func (t *Tracker) Complete(stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stage(stage)
	if st.Status == StatusCompleted {
		return nil
	}
	st.Status = StatusCompleted
	st.UpdatedAt = t.now()
	t.metrics.RecordStageCompleted(stage)
	return t.checkpoint()
}

// IsCompleted reports whether a stage is completed.
func (t *Tracker) IsCompleted(stage string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.progress.Stages[stage]
	return ok && st.Status == StatusCompleted
}

// Status returns the status of a stage.
func (t *Tracker) Status(stage string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.progress.Stages[stage]; ok {
		return st.Status
	}
	return StatusNotStarted
}

// Cursor returns the stored cursor of a stage, zero when it never advanced.
func (t *Tracker) Cursor(stage string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.progress.Stages[stage]; ok {
		return st.Cursor
	}
	return 0
}

// Counter returns a stage counter.
func (t *Tracker) Counter(stage, counter string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.progress.Stages[stage]; ok {
		return st.Counters[counter]
	}
	return 0
}

// MarkDedupCompleted records that the deduplication pass ran.
func (t *Tracker) MarkDedupCompleted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress.DedupCompleted {
		return nil
	}
	t.progress.DedupCompleted = true
	return t.checkpoint()
}

// DedupCompleted reports whether the deduplication pass ran.
func (t *Tracker) DedupCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.DedupCompleted
}

// MarkNotificationSent records that the summary notification was sent.
func (t *Tracker) MarkNotificationSent() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.progress.NotificationSent {
		return nil
	}
	t.progress.NotificationSent = true
	return t.checkpoint()
}

// NotificationSent reports whether the summary notification was sent.
func (t *Tracker) NotificationSent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress.NotificationSent
}

func (t *Tracker) stage(name string) *StageState {
	st, ok := t.progress.Stages[name]
	if !ok {
		st = &StageState{Status: StatusNotStarted}
		t.progress.Stages[name] = st
	}
	return st
}

// checkpoint rewrites the progress file. Callers hold t.mu.
func (t *Tracker) checkpoint() error {
	data, err := json.MarshalIndent(t.progress, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	data = append(data, '\n')
	if err := wal.WriteFileAtomic(t.path, data); err != nil {
		return fmt.Errorf("checkpoint progress: %w", err)
	}
	return nil
}
