// Package dispatch hands run notifications and background repository tasks
// to Kafka.
//
// Tasks are fire-and-forget: a failed publish is logged and never surfaces
// to the caller. Notifications report failure so a run can retry sending on
// resume. With Kafka disabled both are logged and dropped, and Notify
// returns ErrNotifierDisabled.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/bibliographic-ingest/internal/report"
)

// ErrNotifierDisabled is returned by Notify when notifications are not
// published.
var ErrNotifierDisabled = errors.New("notifications disabled")

// DefaultSource identifies this service in message envelopes.
const DefaultSource = "bibliographic-ingest"

// Event types.
const (
	EventRunReport = "run.report"
	EventTask      = "repository.task"
)

// TaskType names a background repository task.
type TaskType string

// Task types.
const (
	TaskReindexWork          TaskType = "reindex_work"
	TaskPropagatePermissions TaskType = "propagate_permissions"
)

// Task is a background job for the repository's workers.
type Task struct {
	Type      TaskType  `json:"type"`
	WorkID    string    `json:"work_id"`
	AdminSet  string    `json:"admin_set,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is the end-of-run report message.
type Notification struct {
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	Subject     string         `json:"subject"`
	Recipients  []string       `json:"recipients"`
	Summary     report.Summary `json:"summary"`
	ArchivePath string         `json:"archive_path"`
}

// TaskQueue accepts background tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task)
}

// Notifier delivers run notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MessageWriter is the subset of *kafka.Writer the dispatcher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publishing settings.
type Config struct {
	Enabled           bool
	Brokers           []string
	NotificationTopic string
	TaskTopic         string
	BatchTimeout      time.Duration
	WriteTimeout      time.Duration
	Source            string
}

// Compile-time interface verification.
var (
	_ TaskQueue = (*KafkaDispatcher)(nil)
	_ Notifier  = (*KafkaDispatcher)(nil)
)

// KafkaDispatcher publishes tasks and notifications as JSON envelopes.
type KafkaDispatcher struct {
	tasks         MessageWriter
	notifications MessageWriter
	source        string
	writeTimeout  time.Duration
	logger        zerolog.Logger
}

// NewKafkaDispatcher creates a dispatcher. When cfg.Enabled is false the
// dispatcher only logs.
func NewKafkaDispatcher(cfg Config, logger zerolog.Logger) *KafkaDispatcher {
	d := &KafkaDispatcher{
		source:       cfg.Source,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger.With().Str("component", "dispatcher").Logger(),
	}
	if d.source == "" {
		d.source = DefaultSource
	}
	if d.writeTimeout <= 0 {
		d.writeTimeout = 10 * time.Second
	}
	if !cfg.Enabled {
		d.logger.Info().Msg("kafka disabled, notifications and tasks will be logged only")
		return d
	}

	if cfg.TaskTopic != "" {
		d.tasks = newWriter(cfg, cfg.TaskTopic)
	}
	if cfg.NotificationTopic != "" {
		d.notifications = newWriter(cfg, cfg.NotificationTopic)
	}
	return d
}

// NewDispatcherWithWriters creates a dispatcher over existing writers. A nil
// writer disables that message kind.
func NewDispatcherWithWriters(tasks, notifications MessageWriter, logger zerolog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{
		tasks:         tasks,
		notifications: notifications,
		source:        DefaultSource,
		writeTimeout:  10 * time.Second,
		logger:        logger.With().Str("component", "dispatcher").Logger(),
	}
}

func newWriter(cfg Config, topic string) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Enqueue publishes a task keyed by its work id. Failures are logged.
func (d *KafkaDispatcher) Enqueue(ctx context.Context, task Task) {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	log := d.logger.With().
		Str("task_type", string(task.Type)).
		Str("work_id", task.WorkID).
		Logger()

	if d.tasks == nil {
		log.Info().Msg("task not published")
		return
	}
	if err := d.publish(ctx, d.tasks, EventTask, task.RunID, task.WorkID, task); err != nil {
		log.Error().Err(err).Msg("failed to publish task")
		return
	}
	log.Debug().Msg("task published")
}

// Notify publishes the run report keyed by run id.
func (d *KafkaDispatcher) Notify(ctx context.Context, n Notification) error {
	log := d.logger.With().
		Str("run_id", n.RunID).
		Str("subject", n.Subject).
		Int("total", n.Summary.Total).
		Logger()

	if d.notifications == nil {
		log.Info().Strs("recipients", n.Recipients).Str("archive", n.ArchivePath).
			Msg("notification not published")
		return ErrNotifierDisabled
	}
	if err := d.publish(ctx, d.notifications, EventRunReport, n.RunID, n.RunID, n); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	log.Info().Msg("notification published")
	return nil
}

func (d *KafkaDispatcher) publish(ctx context.Context, w MessageWriter, eventType, correlationID, key string, payload any) error {
	env, err := NewEnvelope(d.source, eventType, correlationID, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
	defer cancel()

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(env.ID)},
		},
	})
}

// Close closes the underlying writers.
func (d *KafkaDispatcher) Close() error {
	var errs []error
	for _, w := range []MessageWriter{d.tasks, d.notifications} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.logger.Info().Msg("dispatcher closed")
	return errors.Join(errs...)
}
