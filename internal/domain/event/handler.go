package event

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		fields := []zap.Field{
			zap.String("url", e.URL),
			zap.String("destination", e.Destination),
			zap.String("handle", e.HandleID),
		}
		if e.ExpectedSize > 0 {
			fields = append(fields, zap.String("expected_size", humanize.Bytes(uint64(e.ExpectedSize))))
		}
		h.logger.Info("download started", fields...)
	case DownloadPaused:
		h.logger.Info("download paused",
			zap.String("url", e.URL),
			zap.Float64("progress", e.Progress),
		)
	case DownloadResumed:
		h.logger.Info("download resumed",
			zap.String("url", e.URL),
			zap.String("handle", e.HandleID),
		)
	case DownloadStopped:
		h.logger.Info("download stopped",
			zap.String("url", e.URL),
			zap.Float64("progress", e.Progress),
		)
	case DownloadCompleted:
		h.logger.Info("download completed",
			zap.String("url", e.URL),
			zap.String("destination", e.Destination),
			zap.Duration("duration", e.Duration),
		)
	case DownloadFailed:
		h.logger.Warn("download failed",
			zap.String("url", e.URL),
			zap.String("destination", e.Destination),
			zap.Float64("progress", e.Progress),
			zap.Error(e.Err),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{AllEvents}
}

// MetricsHandler exports download lifecycle metrics to Prometheus
type MetricsHandler struct {
	transitions *prometheus.CounterVec
	durations   prometheus.Histogram
}

// NewMetricsHandler creates a MetricsHandler and registers its collectors
func NewMetricsHandler(reg prometheus.Registerer) (*MetricsHandler, error) {
	h := &MetricsHandler{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchkit",
			Subsystem: "downloads",
			Name:      "events_total",
			Help:      "Download lifecycle events by event name.",
		}, []string{"event"}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fetchkit",
			Subsystem: "downloads",
			Name:      "completion_seconds",
			Help:      "Time from start to completion of finished downloads.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{h.transitions, h.durations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register download metrics: %w", err)
		}
	}
	return h, nil
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	h.transitions.WithLabelValues(event.EventName()).Inc()
	if e, ok := event.(DownloadCompleted); ok && e.Duration > 0 {
		h.durations.Observe(e.Duration.Seconds())
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{AllEvents}
}

// JournalHandler records terminal outcomes in the transfer journal
type JournalHandler struct {
	journal port.Journal
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journal port.Journal) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// Handle writes a journal entry for terminal events
func (h *JournalHandler) Handle(event DomainEvent) error {
	var entry *port.JournalEntry
	switch e := event.(type) {
	case DownloadCompleted:
		entry = &port.JournalEntry{
			URL:         e.URL,
			Destination: e.Destination,
			Outcome:     port.OutcomeCompleted,
			Progress:    1,
		}
	case DownloadStopped:
		entry = &port.JournalEntry{
			URL:         e.URL,
			Destination: e.Destination,
			Outcome:     port.OutcomeStopped,
			Progress:    e.Progress,
		}
	case DownloadFailed:
		entry = &port.JournalEntry{
			URL:         e.URL,
			Destination: e.Destination,
			Outcome:     port.OutcomeFailed,
			Progress:    e.Progress,
		}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
	default:
		return nil
	}
	entry.FinishedAt = event.OccurredAt()

	if err := h.journal.Record(entry); err != nil {
		return fmt.Errorf("failed to record %s: %w", event.EventName(), err)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *JournalHandler) HandledEvents() []string {
	return []string{NameDownloadCompleted, NameDownloadStopped, NameDownloadFailed}
}
