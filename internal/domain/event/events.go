package event

import (
	"time"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Event names
const (
	NameDownloadStarted   = "download.started"
	NameDownloadPaused    = "download.paused"
	NameDownloadResumed   = "download.resumed"
	NameDownloadStopped   = "download.stopped"
	NameDownloadCompleted = "download.completed"
	NameDownloadFailed    = "download.failed"
)

// DownloadStarted is raised when a fresh transfer is opened for a resource
type DownloadStarted struct {
	BaseEvent
	URL          string
	Destination  string
	ExpectedSize int64
	HandleID     string
}

// EventName returns the event name
func (e DownloadStarted) EventName() string {
	return NameDownloadStarted
}

// NewDownloadStarted creates a new DownloadStarted event
func NewDownloadStarted(url, destination string, expectedSize int64, handleID string) DownloadStarted {
	return DownloadStarted{
		BaseEvent:    BaseEvent{Timestamp: time.Now()},
		URL:          url,
		Destination:  destination,
		ExpectedSize: expectedSize,
		HandleID:     handleID,
	}
}

// DownloadPaused is raised when pause cancels an active transfer
type DownloadPaused struct {
	BaseEvent
	URL      string
	Progress float64
}

// EventName returns the event name
func (e DownloadPaused) EventName() string {
	return NameDownloadPaused
}

// NewDownloadPaused creates a new DownloadPaused event
func NewDownloadPaused(url string, progress float64) DownloadPaused {
	return DownloadPaused{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		URL:       url,
		Progress:  progress,
	}
}

// DownloadResumed is raised when a transfer continues from a resume token
type DownloadResumed struct {
	BaseEvent
	URL      string
	HandleID string
}

// EventName returns the event name
func (e DownloadResumed) EventName() string {
	return NameDownloadResumed
}

// NewDownloadResumed creates a new DownloadResumed event
func NewDownloadResumed(url, handleID string) DownloadResumed {
	return DownloadResumed{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		URL:       url,
		HandleID:  handleID,
	}
}

// DownloadStopped is raised when stop removes a download
type DownloadStopped struct {
	BaseEvent
	URL         string
	Destination string
	Progress    float64
}

// EventName returns the event name
func (e DownloadStopped) EventName() string {
	return NameDownloadStopped
}

// NewDownloadStopped creates a new DownloadStopped event
func NewDownloadStopped(url, destination string, progress float64) DownloadStopped {
	return DownloadStopped{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		URL:         url,
		Destination: destination,
		Progress:    progress,
	}
}

// DownloadCompleted is raised when a payload reached its destination
type DownloadCompleted struct {
	BaseEvent
	URL         string
	Destination string
	Duration    time.Duration
}

// EventName returns the event name
func (e DownloadCompleted) EventName() string {
	return NameDownloadCompleted
}

// NewDownloadCompleted creates a new DownloadCompleted event
func NewDownloadCompleted(url, destination string, duration time.Duration) DownloadCompleted {
	return DownloadCompleted{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		URL:         url,
		Destination: destination,
		Duration:    duration,
	}
}

// DownloadFailed is raised when a stream settles with an error
type DownloadFailed struct {
	BaseEvent
	URL         string
	Destination string
	Progress    float64
	Err         error
}

// EventName returns the event name
func (e DownloadFailed) EventName() string {
	return NameDownloadFailed
}

// NewDownloadFailed creates a new DownloadFailed event
func NewDownloadFailed(url, destination string, progress float64, err error) DownloadFailed {
	return DownloadFailed{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		URL:         url,
		Destination: destination,
		Progress:    progress,
		Err:         err,
	}
}
