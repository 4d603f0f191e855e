package downloader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/domain/event"
	"github.com/vertextoedge/fetchkit/internal/port"
)

// Manager starts, pauses, resumes and stops downloads keyed by URL and
// turns transport callbacks into progress stream updates.
type Manager struct {
	transport port.Transport
	mover     port.FileMover
	registry  *Registry
	events    event.EventDispatcher
	logger    *zap.Logger

	watchers sync.WaitGroup
}

// New creates a new Manager. A nil registry, dispatcher or logger is
// replaced by an empty registry, a no-op dispatcher and a no-op logger.
func New(
	transport port.Transport,
	mover port.FileMover,
	registry *Registry,
	events event.EventDispatcher,
	logger *zap.Logger,
) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if events == nil {
		events = event.NewNullDispatcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		transport: transport,
		mover:     mover,
		registry:  registry,
		events:    events,
		logger:    logger,
	}
}

// Registry returns the registry the manager operates on
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start downloads url and moves the payload to destination on completion.
// expectedSize is used for progress computation when positive. Calling
// Start for a download that is already running joins it.
func (m *Manager) Start(url, destination string, expectedSize int64) *Stream {
	var (
		stream  *Stream
		emitted []event.DomainEvent
	)
	m.registry.withLock(func() {
		stream, emitted = m.startLocked(url, destination, expectedSize)
	})
	m.dispatch(emitted)
	return stream
}

func (m *Manager) startLocked(url, destination string, expectedSize int64) (*Stream, []event.DomainEvent) {
	st, created := m.registry.getOrCreateLocked(url, destination, expectedSize)
	st.pauseRequested = false
	if st.activeHandle != nil {
		m.logger.Debug("joining running download", zap.String("url", url))
		return st.stream, nil
	}

	// A fresh transfer invalidates any partial state from an earlier pause.
	m.dropPartialLocked(st, "restart")

	h, err := m.transport.StartDownload(st.url)
	if err != nil {
		return st.stream, m.failLocked(st, &domain.TransferError{URL: st.url, Err: err})
	}

	st.activeHandle = h
	if !created {
		st.stream.Publish(st.value(0, domain.DownloadActive))
	}
	m.watch(st.url, h, time.Now())

	return st.stream, []event.DomainEvent{
		event.NewDownloadStarted(st.url, st.destination, st.expectedSize, h.ID()),
	}
}

// Pause cancels the active transfer of url and keeps its entry so it can be
// resumed. The resume token is captured asynchronously.
func (m *Manager) Pause(url string) error {
	var emitted []event.DomainEvent
	err := func() error {
		m.registry.mu.Lock()
		defer m.registry.mu.Unlock()

		st := m.registry.getLocked(url)
		if st == nil {
			return domain.ErrNotFound
		}

		st.pauseRequested = true
		if st.activeHandle == nil {
			return nil
		}

		h := st.activeHandle
		st.activeHandle = nil
		st.pendingPause = h
		h.CancelForResume()

		latest := st.stream.Latest()
		st.stream.Publish(st.value(latest.Progress, domain.DownloadPaused))
		emitted = append(emitted, event.NewDownloadPaused(url, latest.Progress))
		return nil
	}()
	m.dispatch(emitted)
	return err
}

// Stop cancels url without producing resume data. The entry is removed
// once the transport confirms, or immediately when nothing is running.
func (m *Manager) Stop(url string) {
	var emitted []event.DomainEvent
	m.registry.withLock(func() {
		st := m.registry.getLocked(url)
		if st == nil {
			return
		}

		st.pauseRequested = false
		if st.activeHandle != nil {
			st.activeHandle.Cancel()
			return
		}

		emitted = m.stopLocked(st)
	})
	m.dispatch(emitted)
}

// Resume continues a paused download. Without resume data the download is
// started over with its original parameters.
func (m *Manager) Resume(url string) *Stream {
	var (
		stream  *Stream
		emitted []event.DomainEvent
	)
	m.registry.withLock(func() {
		st := m.registry.getLocked(url)
		if st == nil {
			stream = newFailedStream(domain.ErrNotFound)
			return
		}

		if st.resumeToken == nil {
			if st.activeHandle != nil {
				stream = st.stream
				return
			}
			m.dropPartialLocked(st, "restart")
			m.registry.removeLocked(st)
			st.stream.Settle(domain.ErrSuperseded)
			stream, emitted = m.startLocked(st.url, st.destination, st.expectedSize)
			return
		}

		token := st.resumeToken
		st.resumeToken = nil
		st.pauseRequested = false
		st.pendingPause = nil
		stream = st.stream

		h, err := m.transport.ResumeDownload(token)
		if err != nil {
			emitted = m.failLocked(st, &domain.TransferError{URL: st.url, Err: err})
			return
		}

		st.activeHandle = h
		latest := st.stream.Latest()
		st.stream.Publish(st.value(latest.Progress, domain.DownloadActive))
		m.watch(st.url, h, time.Now())
		emitted = append(emitted, event.NewDownloadResumed(st.url, h.ID()))
	})
	m.dispatch(emitted)
	return stream
}

// StopAll stops every tracked download
func (m *Manager) StopAll() {
	for _, url := range m.registry.URLs() {
		m.Stop(url)
	}
}

// Wait blocks until every transport handle has delivered its last event
// or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.watchers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watch consumes the events of h until the transport closes the channel.
func (m *Manager) watch(url string, h port.DownloadHandle, started time.Time) {
	m.watchers.Add(1)
	go func() {
		defer m.watchers.Done()
		for ev := range h.Events() {
			m.handleEvent(url, h, ev, started)
		}
	}()
}

func (m *Manager) handleEvent(url string, h port.DownloadHandle, ev port.TransferEvent, started time.Time) {
	if ev.Kind == port.EventPayloadReady {
		m.handlePayload(url, h, ev.Location)
		return
	}

	var emitted []event.DomainEvent
	m.registry.withLock(func() {
		st := m.registry.getLocked(url)
		if st == nil || !st.owns(h) {
			m.logger.Debug("ignoring callback from stale handle",
				zap.String("url", url),
				zap.String("handle", h.ID()),
				zap.Stringer("event", ev.Kind))
			return
		}

		switch ev.Kind {
		case port.EventProgress:
			if st.activeHandle != h {
				return
			}
			progress := domain.ComputeProgress(ev.BytesWritten, st.expectedSize, ev.TotalExpected)
			st.stream.Publish(st.value(progress, domain.DownloadActive))

		case port.EventResumeData:
			if st.pendingPause != h {
				return
			}
			st.resumeToken = ev.ResumeData
			st.pendingPause = nil
			m.logger.Debug("captured resume data",
				zap.String("url", url),
				zap.Int("token_bytes", len(ev.ResumeData)))

		case port.EventFinished:
			emitted = m.finishLocked(st, h, ev.Err, started)
		}
	})
	m.dispatch(emitted)
}

// finishLocked applies the completion policy for the last event of h.
func (m *Manager) finishLocked(st *transferState, h port.DownloadHandle, err error, started time.Time) []event.DomainEvent {
	switch {
	case err == nil:
		latest := st.stream.Latest()
		st.stream.Publish(st.value(latest.Progress, domain.DownloadCompleted))
		st.stream.Settle(nil)
		m.registry.removeLocked(st)
		return []event.DomainEvent{
			event.NewDownloadCompleted(st.url, st.destination, time.Since(started)),
		}

	case port.IsCanceled(err) && st.pauseRequested:
		// Echo of a pause; the entry stays for resume.
		return nil

	case port.IsCanceled(err):
		if st.activeHandle != h {
			return nil
		}
		return m.stopLocked(st)

	default:
		return m.failLocked(st, &domain.TransferError{URL: st.url, Err: err})
	}
}

// stopLocked settles st as a normal completion and forgets it.
func (m *Manager) stopLocked(st *transferState) []event.DomainEvent {
	latest := st.stream.Latest()
	st.activeHandle = nil
	m.dropPartialLocked(st, "stop")
	st.stream.Publish(st.value(latest.Progress, domain.DownloadStopped))
	st.stream.Settle(nil)
	m.registry.removeLocked(st)
	return []event.DomainEvent{
		event.NewDownloadStopped(st.url, st.destination, latest.Progress),
	}
}

// dropPartialLocked forgets the paused transfer of st. Its temp file is
// left to the maintenance sweep.
func (m *Manager) dropPartialLocked(st *transferState, reason string) {
	if st.resumeToken != nil || st.pendingPause != nil {
		m.logger.Debug("dropping paused transfer",
			zap.String("url", st.url),
			zap.String("reason", reason),
			zap.Int("token_bytes", len(st.resumeToken)),
			zap.Bool("token_pending", st.pendingPause != nil))
	}
	st.resumeToken = nil
	st.pendingPause = nil
}

// failLocked settles st with err and forgets it.
func (m *Manager) failLocked(st *transferState, err error) []event.DomainEvent {
	latest := st.stream.Latest()
	st.activeHandle = nil
	st.stream.Settle(err)
	m.registry.removeLocked(st)
	return []event.DomainEvent{
		event.NewDownloadFailed(st.url, st.destination, latest.Progress, err),
	}
}

// handlePayload moves a finished payload outside the registry lock, so a
// slow move only delays the download it belongs to.
func (m *Manager) handlePayload(url string, h port.DownloadHandle, location string) {
	var (
		st          *transferState
		destination string
	)
	m.registry.withLock(func() {
		st = m.registry.getLocked(url)
		if st != nil && st.owns(h) {
			destination = st.destination
		} else {
			st = nil
		}
	})
	if st == nil {
		m.logger.Debug("ignoring payload from stale handle",
			zap.String("url", url),
			zap.String("location", location))
		return
	}

	moveErr := m.mover.MoveFile(location, destination)
	if moveErr == nil {
		m.logger.Debug("moved payload",
			zap.String("url", url),
			zap.String("from", location),
			zap.String("to", destination))
		return
	}

	var emitted []event.DomainEvent
	m.registry.withLock(func() {
		if m.registry.getLocked(url) != st || !st.owns(h) {
			return
		}
		emitted = m.failLocked(st, &domain.MoveError{From: location, To: destination, Err: moveErr})
	})
	m.dispatch(emitted)
}

func (m *Manager) dispatch(events []event.DomainEvent) {
	for _, e := range events {
		m.events.Dispatch(e)
	}
}
