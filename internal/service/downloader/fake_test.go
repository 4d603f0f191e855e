package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vertextoedge/fetchkit/internal/port"
)

type fakeHandle struct {
	id  string
	url string
	ch  chan port.TransferEvent

	mu             sync.Mutex
	canceled       bool
	canceledResume bool
	closed         bool
}

func newFakeHandle(id, url string) *fakeHandle {
	return &fakeHandle{id: id, url: url, ch: make(chan port.TransferEvent, 16)}
}

func (h *fakeHandle) ID() string                        { return h.id }
func (h *fakeHandle) URL() string                       { return h.url }
func (h *fakeHandle) Events() <-chan port.TransferEvent { return h.ch }

func (h *fakeHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.canceled = true
}

func (h *fakeHandle) CancelForResume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.canceledResume = true
}

func (h *fakeHandle) wasCanceled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canceled
}

func (h *fakeHandle) wasCanceledForResume() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canceledResume
}

func (h *fakeHandle) emit(ev port.TransferEvent) {
	h.ch <- ev
}

func (h *fakeHandle) progress(written, total int64) {
	h.emit(port.TransferEvent{Kind: port.EventProgress, BytesWritten: written, TotalExpected: total})
}

func (h *fakeHandle) finish(err error) {
	h.emit(port.TransferEvent{Kind: port.EventFinished, Err: err})
}

func (h *fakeHandle) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.ch)
	}
}

type fakeTransport struct {
	mu       sync.Mutex
	handles  []*fakeHandle
	resumed  [][]byte
	startErr error
}

func (t *fakeTransport) Execute(ctx context.Context, req *port.TransportRequest) (*port.TransportResponse, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTransport) StartDownload(url string) (port.DownloadHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return nil, t.startErr
	}
	h := newFakeHandle(fmt.Sprintf("h%d", len(t.handles)+1), url)
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTransport) ResumeDownload(token []byte) (port.DownloadHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumed = append(t.resumed, token)
	h := newFakeHandle(fmt.Sprintf("h%d", len(t.handles)+1), string(token))
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTransport) handle(i int) *fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.handles) {
		return nil
	}
	return t.handles[i]
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

func (t *fakeTransport) resumeTokens() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.resumed...)
}

type move struct {
	from string
	to   string
}

type fakeMover struct {
	mu    sync.Mutex
	moves []move
	err   error
}

func (m *fakeMover) MoveFile(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.moves = append(m.moves, move{from: from, to: to})
	return nil
}

func (m *fakeMover) recorded() []move {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]move(nil), m.moves...)
}
