package downloader

import (
	"context"
	"sync"

	"github.com/vertextoedge/fetchkit/internal/domain"
)

// Stream is a multicast progress stream that replays its latest value to
// new subscribers and settles exactly once.
type Stream struct {
	mu      sync.Mutex
	latest  domain.Download
	settled bool
	err     error
	subs    map[*Subscription]struct{}
	done    chan struct{}
}

// NewStream creates a stream whose current value is initial
func NewStream(initial domain.Download) *Stream {
	return &Stream{
		latest: initial,
		subs:   make(map[*Subscription]struct{}),
		done:   make(chan struct{}),
	}
}

// newFailedStream returns a stream already settled with err
func newFailedStream(err error) *Stream {
	s := NewStream(domain.Download{})
	s.Settle(err)
	return s
}

// Subscription receives the latest values of a stream. Intermediate values
// are dropped when the subscriber is slower than the publisher.
type Subscription struct {
	stream *Stream
	ch     chan domain.Download
	once   sync.Once
}

// Updates returns the value channel. It is closed once the stream settles
// or the subscription is cancelled.
func (s *Subscription) Updates() <-chan domain.Download {
	return s.ch
}

// Err returns the terminal error of the stream, nil for a normal completion
func (s *Subscription) Err() error {
	return s.stream.Err()
}

// Cancel detaches the subscription
func (s *Subscription) Cancel() {
	s.stream.mu.Lock()
	defer s.stream.mu.Unlock()
	if _, ok := s.stream.subs[s]; ok {
		delete(s.stream.subs, s)
		s.close()
	}
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// offer replaces any unread value with v. Callers hold the stream lock, so
// there is a single writer and the second send cannot block.
func (s *Subscription) offer(v domain.Download) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// Subscribe attaches an observer. A live stream immediately delivers its
// latest value; a settled stream yields a closed channel.
func (s *Stream) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{stream: s, ch: make(chan domain.Download, 1)}
	if s.settled {
		sub.close()
		return sub
	}
	sub.ch <- s.latest
	s.subs[sub] = struct{}{}
	return sub
}

// Publish replaces the current value. It is a no-op after settlement.
func (s *Stream) Publish(v domain.Download) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled {
		return
	}
	s.latest = v
	for sub := range s.subs {
		sub.offer(v)
	}
}

// Settle terminates the stream with err (nil for completion). Only the
// first call has an effect; it reports whether it did.
func (s *Stream) Settle(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled {
		return false
	}
	s.settled = true
	s.err = err
	for sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	close(s.done)
	return true
}

// Latest returns the current value
func (s *Stream) Latest() domain.Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Done is closed when the stream settles
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Settled reports whether the stream has terminated
func (s *Stream) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Err returns the terminal error, nil while live or after a normal completion
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the stream settles or ctx is done
func (s *Stream) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
