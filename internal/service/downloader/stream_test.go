package downloader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/fetchkit/internal/domain"
)

func TestStream_SubscribeReplaysLatest(t *testing.T) {
	s := NewStream(domain.Download{URL: "u", State: domain.DownloadActive})
	s.Publish(domain.Download{URL: "u", Progress: 0.5, State: domain.DownloadActive})

	sub := s.Subscribe()
	v := <-sub.Updates()
	assert.Equal(t, 0.5, v.Progress)
}

func TestStream_SlowSubscriberSeesNewest(t *testing.T) {
	s := NewStream(domain.Download{})
	sub := s.Subscribe()

	for i := 1; i <= 10; i++ {
		s.Publish(domain.Download{Progress: float64(i) / 10})
	}

	v := <-sub.Updates()
	assert.Equal(t, 1.0, v.Progress)
}

func TestStream_SettleClosesSubscribers(t *testing.T) {
	s := NewStream(domain.Download{})
	sub := s.Subscribe()
	<-sub.Updates()

	boom := errors.New("boom")
	assert.True(t, s.Settle(boom))
	assert.False(t, s.Settle(nil))

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), boom)
	assert.True(t, s.Settled())
}

func TestStream_PublishAfterSettleIsIgnored(t *testing.T) {
	s := NewStream(domain.Download{Progress: 0.1})
	s.Settle(nil)
	s.Publish(domain.Download{Progress: 0.9})
	assert.Equal(t, 0.1, s.Latest().Progress)
}

func TestStream_SubscribeAfterSettle(t *testing.T) {
	s := NewStream(domain.Download{})
	s.Settle(nil)

	sub := s.Subscribe()
	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.NoError(t, sub.Err())
}

func TestStream_CancelDetaches(t *testing.T) {
	s := NewStream(domain.Download{})
	sub := s.Subscribe()
	<-sub.Updates()
	sub.Cancel()
	sub.Cancel()

	s.Publish(domain.Download{Progress: 0.3})
	_, ok := <-sub.Updates()
	assert.False(t, ok)
}

func TestStream_Wait(t *testing.T) {
	s := NewStream(domain.Download{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	go s.Settle(domain.ErrSuperseded)
	require.ErrorIs(t, s.Wait(context.Background()), domain.ErrSuperseded)
}

func TestNewFailedStream(t *testing.T) {
	s := newFailedStream(domain.ErrNotFound)
	assert.True(t, s.Settled())
	assert.True(t, domain.IsNotFound(s.Err()))
}
