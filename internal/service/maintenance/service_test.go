package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// mockFileSystem implements port.FileSystem for testing
type mockFileSystem struct {
	mu                   sync.Mutex
	cleanTempFilesCount  int
	cleanTempFilesErr    error
	cleanTempFilesCalled int
	lastMaxAge           time.Duration
}

func (m *mockFileSystem) MoveFile(from, to string) error { return nil }
func (m *mockFileSystem) TempDir() string                { return "" }
func (m *mockFileSystem) TempPath(id string) string      { return id }
func (m *mockFileSystem) GetTempFileInfo(path string) (int64, time.Time, error) {
	return 0, time.Time{}, nil
}
func (m *mockFileSystem) DeleteTempFile(path string) error       { return nil }
func (m *mockFileSystem) GetDiskUsage() (*port.DiskUsage, error) { return nil, nil }
func (m *mockFileSystem) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanTempFilesCalled++
	m.lastMaxAge = olderThan
	return m.cleanTempFilesCount, m.cleanTempFilesErr
}

func (m *mockFileSystem) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanTempFilesCalled
}

// mockJournal implements port.Journal for testing
type mockJournal struct {
	mu          sync.Mutex
	pruneCount  int
	pruneErr    error
	pruneCalled int
	lastCutoff  time.Time
}

func (m *mockJournal) Record(entry *port.JournalEntry) error          { return nil }
func (m *mockJournal) Recent(limit int) ([]*port.JournalEntry, error) { return nil, nil }
func (m *mockJournal) ByURL(url string) ([]*port.JournalEntry, error) { return nil, nil }
func (m *mockJournal) Prune(before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCalled++
	m.lastCutoff = before
	return m.pruneCount, m.pruneErr
}

func (m *mockJournal) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneCalled
}

func TestService_New(t *testing.T) {
	fs := &mockFileSystem{}

	// Test with nil config (should use defaults)
	s := New(nil, fs, nil, nil)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.config.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", s.config.CleanupInterval, time.Hour)
	}

	// Zero fields are filled in
	s = New(&Config{TempFileMaxAge: 6 * time.Hour}, fs, nil, zap.NewNop())
	if s.config.TempFileMaxAge != 6*time.Hour {
		t.Errorf("TempFileMaxAge = %v, want %v", s.config.TempFileMaxAge, 6*time.Hour)
	}
	if s.config.JournalRetention != 30*24*time.Hour {
		t.Errorf("JournalRetention = %v, want %v", s.config.JournalRetention, 30*24*time.Hour)
	}
}

func TestService_RunOnce(t *testing.T) {
	fs := &mockFileSystem{cleanTempFilesCount: 2}
	journal := &mockJournal{pruneCount: 4}
	s := New(&Config{TempFileMaxAge: time.Hour, JournalRetention: 24 * time.Hour}, fs, journal, zap.NewNop())

	before := time.Now()
	s.RunOnce()

	if fs.calls() != 1 {
		t.Errorf("CleanOldTempFiles called %d times, want 1", fs.calls())
	}
	if fs.lastMaxAge != time.Hour {
		t.Errorf("CleanOldTempFiles max age = %v, want %v", fs.lastMaxAge, time.Hour)
	}
	if journal.calls() != 1 {
		t.Errorf("Prune called %d times, want 1", journal.calls())
	}
	if cutoff := before.Add(-24 * time.Hour); journal.lastCutoff.Before(cutoff.Add(-time.Second)) {
		t.Errorf("Prune cutoff = %v, want about %v", journal.lastCutoff, cutoff)
	}
}

func TestService_RunOnceToleratesErrors(t *testing.T) {
	fs := &mockFileSystem{cleanTempFilesErr: errors.New("permission denied")}
	journal := &mockJournal{pruneErr: errors.New("database is locked")}
	s := New(nil, fs, journal, zap.NewNop())

	s.RunOnce()

	if fs.calls() != 1 || journal.calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", fs.calls(), journal.calls())
	}
}

func TestService_StartStop(t *testing.T) {
	fs := &mockFileSystem{cleanTempFilesCount: 1}
	journal := &mockJournal{}

	cfg := &Config{
		CleanupInterval:  10 * time.Millisecond,
		TempFileMaxAge:   time.Hour,
		JournalRetention: time.Hour,
	}
	s := New(cfg, fs, journal, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	// Wait for cleanup to run
	deadline := time.Now().Add(time.Second)
	for fs.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	if fs.calls() == 0 {
		t.Error("CleanOldTempFiles was not called")
	}
	if journal.calls() == 0 {
		t.Error("Prune was not called")
	}
}

func TestService_DoubleStart(t *testing.T) {
	s := New(nil, &mockFileSystem{}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		s.Start(ctx)
	}()
	<-started

	// Wait until the first Start marked the service as running
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Start(ctx); err == nil {
		t.Error("second Start() = nil, want error")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %v, want %v", cfg.CleanupInterval, time.Hour)
	}
	if cfg.TempFileMaxAge != 24*time.Hour {
		t.Errorf("TempFileMaxAge = %v, want %v", cfg.TempFileMaxAge, 24*time.Hour)
	}
	if cfg.JournalRetention != 30*24*time.Hour {
		t.Errorf("JournalRetention = %v, want %v", cfg.JournalRetention, 30*24*time.Hour)
	}
}
