package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// CleanupInterval is how often to run cleanup tasks
	CleanupInterval time.Duration

	// TempFileMaxAge is the age after which abandoned partial downloads are removed
	TempFileMaxAge time.Duration

	// JournalRetention is how long terminal outcomes stay in the journal
	JournalRetention time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval:  time.Hour,
		TempFileMaxAge:   24 * time.Hour,
		JournalRetention: 30 * 24 * time.Hour,
	}
}

// Service removes abandoned partial downloads and prunes the journal
type Service struct {
	config  *Config
	fs      port.FileSystem
	journal port.Journal
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service. journal may be nil.
func New(cfg *Config, fs port.FileSystem, journal port.Journal, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = 24 * time.Hour
	}
	if cfg.JournalRetention == 0 {
		cfg.JournalRetention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:  cfg,
		fs:      fs,
		journal: journal,
		logger:  logger,
	}
}

// Start runs cleanup every CleanupInterval until ctx is done or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Debug("maintenance service started",
		zap.Duration("cleanup_interval", s.config.CleanupInterval))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Debug("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce() {
	s.cleanupTempFiles()
	s.pruneJournal()
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			s.RunOnce()
		}
	}
}

// cleanupTempFiles removes old temporary files from the filesystem
func (s *Service) cleanupTempFiles() {
	fileCount, err := s.fs.CleanOldTempFiles(s.config.TempFileMaxAge)
	if err != nil {
		s.logger.Error("failed to cleanup old temp files", zap.Error(err))
	} else if fileCount > 0 {
		s.logger.Info("cleaned up old temp files", zap.Int("count", fileCount))
	}
}

// pruneJournal removes journal entries older than the retention
func (s *Service) pruneJournal() {
	if s.journal == nil {
		return
	}
	pruned, err := s.journal.Prune(time.Now().Add(-s.config.JournalRetention))
	if err != nil {
		s.logger.Error("failed to prune transfer journal", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("pruned transfer journal", zap.Int("count", pruned))
	}
}
