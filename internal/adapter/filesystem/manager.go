package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// TempSuffix marks partial downloads
const TempSuffix = ".downloading"

// Manager handles local filesystem operations
type Manager struct {
	tempDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(tempDir string) (*Manager, error) {
	return NewManagerWithBufferSize(tempDir, 1024*1024) // 1MB default
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(tempDir string, bufferSize int) (*Manager, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 1024 * 1024
	}

	return &Manager{
		tempDir:    tempDir,
		bufferSize: bufferSize,
	}, nil
}

// TempDir returns the directory partial downloads are written to
func (m *Manager) TempDir() string {
	return m.tempDir
}

// TempPath returns the partial-download path for id
func (m *Manager) TempPath(id string) string {
	return filepath.Join(m.tempDir, id+TempSuffix)
}

// EnsureDir ensures the directory for a file path exists
func (m *Manager) EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}

// MoveFile renames from to to. When both live on different devices the
// content is copied and the source removed.
func (m *Manager) MoveFile(from, to string) error {
	if err := m.EnsureDir(to); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	if err := m.copyFile(from, to); err != nil {
		return err
	}
	if err := os.Remove(from); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove moved file: %w", err)
	}
	return nil
}

func (m *Manager) copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	tmp := to + TempSuffix
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmp, to); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename copied file: %w", err)
	}
	return nil
}

// GetTempFileInfo returns size and modification time of a temp file
// Returns error if file does not exist
func (m *Manager) GetTempFileInfo(tempPath string) (int64, time.Time, error) {
	info, err := os.Stat(tempPath)
	if err != nil {
		return 0, time.Time{}, err
	}
	return info.Size(), info.ModTime(), nil
}

// DeleteTempFile removes a temporary file
func (m *Manager) DeleteTempFile(tempPath string) error {
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete temp file: %w", err)
	}
	return nil
}

// CleanOldTempFiles removes temp files older than the specified duration
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	err := filepath.Walk(m.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != TempSuffix {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
