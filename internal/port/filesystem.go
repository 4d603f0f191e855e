package port

import (
	"time"
)

// DiskUsage represents disk usage information of the temp directory
type DiskUsage struct {
	Total   uint64
	Used    uint64
	Free    uint64
	UsedPct float64
}

// FileMover moves finished payloads to their destination
type FileMover interface {
	// MoveFile moves from to to, creating parent directories of to.
	// An existing file at to is replaced.
	MoveFile(from, to string) error
}

// FileSystem defines the filesystem operations used by the transport and CLI
type FileSystem interface {
	FileMover

	// TempDir returns the directory partial downloads are written to
	TempDir() string

	// TempPath returns a new partial-download path for the given id
	TempPath(id string) string

	// GetTempFileInfo returns size and modification time of a temp file
	GetTempFileInfo(tempPath string) (int64, time.Time, error)

	// DeleteTempFile removes a temporary file
	DeleteTempFile(tempPath string) error

	// CleanOldTempFiles removes temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)

	// GetDiskUsage returns usage of the volume holding the temp directory
	GetDiskUsage() (*DiskUsage, error)
}
