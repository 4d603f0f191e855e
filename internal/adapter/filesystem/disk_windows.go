//go:build windows
// +build windows

package filesystem

import (
	"errors"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// GetDiskUsage is not implemented on windows
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	return nil, errors.New("disk usage is not supported on windows")
}
