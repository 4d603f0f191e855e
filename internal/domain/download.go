package domain

// DownloadState is the lifecycle state carried on each published progress value
type DownloadState int

const (
	DownloadActive DownloadState = iota
	DownloadPaused
	DownloadCompleted
	DownloadStopped
)

func (s DownloadState) String() string {
	switch s {
	case DownloadActive:
		return "active"
	case DownloadPaused:
		return "paused"
	case DownloadCompleted:
		return "completed"
	case DownloadStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Download is the progress value published for a resource.
type Download struct {
	URL         string
	Destination string
	// Progress is in [0, 1] when a total size is known, 0 otherwise.
	Progress float64
	State    DownloadState
}

// ComputeProgress prefers the caller declared size over the transport total.
// Both are ignored unless positive. The result is clamped to [0, 1].
func ComputeProgress(bytesWritten, expectedSize, transportTotal int64) float64 {
	var total int64
	switch {
	case expectedSize > 0:
		total = expectedSize
	case transportTotal > 0:
		total = transportTotal
	default:
		return 0
	}
	if bytesWritten <= 0 {
		return 0
	}
	if bytesWritten >= total {
		return 1
	}
	return float64(bytesWritten) / float64(total)
}
