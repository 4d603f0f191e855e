package port

import (
	"context"
	"errors"
	"net/http"
)

// ErrCanceled is the cancellation-class error a download handle finishes with
// after Cancel or CancelForResume.
var ErrCanceled = errors.New("transfer canceled")

// TransportRequest is a fully composed one-shot request
type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// TransportResponse is the buffered result of a one-shot request
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// TransferEventKind is the closed set of callbacks a download handle emits
type TransferEventKind int

const (
	// EventProgress reports cumulative bytes written.
	EventProgress TransferEventKind = iota
	// EventPayloadReady reports where the finished payload was written.
	// It always precedes EventFinished for a successful transfer.
	EventPayloadReady
	// EventResumeData carries the token produced by CancelForResume.
	// It may arrive before or after EventFinished.
	EventResumeData
	// EventFinished is the last event of a handle. Err is nil on success.
	EventFinished
)

func (k TransferEventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventPayloadReady:
		return "payload_ready"
	case EventResumeData:
		return "resume_data"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TransferEvent is a single callback from a download handle
type TransferEvent struct {
	Kind TransferEventKind

	BytesWritten int64
	// TotalExpected is -1 when the transport does not know the size.
	TotalExpected int64

	Location   string
	ResumeData []byte
	Err        error
}

// DownloadHandle is a live streaming transfer. Events is closed after
// all events, including any late EventResumeData, have been delivered.
type DownloadHandle interface {
	ID() string
	URL() string
	Events() <-chan TransferEvent

	// Cancel stops the transfer without producing resume data.
	Cancel()

	// CancelForResume stops the transfer and delivers an EventResumeData
	// when the partial payload can be continued.
	CancelForResume()
}

// Transport executes one-shot requests and starts streaming downloads.
// StartDownload and ResumeDownload are called with the download registry
// locked: they must return without network or disk I/O and leave the
// transfer to the handle.
type Transport interface {
	Execute(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

	StartDownload(url string) (DownloadHandle, error)

	// ResumeDownload continues a transfer from a token produced by
	// CancelForResume. Tokens are opaque to callers.
	ResumeDownload(token []byte) (DownloadHandle, error)
}

// IsCanceled reports whether a transfer error is a cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
