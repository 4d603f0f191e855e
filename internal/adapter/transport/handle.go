package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/fetchkit/internal/port"
)

type cancelMode int

const (
	cancelNone cancelMode = iota
	cancelStop
	cancelPause
)

// ErrInsufficientSpace is returned when the announced payload does not fit
// on the volume of the temp directory.
var ErrInsufficientSpace = errors.New("insufficient disk space")

// handle is one streaming transfer into a temp file
type handle struct {
	id        string
	url       string
	tempPath  string
	transport *Transport

	ctx    context.Context
	cancel context.CancelFunc
	events chan port.TransferEvent

	mu   sync.Mutex
	mode cancelMode
}

// Ensure handle implements port.DownloadHandle
var _ port.DownloadHandle = (*handle)(nil)

func (h *handle) ID() string                        { return h.id }
func (h *handle) URL() string                       { return h.url }
func (h *handle) Events() <-chan port.TransferEvent { return h.events }

func (h *handle) Cancel() {
	h.requestCancel(cancelStop)
}

func (h *handle) CancelForResume() {
	h.requestCancel(cancelPause)
}

// requestCancel keeps the first requested mode
func (h *handle) requestCancel(mode cancelMode) {
	h.mu.Lock()
	if h.mode == cancelNone {
		h.mode = mode
	}
	h.mu.Unlock()
	h.cancel()
}

func (h *handle) currentMode() cancelMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

func (h *handle) emit(ev port.TransferEvent) {
	h.events <- ev
}

// run performs the transfer starting at offset and emits the final events.
func (h *handle) run(offset int64, validator string) {
	defer close(h.events)
	defer h.cancel()

	written, newValidator, err := h.transfer(h.resumeOffset(offset), validator)
	if err == nil {
		h.emit(port.TransferEvent{Kind: port.EventPayloadReady, Location: h.tempPath})
		h.emit(port.TransferEvent{Kind: port.EventFinished})
		return
	}

	if h.ctx.Err() == nil {
		h.discard()
		h.emit(port.TransferEvent{Kind: port.EventFinished, Err: err})
		return
	}

	if h.currentMode() == cancelPause {
		token, tokErr := encodeToken(resumeToken{
			URL:       h.url,
			TempPath:  h.tempPath,
			Offset:    written,
			Validator: newValidator,
		})
		if tokErr == nil {
			h.emit(port.TransferEvent{Kind: port.EventResumeData, ResumeData: token})
		} else {
			h.transport.logger.Warn("failed to produce resume data", zap.String("url", h.url), zap.Error(tokErr))
			h.discard()
		}
	} else {
		h.discard()
	}
	h.emit(port.TransferEvent{Kind: port.EventFinished, Err: port.ErrCanceled})
}

// resumeOffset clamps offset to the bytes present in the temp file. A
// missing file starts over under the same name.
func (h *handle) resumeOffset(offset int64) int64 {
	if offset <= 0 {
		return 0
	}
	size, _, err := h.transport.fs.GetTempFileInfo(h.tempPath)
	switch {
	case err != nil:
		return 0
	case size < offset:
		return size
	}
	return offset
}

func (h *handle) discard() {
	if err := h.transport.fs.DeleteTempFile(h.tempPath); err != nil {
		h.transport.logger.Warn("failed to delete partial download",
			zap.String("path", h.tempPath),
			zap.Error(err))
	}
}

// transfer streams the body into the temp file. It returns the number of
// bytes present in the temp file and the validator for a later resume.
func (h *handle) transfer(offset int64, validator string) (int64, string, error) {
	t := h.transport

	req := t.client.R().
		SetContext(h.ctx).
		SetDoNotParseResponse(true)
	if offset > 0 {
		req.SetHeader("Range", fmt.Sprintf("bytes=%d-", offset))
		if validator != "" {
			req.SetHeader("If-Range", validator)
		}
	}

	resp, err := req.Get(h.url)
	if err != nil {
		return offset, validator, err
	}
	body := resp.RawBody()
	defer body.Close()

	raw := resp.RawResponse
	switch {
	case raw.StatusCode == http.StatusPartialContent && offset > 0:
		if start, ok := contentRangeStart(raw.Header.Get("Content-Range")); ok && start != offset {
			return offset, validator, fmt.Errorf("server resumed at byte %d, expected %d", start, offset)
		}
	case raw.StatusCode >= 200 && raw.StatusCode < 300:
		// The server ignored the range or the validator changed.
		offset = 0
	default:
		return offset, validator, fmt.Errorf("unexpected status %d", raw.StatusCode)
	}

	validator = responseValidator(raw.Header)
	total := int64(-1)
	if raw.ContentLength >= 0 {
		total = offset + raw.ContentLength
	}
	if err := h.checkSpace(raw.ContentLength); err != nil {
		return offset, validator, err
	}

	file, err := os.OpenFile(h.tempPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return offset, validator, fmt.Errorf("failed to open temp file: %w", err)
	}
	defer file.Close()
	if err := file.Truncate(offset); err != nil {
		return offset, validator, fmt.Errorf("failed to truncate temp file: %w", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, validator, fmt.Errorf("failed to seek temp file: %w", err)
	}

	written := offset
	report := &rate.Sometimes{Interval: t.opts.ProgressInterval}
	if t.opts.ProgressInterval <= 0 {
		report.Every = 1
	}

	buf := make([]byte, t.opts.BufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := t.limiter.WaitN(h.ctx, n); err != nil {
				return written, validator, err
			}
			if _, err := file.Write(buf[:n]); err != nil {
				return written, validator, fmt.Errorf("failed to write temp file: %w", err)
			}
			written += int64(n)
			report.Do(func() {
				h.emit(port.TransferEvent{Kind: port.EventProgress, BytesWritten: written, TotalExpected: total})
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, validator, readErr
		}
	}

	if total >= 0 && written != total {
		return written, validator, fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	if err := file.Sync(); err != nil {
		return written, validator, fmt.Errorf("failed to sync temp file: %w", err)
	}

	h.emit(port.TransferEvent{Kind: port.EventProgress, BytesWritten: written, TotalExpected: total})
	t.logger.Debug("download finished",
		zap.String("url", h.url),
		zap.String("handle", h.id),
		zap.String("size", humanize.Bytes(uint64(written))))
	return written, validator, nil
}

// checkSpace fails early when the announced remainder cannot fit
func (h *handle) checkSpace(remaining int64) error {
	if remaining <= 0 {
		return nil
	}
	usage, err := h.transport.fs.GetDiskUsage()
	if err != nil {
		return nil
	}
	if uint64(remaining) > usage.Free {
		return fmt.Errorf("%w: need %s, %s free", ErrInsufficientSpace,
			humanize.Bytes(uint64(remaining)), humanize.Bytes(usage.Free))
	}
	return nil
}

// responseValidator returns a value usable as If-Range. Weak ETags are not
// allowed there, so Last-Modified is used instead.
func responseValidator(header http.Header) string {
	if etag := header.Get("ETag"); etag != "" && !strings.HasPrefix(etag, "W/") {
		return etag
	}
	return header.Get("Last-Modified")
}

// contentRangeStart parses the first byte position of "bytes a-b/n"
func contentRangeStart(value string) (int64, bool) {
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}
