package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/fetchkit/internal/port"
)

// Options configures the HTTP transport
type Options struct {
	// Timeout bounds one-shot requests. Downloads are not bounded.
	Timeout time.Duration

	// RetryMax is the number of transport-level retries for connection
	// errors and 5xx responses.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	UserAgent     string
	SkipTLSVerify bool

	// MaxBytesPerSecond caps the combined download bandwidth; 0 is unlimited.
	MaxBytesPerSecond int64
	// ProgressInterval is the minimum time between progress events of a
	// handle; 0 reports every chunk.
	ProgressInterval time.Duration
	BufferSize       int
}

// DefaultOptions returns options suitable for most servers
func DefaultOptions() Options {
	return Options{
		Timeout:          30 * time.Second,
		RetryWaitMin:     500 * time.Millisecond,
		RetryWaitMax:     10 * time.Second,
		UserAgent:        "fetchkit/1.0",
		ProgressInterval: 250 * time.Millisecond,
		BufferSize:       64 * 1024,
	}
}

// Transport executes requests and streaming downloads over HTTP
type Transport struct {
	client  *resty.Client
	fs      port.FileSystem
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

// Ensure Transport implements port.Transport
var _ port.Transport = (*Transport)(nil)

// New creates a new HTTP transport writing partial downloads through fs
func New(opts Options, fs port.FileSystem, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64 * 1024
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.Logger = nil
	// Hand the last response to the caller instead of an error so that
	// response rules see 5xx status codes.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.SkipTLSVerify {
		if base, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	client := resty.NewWithClient(retryClient.StandardClient())
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.MaxBytesPerSecond > 0 {
		burst := int(opts.MaxBytesPerSecond)
		if burst < opts.BufferSize {
			burst = opts.BufferSize
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MaxBytesPerSecond), burst)
	}

	return &Transport{
		client:  client,
		fs:      fs,
		limiter: limiter,
		opts:    opts,
		logger:  logger,
	}
}

// Execute performs a one-shot request and buffers the response body
func (t *Transport) Execute(ctx context.Context, req *port.TransportRequest) (*port.TransportResponse, error) {
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	r := t.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaderMultiValues(req.Header)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	return &port.TransportResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// StartDownload begins a fresh download of url into a new temp file
func (t *Transport) StartDownload(url string) (port.DownloadHandle, error) {
	if url == "" {
		return nil, fmt.Errorf("empty download url")
	}
	id := uuid.NewString()
	h := t.newHandle(id, url, t.fs.TempPath(id))
	go h.run(0, "")
	return h, nil
}

// ResumeDownload continues the transfer described by token
func (t *Transport) ResumeDownload(token []byte) (port.DownloadHandle, error) {
	tok, err := decodeToken(token)
	if err != nil {
		return nil, err
	}

	h := t.newHandle(uuid.NewString(), tok.URL, tok.TempPath)
	t.logger.Debug("resuming download",
		zap.String("url", tok.URL),
		zap.String("handle", h.id),
		zap.Int64("offset", tok.Offset))
	go h.run(tok.Offset, tok.Validator)
	return h, nil
}

func (t *Transport) newHandle(id, url, tempPath string) *handle {
	ctx, cancel := context.WithCancel(context.Background())
	return &handle{
		id:        id,
		url:       url,
		tempPath:  tempPath,
		transport: t,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan port.TransferEvent, 8),
	}
}
