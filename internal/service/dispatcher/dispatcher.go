package dispatcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/port"
	"github.com/vertextoedge/fetchkit/internal/service/resolver"
)

// Codec is the shared structured encoder and decoder
type Codec interface {
	domain.Encoder
	domain.Decoder
}

// Descriptor declares how responses of one call are turned into a T
type Descriptor[T any] struct {
	Rules []resolver.Rule

	// Result builds the value from the resolved rule. When nil the resolved
	// body itself must be a T.
	Result func(res *resolver.Resolution) (T, error)
}

// Dispatcher builds requests relative to a base URL, executes them and
// resolves the responses.
type Dispatcher struct {
	base      *url.URL
	transport port.Transport
	codec     Codec
	resolver  *resolver.Resolver
	logger    *zap.Logger
}

// New creates a new Dispatcher. A nil codec uses sonic's standard
// configuration, a nil logger discards output.
func New(baseURL string, transport port.Transport, codec Codec, logger *zap.Logger) (*Dispatcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if codec == nil {
		codec = sonic.ConfigStd
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		base:      base,
		transport: transport,
		codec:     codec,
		resolver:  resolver.New(codec),
		logger:    logger,
	}, nil
}

// BaseURL returns the URL requests are resolved against
func (d *Dispatcher) BaseURL() string {
	return d.base.String()
}

// Build composes the transport request for b
func (d *Dispatcher) Build(b domain.RequestBuilder) (*port.TransportRequest, error) {
	req, err := compose(d.base, b.BuildRequest(), d.codec)
	if err != nil {
		return nil, &domain.RequestBuildError{Err: err}
	}
	return req, nil
}

// Do builds, executes and resolves one request
func (d *Dispatcher) Do(ctx context.Context, b domain.RequestBuilder, rules []resolver.Rule) (*resolver.Resolution, error) {
	req, err := d.Build(b)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := d.transport.Execute(ctx, req)
	if err != nil {
		d.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Error(err))
		return nil, &domain.RequestExecutionError{Err: err}
	}

	d.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(resp.Body)),
		zap.Duration("elapsed", time.Since(start)))

	res, err := d.resolver.Resolve(rules, resp.StatusCode, resp.Body)
	if err != nil {
		return nil, &domain.ResponseResolutionError{Err: err}
	}
	return res, nil
}

// Send performs the call described by desc and returns its typed result
func Send[T any](ctx context.Context, d *Dispatcher, b domain.RequestBuilder, desc Descriptor[T]) (T, error) {
	var zero T

	res, err := d.Do(ctx, b, desc.Rules)
	if err != nil {
		return zero, err
	}

	if desc.Result != nil {
		v, err := desc.Result(res)
		if err != nil {
			return zero, &domain.ResponseResolutionError{Err: err}
		}
		return v, nil
	}

	v, ok := resolver.BodyAs[T](res)
	if !ok {
		return zero, &domain.ResponseResolutionError{
			Err: fmt.Errorf("rule for status %s produced %T, not %T", res.Rule.Status, res.Body, zero),
		}
	}
	return v, nil
}
