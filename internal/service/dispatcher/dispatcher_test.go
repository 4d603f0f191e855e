package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/port"
	"github.com/vertextoedge/fetchkit/internal/service/resolver"
)

type stubTransport struct {
	last *port.TransportRequest
	resp *port.TransportResponse
	err  error
}

func (s *stubTransport) Execute(ctx context.Context, req *port.TransportRequest) (*port.TransportResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubTransport) StartDownload(url string) (port.DownloadHandle, error) {
	return nil, errors.New("not supported")
}

func (s *stubTransport) ResumeDownload(token []byte) (port.DownloadHandle, error) {
	return nil, errors.New("not supported")
}

func newDispatcher(t *testing.T, tr port.Transport) *Dispatcher {
	t.Helper()
	d, err := New("https://api.example.com/v1?key=abc", tr, nil, nil)
	require.NoError(t, err)
	return d
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New("not a url", &stubTransport{}, nil, nil)
	assert.Error(t, err)

	_, err = New("://bad", &stubTransport{}, nil, nil)
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	d := newDispatcher(t, &stubTransport{})

	req, err := d.Build(domain.Request{
		Method: "post",
		Path:   "users/42",
		Params: []domain.NameValue{domain.Param("z", "1"), domain.Param("a", "x y")},
		Headers: []domain.NameValue{
			domain.Header("Content-Type", "text/plain"),
			domain.Header("X-Trace", "one"),
			domain.Header("x-trace", "two"),
		},
		Body: domain.StructuredValue(map[string]int{"n": 1}),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MethodPost, req.Method)
	assert.Equal(t, "https://api.example.com/v1/users/42?key=abc&z=1&a=x+y", req.URL)
	assert.Equal(t, "two", req.Header.Get("X-Trace"))
	assert.Equal(t, domain.MimeApplicationJSON, req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, string(req.Body))
}

func TestBuild_DefaultsToGetWithoutBody(t *testing.T) {
	d := newDispatcher(t, &stubTransport{})

	req, err := d.Build(domain.Request{})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodGet, req.Method)
	assert.Equal(t, "https://api.example.com/v1?key=abc", req.URL)
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Nil(t, req.Body)
}

func TestBuild_Bodies(t *testing.T) {
	d := newDispatcher(t, &stubTransport{})

	tests := []struct {
		name        string
		body        *domain.RequestBody
		contentType string
		want        []byte
	}{
		{
			name:        "octet stream",
			body:        domain.OctetStream([]byte{0, 1}),
			contentType: domain.MimeApplicationOctetStream,
			want:        []byte{0, 1},
		},
		{
			name:        "form utf-8",
			body:        domain.FormURLEncoded([]domain.NameValue{domain.Field("q", "a b&c"), domain.Field("é", "ü")}, ""),
			contentType: domain.MimeApplicationFormURLEncoded,
			want:        []byte("q=a+b%26c&%C3%A9=%C3%BC"),
		},
		{
			name:        "form unreserved set",
			body:        domain.FormURLEncoded([]domain.NameValue{domain.Field("k", "AZaz09*-._~!/ ")}, ""),
			contentType: domain.MimeApplicationFormURLEncoded,
			want:        []byte("k=AZaz09*-._%7E%21%2F+"),
		},
		{
			name:        "form latin-1",
			body:        domain.FormURLEncoded([]domain.NameValue{domain.Field("name", "café")}, "iso-8859-1"),
			contentType: domain.MimeApplicationFormURLEncoded,
			want:        []byte("name=caf%E9"),
		},
		{
			name: "custom",
			body: domain.Custom("text/csv", []string{"a", "b"}, func(v interface{}) ([]byte, error) {
				return []byte("a,b"), nil
			}),
			contentType: "text/csv",
			want:        []byte("a,b"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := d.Build(domain.Request{Method: domain.MethodPut, Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, req.Header.Get("Content-Type"))
			assert.Equal(t, tt.want, req.Body)
		})
	}
}

func TestBuild_Failures(t *testing.T) {
	d := newDispatcher(t, &stubTransport{})

	bodies := map[string]*domain.RequestBody{
		"unknown charset":       domain.FormURLEncoded(nil, "klingon"),
		"unrepresentable value": domain.FormURLEncoded([]domain.NameValue{domain.Field("k", "日本")}, "iso-8859-1"),
		"structured error": domain.Structured(func(domain.Encoder) ([]byte, error) {
			return nil, errors.New("cycle")
		}),
		"custom without type": domain.Custom("", nil, func(interface{}) ([]byte, error) { return nil, nil }),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := d.Build(domain.Request{Method: domain.MethodPost, Body: body})
			var buildErr *domain.RequestBuildError
			assert.ErrorAs(t, err, &buildErr)
		})
	}
}

type greeting struct {
	Message string `json:"message"`
}

func TestSend(t *testing.T) {
	tr := &stubTransport{resp: &port.TransportResponse{StatusCode: 200, Body: []byte(`{"message":"hi"}`)}}
	d := newDispatcher(t, tr)

	got, err := Send(context.Background(), d, domain.Request{Path: "hello"}, Descriptor[greeting]{
		Rules: []resolver.Rule{
			resolver.On(domain.StatusSuccess, resolver.JSON[greeting]()),
			resolver.On(domain.StatusAny, resolver.Raw()),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Message)
	assert.Equal(t, "https://api.example.com/v1/hello?key=abc", tr.last.URL)
}

func TestSend_ResultCallback(t *testing.T) {
	tr := &stubTransport{resp: &port.TransportResponse{StatusCode: 404, Body: []byte("gone")}}
	d := newDispatcher(t, tr)

	type outcome struct {
		found bool
		text  string
	}
	got, err := Send(context.Background(), d, domain.Request{}, Descriptor[outcome]{
		Rules: []resolver.Rule{
			resolver.On(domain.StatusClientError, resolver.None()),
			resolver.On(domain.StatusNotFound, resolver.Text("utf-8")),
		},
		Result: func(res *resolver.Resolution) (outcome, error) {
			text, _ := resolver.BodyAs[string](res)
			return outcome{found: res.StatusCode != 404, text: text}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, outcome{found: false, text: "gone"}, got)
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()

	d := newDispatcher(t, &stubTransport{err: errors.New("dial tcp: refused")})
	_, err := Send(ctx, d, domain.Request{}, Descriptor[[]byte]{Rules: []resolver.Rule{resolver.On(domain.StatusAny, resolver.Raw())}})
	var execErr *domain.RequestExecutionError
	assert.ErrorAs(t, err, &execErr)

	d = newDispatcher(t, &stubTransport{resp: &port.TransportResponse{StatusCode: 500}})
	_, err = Send(ctx, d, domain.Request{}, Descriptor[[]byte]{Rules: []resolver.Rule{resolver.On(domain.StatusSuccess, resolver.Raw())}})
	assert.True(t, domain.IsResolutionFailure(err))
	code, ok := domain.GetNoMatchingStatus(err)
	assert.True(t, ok)
	assert.Equal(t, 500, code)

	d = newDispatcher(t, &stubTransport{resp: &port.TransportResponse{StatusCode: 200, Body: []byte("x")}})
	_, err = Send(ctx, d, domain.Request{}, Descriptor[int]{Rules: []resolver.Rule{resolver.On(domain.StatusAny, resolver.Raw())}})
	assert.True(t, domain.IsResolutionFailure(err))
}
