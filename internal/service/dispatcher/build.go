package dispatcher

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/port"
	"github.com/vertextoedge/fetchkit/internal/service/resolver"
)

// compose turns a declared request into a transport request. Failures are
// returned unwrapped; Build adds the RequestBuildError.
func compose(base *url.URL, req domain.Request, enc domain.Encoder) (*port.TransportRequest, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = domain.MethodGet
	}

	u := *base
	if req.Path != "" {
		u = *base.JoinPath(req.Path)
	}
	if len(req.Params) > 0 {
		query := encodePairs(req.Params, url.QueryEscape)
		if u.RawQuery != "" {
			u.RawQuery += "&" + query
		} else {
			u.RawQuery = query
		}
	}

	header := make(http.Header, len(req.Headers)+1)
	for _, h := range req.Headers {
		if h.Name == "" {
			return nil, fmt.Errorf("%w: empty header name", domain.ErrInvalidRequest)
		}
		header.Set(h.Name, h.Value)
	}

	out := &port.TransportRequest{
		Method: method,
		URL:    u.String(),
		Header: header,
	}
	if req.Body == nil {
		return out, nil
	}

	body, err := encodeBody(req.Body, enc)
	if err != nil {
		return nil, err
	}
	out.Body = body
	header.Set("Content-Type", req.Body.MediaType())
	return out, nil
}

func encodeBody(b *domain.RequestBody, enc domain.Encoder) ([]byte, error) {
	switch b.Kind {
	case domain.BodyOctetStream:
		return b.Data, nil

	case domain.BodyFormURLEncoded:
		return encodeForm(b.Fields, b.Encoding)

	case domain.BodyStructured:
		if b.EncodeStructured == nil {
			return nil, fmt.Errorf("%w: structured body without encode function", domain.ErrInvalidRequest)
		}
		data, err := b.EncodeStructured(enc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode structured body: %w", err)
		}
		return data, nil

	case domain.BodyCustom:
		if b.EncodeCustom == nil || b.ContentType == "" {
			return nil, fmt.Errorf("%w: custom body needs a content type and encode function", domain.ErrInvalidRequest)
		}
		data, err := b.EncodeCustom(b.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s body: %w", b.ContentType, err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("%w: unknown body kind %d", domain.ErrInvalidRequest, b.Kind)
	}
}

// encodeForm converts names and values to the target charset before
// percent-escaping them, the way browsers submit forms.
func encodeForm(fields []domain.NameValue, charset string) ([]byte, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := resolver.LookupEncoding(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported form encoding %q: %w", charset, err)
	}
	encoder := enc.NewEncoder()

	converted := make([]domain.NameValue, 0, len(fields))
	for _, f := range fields {
		name, err := encoder.String(f.Name)
		if err != nil {
			return nil, fmt.Errorf("field %q is not representable in %s: %w", f.Name, charset, err)
		}
		value, err := encoder.String(f.Value)
		if err != nil {
			return nil, fmt.Errorf("value of field %q is not representable in %s: %w", f.Name, charset, err)
		}
		converted = append(converted, domain.NameValue{Name: name, Value: value})
	}
	return []byte(encodePairs(converted, formEscape)), nil
}

// encodePairs keeps declaration order, unlike url.Values.Encode
func encodePairs(pairs []domain.NameValue, escape func(string) string) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(escape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(escape(p.Value))
	}
	return sb.String()
}

// formEscape percent-escapes every byte outside A-Z a-z 0-9 and "*-._",
// writing space as '+'.
func formEscape(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		}
	}
	return sb.String()
}
