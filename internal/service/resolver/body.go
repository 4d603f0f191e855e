package resolver

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/vertextoedge/fetchkit/internal/domain"
)

// EncodingAuto asks the text strategy to detect the charset of the body
const EncodingAuto = "auto"

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyRaw
	bodyText
	bodyStructured
	bodyCustom
)

// Body is the decoding strategy of a response rule
type Body struct {
	kind       bodyKind
	encoding   string
	structured func(dec domain.Decoder, data []byte) (interface{}, error)
	custom     func(data []byte) (interface{}, error)
}

// None discards the body; the resolved body is nil.
func None() Body {
	return Body{kind: bodyNone}
}

// Raw passes the body through as []byte
func Raw() Body {
	return Body{kind: bodyRaw}
}

// Text decodes the body into a string under the named character encoding.
// An empty name or EncodingAuto detects the charset from the bytes.
func Text(encodingName string) Body {
	return Body{kind: bodyText, encoding: encodingName}
}

// Structured decodes the body with decode, which receives the resolver's
// shared decoder.
func Structured(decode func(dec domain.Decoder, data []byte) (interface{}, error)) Body {
	return Body{kind: bodyStructured, structured: decode}
}

// JSON decodes the body into a value of type T
func JSON[T any]() Body {
	return Structured(func(dec domain.Decoder, data []byte) (interface{}, error) {
		var v T
		if err := dec.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Custom decodes the raw bytes with decode
func Custom(decode func(data []byte) (interface{}, error)) Body {
	return Body{kind: bodyCustom, custom: decode}
}

func (b Body) decode(dec domain.Decoder, data []byte) (interface{}, error) {
	switch b.kind {
	case bodyRaw:
		return data, nil
	case bodyText:
		return decodeText(b.encoding, data)
	case bodyStructured:
		v, err := b.structured(dec, data)
		if err != nil {
			return nil, &domain.StructuredDecodingError{Err: err}
		}
		return v, nil
	case bodyCustom:
		v, err := b.custom(data)
		if err != nil {
			return nil, &domain.CustomDecodingError{Err: err}
		}
		return v, nil
	default:
		return nil, nil
	}
}

func decodeText(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if name == "" || strings.EqualFold(name, EncodingAuto) {
		detected, err := chardet.NewTextDetector().DetectBest(data)
		if err != nil {
			return "", &domain.TextDecodingError{Encoding: EncodingAuto, Err: err}
		}
		name = detected.Charset
	}

	enc, err := LookupEncoding(name)
	if err != nil {
		return "", &domain.TextDecodingError{Encoding: name, Err: err}
	}

	if isUTF8(name) {
		if !utf8.Valid(data) {
			return "", &domain.TextDecodingError{Encoding: name}
		}
		return string(data), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", &domain.TextDecodingError{Encoding: name, Err: err}
	}
	// Decoders substitute U+FFFD for byte sequences the charset cannot map.
	// The body may also encode U+FFFD itself, which survives a round trip.
	if bytes.ContainsRune(out, utf8.RuneError) && !roundTrips(enc, out, data) {
		return "", &domain.TextDecodingError{Encoding: name}
	}
	return string(out), nil
}

// roundTrips reports whether encoding decoded reproduces original
func roundTrips(enc encoding.Encoding, decoded, original []byte) bool {
	again, err := enc.NewEncoder().Bytes(decoded)
	return err == nil && bytes.Equal(again, original)
}

// LookupEncoding resolves IANA names first, so iso-8859-1 means Latin-1 and
// not windows-1252, then WHATWG labels such as x-user-defined.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, nil
	}
	enc, err = htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
