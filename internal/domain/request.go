package domain

// HTTP methods
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodTrace   = "TRACE"
	MethodOptions = "OPTIONS"
	MethodConnect = "CONNECT"
	MethodPatch   = "PATCH"
)

// Content types set for request bodies
const (
	MimeAny                       = "*"
	MimeApplicationJSON           = "application/json"
	MimeApplicationFormURLEncoded = "application/x-www-form-urlencoded"
	MimeApplicationOctetStream    = "application/octet-stream"
)

// NameValue is an ordered name/value pair used for query parameters,
// headers and form fields.
type NameValue struct {
	Name  string
	Value string
}

// Param returns a query parameter
func Param(name, value string) NameValue {
	return NameValue{Name: name, Value: value}
}

// Header returns a request header
func Header(name, value string) NameValue {
	return NameValue{Name: name, Value: value}
}

// Field returns a form field
func Field(name, value string) NameValue {
	return NameValue{Name: name, Value: value}
}

// Encoder is the shared structured encoder handed to structured bodies.
type Encoder interface {
	Marshal(v interface{}) ([]byte, error)
}

// Decoder is the shared structured decoder handed to structured response rules.
type Decoder interface {
	Unmarshal(data []byte, v interface{}) error
}

// BodyKind identifies how a request body is encoded
type BodyKind int

const (
	BodyOctetStream BodyKind = iota
	BodyFormURLEncoded
	BodyStructured
	BodyCustom
)

// RequestBody describes the payload of a request. Use the constructor
// functions; the zero value is an empty octet stream.
type RequestBody struct {
	Kind BodyKind

	Data []byte

	Fields   []NameValue
	Encoding string

	EncodeStructured func(Encoder) ([]byte, error)

	ContentType  string
	Content      interface{}
	EncodeCustom func(interface{}) ([]byte, error)
}

// OctetStream returns a raw bytes body
func OctetStream(data []byte) *RequestBody {
	return &RequestBody{Kind: BodyOctetStream, Data: data}
}

// FormURLEncoded returns a form body whose serialized text is encoded under
// the given character encoding (e.g. "utf-8", "iso-8859-1").
func FormURLEncoded(fields []NameValue, encoding string) *RequestBody {
	return &RequestBody{Kind: BodyFormURLEncoded, Fields: fields, Encoding: encoding}
}

// Structured returns a body produced by encode with the shared encoder
func Structured(encode func(Encoder) ([]byte, error)) *RequestBody {
	return &RequestBody{Kind: BodyStructured, EncodeStructured: encode}
}

// StructuredValue returns a structured body that marshals v
func StructuredValue(v interface{}) *RequestBody {
	return Structured(func(enc Encoder) ([]byte, error) {
		return enc.Marshal(v)
	})
}

// Custom returns a body with a caller declared content type
func Custom(contentType string, content interface{}, encode func(interface{}) ([]byte, error)) *RequestBody {
	return &RequestBody{Kind: BodyCustom, ContentType: contentType, Content: content, EncodeCustom: encode}
}

// MediaType returns the content type header value for the body
func (b *RequestBody) MediaType() string {
	switch b.Kind {
	case BodyFormURLEncoded:
		return MimeApplicationFormURLEncoded
	case BodyStructured:
		return MimeApplicationJSON
	case BodyCustom:
		return b.ContentType
	default:
		return MimeApplicationOctetStream
	}
}

// Request is a declarative description of an HTTP call relative to a base URL.
type Request struct {
	Method  string
	Path    string
	Params  []NameValue
	Headers []NameValue
	Body    *RequestBody
}

// RequestBuilder produces the request to send
type RequestBuilder interface {
	BuildRequest() Request
}

// BuildRequest lets a plain Request act as its own builder
func (r Request) BuildRequest() Request {
	return r
}
