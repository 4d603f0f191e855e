package domain

import "fmt"

// StatusRange is a closed interval of HTTP status codes.
type StatusRange struct {
	Min int
	Max int
}

// Named status ranges
var (
	StatusSuccess             = StatusRange{200, 299}
	StatusClientError         = StatusRange{400, 499}
	StatusBadRequest          = StatusRange{400, 400}
	StatusUnauthorized        = StatusRange{401, 401}
	StatusForbidden           = StatusRange{403, 403}
	StatusNotFound            = StatusRange{404, 404}
	StatusServerError         = StatusRange{500, 599}
	StatusInternalServerError = StatusRange{500, 500}
	StatusNotImplemented      = StatusRange{501, 501}
	StatusBadGateway          = StatusRange{502, 502}
	StatusServiceUnavailable  = StatusRange{503, 503}
	StatusGatewayTimeout      = StatusRange{504, 504}

	// StatusAny matches every three digit status code.
	StatusAny = StatusRange{0, 999}
)

// StatusCode returns a range matching exactly one status code.
func StatusCode(code int) StatusRange {
	return StatusRange{Min: code, Max: code}
}

// Contains reports whether code lies within the range.
func (r StatusRange) Contains(code int) bool {
	return code >= r.Min && code <= r.Max
}

// Width returns the number of status codes in the range.
func (r StatusRange) Width() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

func (r StatusRange) String() string {
	if r.Min == r.Max {
		return fmt.Sprintf("%d", r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
