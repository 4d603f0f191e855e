package resolver

import (
	"github.com/bytedance/sonic"

	"github.com/vertextoedge/fetchkit/internal/domain"
)

// Rule maps a status range to a body decoding strategy
type Rule struct {
	Status domain.StatusRange
	Body   Body
}

// On returns a rule decoding bodies of responses within status with body
func On(status domain.StatusRange, body Body) Rule {
	return Rule{Status: status, Body: body}
}

// Resolution is the outcome of resolving a response
type Resolution struct {
	StatusCode int
	// Index is the position of the selected rule in the declared list.
	Index int
	Rule  Rule
	Body  interface{}
}

// BodyAs returns the resolved body as T
func BodyAs[T any](r *Resolution) (T, bool) {
	v, ok := r.Body.(T)
	return v, ok
}

// Resolver selects response rules and decodes bodies with a shared decoder
type Resolver struct {
	decoder domain.Decoder
}

// New creates a Resolver. A nil decoder uses sonic's standard configuration.
func New(decoder domain.Decoder) *Resolver {
	if decoder == nil {
		decoder = sonic.ConfigStd
	}
	return &Resolver{decoder: decoder}
}

// Decoder returns the shared structured decoder
func (r *Resolver) Decoder() domain.Decoder {
	return r.decoder
}

// Select returns the index of the narrowest rule containing statusCode.
// Rules of equal width resolve to the one declared first.
func Select(rules []Rule, statusCode int) (int, error) {
	best := -1
	for i, rule := range rules {
		if !rule.Status.Contains(statusCode) {
			continue
		}
		if best < 0 || rule.Status.Width() < rules[best].Status.Width() {
			best = i
		}
	}
	if best < 0 {
		return -1, &domain.NoMatchingRuleError{StatusCode: statusCode}
	}
	return best, nil
}

// Resolve selects the rule for statusCode and decodes body with it
func (r *Resolver) Resolve(rules []Rule, statusCode int, body []byte) (*Resolution, error) {
	i, err := Select(rules, statusCode)
	if err != nil {
		return nil, err
	}

	rule := rules[i]
	decoded, err := rule.Body.decode(r.decoder, body)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		StatusCode: statusCode,
		Index:      i,
		Rule:       rule,
		Body:       decoded,
	}, nil
}
