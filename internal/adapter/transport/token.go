package transport

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/vertextoedge/fetchkit/internal/domain"
)

// resumeToken is the content of the opaque resume data of a paused handle
type resumeToken struct {
	URL      string `json:"url"`
	TempPath string `json:"temp_path"`
	Offset   int64  `json:"offset"`
	// Validator is the strong ETag or Last-Modified value sent as If-Range.
	Validator string `json:"validator,omitempty"`
}

func encodeToken(tok resumeToken) ([]byte, error) {
	data, err := sonic.Marshal(&tok)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume token: %w", err)
	}
	return data, nil
}

func decodeToken(data []byte) (*resumeToken, error) {
	var tok resumeToken
	if err := sonic.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTransferToken, err)
	}
	if tok.URL == "" || tok.TempPath == "" || tok.Offset < 0 {
		return nil, domain.ErrInvalidTransferToken
	}
	return &tok, nil
}
