package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformed marks content that was read but could not be decoded.
var ErrMalformed = errors.New("malformed JSON")

// Reader handles file reading operations
type Reader struct{}

// NewReader creates a new filesystem reader
func NewReader() *Reader {
	return &Reader{}
}

// ReadJSON reads and unmarshals JSON from a file. A missing file keeps
// fs.ErrNotExist in the chain; undecodable content is wrapped in ErrMalformed.
func (r *Reader) ReadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}

	return nil
}
