package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// InputErrorKind classifies why an invocation argument could not be read.
type InputErrorKind int

const (
	InvalidJSON InputErrorKind = iota
	FileNotFound
	ReadFailed
)

// InputError is returned when the raw input cannot be turned into a Record.
type InputError struct {
	Kind InputErrorKind
	Err  error
}

func (e *InputError) Error() string {
	switch e.Kind {
	case InvalidJSON:
		return fmt.Sprintf("Invalid JSON input: %v", e.Err)
	case FileNotFound:
		return fmt.Sprintf("File not found: %v", e.Err)
	default:
		return fmt.Sprintf("Prediction failed: %v", e.Err)
	}
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Parse reads an invocation argument. Arguments ending in .json are treated
// as file paths, anything else as literal JSON text.
func Parse(arg string) (Record, error) {
	if strings.HasSuffix(arg, ".json") {
		return ParseFile(arg)
	}
	return Decode([]byte(arg))
}

// ParseFile reads a JSON object from path.
func ParseFile(path string) (Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is supplied by the caller on purpose
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputError{Kind: FileNotFound, Err: err}
		}
		return nil, &InputError{Kind: ReadFailed, Err: err}
	}
	return Decode(data)
}

// Decode parses a JSON object into a Record.
func Decode(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &InputError{Kind: InvalidJSON, Err: errors.New("empty input")}
	}
	if trimmed[0] != '{' {
		var value any
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return nil, &InputError{Kind: InvalidJSON, Err: err}
		}
		return nil, &InputError{Kind: InvalidJSON, Err: fmt.Errorf("expected a JSON object, got %T", value)}
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, &InputError{Kind: InvalidJSON, Err: err}
	}
	return rec, nil
}
