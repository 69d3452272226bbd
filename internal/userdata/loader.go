// Package userdata loads the user's personal exam record from a YAML file.
package userdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"enemtri/domain/exam"
)

// DefaultPath is where the record lives unless configured otherwise.
const DefaultPath = "data/user_data.yaml"

// Loader reads an exam.History from disk. A missing file is a normal
// population-only state, not an error.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given path, falling back to
// DefaultPath when empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultPath
	}
	return &Loader{path: path}
}

// Path returns the configured file location.
func (l *Loader) Path() string { return l.path }

// Load reads and parses the record. ok=false with a nil error means the
// file does not exist.
func (l *Loader) Load(ctx context.Context) (*exam.History, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read user data %s: %w", l.path, err)
	}

	var history exam.History
	if err := yaml.Unmarshal(raw, &history); err != nil {
		return nil, false, fmt.Errorf("parse user data %s: %w", l.path, err)
	}
	return &history, true, nil
}

// Save writes the record back, creating the file with 0644.
func (l *Loader) Save(ctx context.Context, history *exam.History) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := yaml.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("write user data %s: %w", l.path, err)
	}
	return nil
}
