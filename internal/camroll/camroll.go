// Package camroll persists the local camera roll: the list of captured photo
// identifiers together with their pixel dimensions.
//
// The on-disk format is a JSON array of [id, [width, height]] tuples. Writes go
// to a temporary file in the same directory which is then renamed over the
// target, so readers never observe a partial file.
package camroll

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileName is the camera roll file inside the data directory.
const FileName = "my_camera_roll.json"

// ErrMalformed is returned when the camera roll file exists but cannot be
// parsed. Startup treats it as fatal.
var ErrMalformed = errors.New("malformed camera roll")

// Entry is one captured photo.
type Entry struct {
	ID     string
	Width  float32
	Height float32
}

// MarshalJSON encodes the entry as [id, [width, height]].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, [2]float32{e.Width, e.Height}})
}

// UnmarshalJSON decodes the [id, [width, height]] tuple form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("camera roll entry has %d elements, want 2", len(tuple))
	}
	var size [2]float32
	if err := json.Unmarshal(tuple[0], &e.ID); err != nil {
		return fmt.Errorf("camera roll id: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &size); err != nil {
		return fmt.Errorf("camera roll size: %w", err)
	}
	e.Width, e.Height = size[0], size[1]
	return nil
}

// DefaultPath returns the camera roll location inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the camera roll at path. The parent directory is created if
// needed. A missing file means no photos yet; a file that cannot be parsed
// yields an error wrapping ErrMalformed.
func Load(path string) ([]Entry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create camera roll dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read camera roll: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, path, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Save atomically replaces the camera roll at path with entries.
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal camera roll: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create camera roll dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("persist camera roll: %w", err)
	}
	return nil
}
