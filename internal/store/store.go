// Package store persists sequencer patterns. Patterns live as JSON files
// in a flat directory, one file per pattern, written atomically. A small
// YAML sidecar remembers which pattern is selected for loading. The
// sequencer itself never touches the filesystem; it only exchanges flat
// event rows with this package.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lightorchestralab/lightorchestra/internal/sequencer"
)

// ErrNotFound is returned when a named pattern does not exist.
var ErrNotFound = errors.New("pattern not found")

// ErrCorrupt is returned when a pattern file cannot be decoded.
var ErrCorrupt = errors.New("corrupt pattern file")

const (
	patternVersion = 1
	patternExt     = ".json"
	selectedFile   = "selected.yaml"
)

// Metadata travels alongside the event rows so a pattern replays at the
// tempo it was recorded with.
type Metadata struct {
	BPM      int `json:"bpm"`
	Channels int `json:"channels"`
}

type payload struct {
	Version  int             `json:"version"`
	SavedMS  int64           `json:"saved_ms"`
	Metadata Metadata        `json:"metadata"`
	Events   []sequencer.Row `json:"events"`
}

// selectedState is the YAML sidecar tracking the pattern the LOAD button
// pulls in next.
type selectedState struct {
	SelectedPattern string `yaml:"selected_pattern"`
	LastUpdated     string `yaml:"last_updated"`
}

// PatternStore is a directory of pattern files.
type PatternStore struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*PatternStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("pattern directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating pattern directory %s: %w", dir, err)
	}
	return &PatternStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (p *PatternStore) Dir() string { return p.dir }

// SanitizeName reduces a pattern name to letters, digits, dash and
// underscore. Empty results become "untitled".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "untitled"
	}
	return out
}

func (p *PatternStore) pathFor(name string) string {
	return filepath.Join(p.dir, SanitizeName(name)+patternExt)
}

// List returns the stored pattern names, sorted.
func (p *PatternStore) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), patternExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), patternExt))
	}
	sort.Strings(names)
	return names, nil
}

// Save writes the pattern atomically: temp file, fsync, rename. An empty
// event list is refused; saving silence is always a caller mistake.
func (p *PatternStore) Save(name string, meta Metadata, rows []sequencer.Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("refusing to save empty pattern %q", name)
	}

	data, err := json.Marshal(payload{
		Version:  patternVersion,
		SavedMS:  time.Now().UnixMilli(),
		Metadata: meta,
		Events:   rows,
	})
	if err != nil {
		return fmt.Errorf("encoding pattern %q: %w", name, err)
	}

	final := p.pathFor(name)
	tmp := final + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing pattern %q: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing pattern %q: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing pattern %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing pattern %q: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing pattern %q: %w", name, err)
	}

	slog.Debug("pattern saved", "name", SanitizeName(name), "events", len(rows))
	return nil
}

// Load reads a pattern back as metadata plus event rows.
func (p *PatternStore) Load(name string) (Metadata, []sequencer.Row, error) {
	data, err := os.ReadFile(p.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil, fmt.Errorf("pattern %q: %w", name, ErrNotFound)
		}
		return Metadata{}, nil, fmt.Errorf("reading pattern %q: %w", name, err)
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return Metadata{}, nil, fmt.Errorf("pattern %q: %w: %v", name, ErrCorrupt, err)
	}
	if pl.Events == nil {
		return Metadata{}, nil, fmt.Errorf("pattern %q: %w: missing events", name, ErrCorrupt)
	}
	return pl.Metadata, pl.Events, nil
}

// Delete removes a pattern. Deleting a missing pattern is not an error.
func (p *PatternStore) Delete(name string) error {
	err := os.Remove(p.pathFor(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting pattern %q: %w", name, err)
	}
	return nil
}

// SetSelected records name as the pattern the next LOAD pulls in.
func (p *PatternStore) SetSelected(name string) error {
	state := selectedState{
		SelectedPattern: SanitizeName(name),
		LastUpdated:     time.Now().Format(time.RFC3339),
	}
	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("encoding selection: %w", err)
	}
	path := filepath.Join(p.dir, selectedFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing selection: %w", err)
	}
	return nil
}

// Selected returns the selected pattern name, or the first stored pattern
// when nothing was ever selected. With no patterns at all it returns
// ErrNotFound.
func (p *PatternStore) Selected() (string, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, selectedFile))
	if err == nil {
		var state selectedState
		if err := yaml.Unmarshal(data, &state); err == nil && state.SelectedPattern != "" {
			if _, statErr := os.Stat(p.pathFor(state.SelectedPattern)); statErr == nil {
				return state.SelectedPattern, nil
			}
		}
	}

	names, err := p.List()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	return names[0], nil
}
