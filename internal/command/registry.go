// Package command stores per-language speech command mappings and keeps
// them persisted as a single JSON document.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Mapping associates one spoken phrase with the parameter update to
// issue when that phrase is detected.
type Mapping struct {
	CommandText   string  `json:"command_text"`
	ParameterName string  `json:"parameter_name"`
	Value         float32 `json:"value"`
}

// Registry is the mutex-guarded language -> ordered mapping table.
// Every mutation is followed by a whole-file write of the registry; the
// write happens with the lock released, so the only cross-process
// guarantee is that the last completed write wins.
type Registry struct {
	path string

	mu        sync.Mutex
	languages map[string][]Mapping
}

// NewRegistry builds an empty registry persisting to path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path, languages: make(map[string][]Mapping)}
}

// Path returns the registry's persistence location.
func (r *Registry) Path() string {
	return r.path
}

// Load replaces the in-memory table from disk. A missing file is an
// empty registry; a malformed file is fatal.
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read commands file %q: %w", r.path, err)
	}

	loaded := make(map[string][]Mapping)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse commands file %q: %w", r.path, err)
	}

	r.mu.Lock()
	r.languages = loaded
	r.mu.Unlock()
	return nil
}

// Save writes the full registry to disk.
func (r *Registry) Save() error {
	return r.persist(r.snapshot())
}

// Upsert adds a mapping to language's list, replacing in place when a
// mapping with the same (command text, parameter name) pair exists, and
// persists the registry. The in-memory mutation is kept even when the
// write fails.
func (r *Registry) Upsert(language string, mapping Mapping) error {
	r.mu.Lock()
	list := r.languages[language]
	replaced := false
	for i, existing := range list {
		if existing.CommandText == mapping.CommandText && existing.ParameterName == mapping.ParameterName {
			list[i] = mapping
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, mapping)
	}
	r.languages[language] = list
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(snapshot)
}

// Remove deletes every mapping in language's list matching the pair and
// reports whether anything was removed. The registry is persisted only
// when something changed.
func (r *Registry) Remove(language, commandText, parameterName string) (bool, error) {
	r.mu.Lock()
	list := r.languages[language]
	kept := list[:0]
	for _, m := range list {
		if m.CommandText == commandText && m.ParameterName == parameterName {
			continue
		}
		kept = append(kept, m)
	}
	removed := len(kept) < len(list)
	if removed {
		r.languages[language] = kept
	}
	var snapshot map[string][]Mapping
	if removed {
		snapshot = r.snapshotLocked()
	}
	r.mu.Unlock()

	if !removed {
		return false, nil
	}
	return true, r.persist(snapshot)
}

// List returns a copy of language's mappings in registry order. Unknown
// languages yield an empty list, not an error.
func (r *Registry) List(language string) []Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mapping, len(r.languages[language]))
	copy(out, r.languages[language])
	return out
}

func (r *Registry) snapshot() map[string][]Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// snapshotLocked deep-copies the table; callers hold r.mu.
func (r *Registry) snapshotLocked() map[string][]Mapping {
	out := make(map[string][]Mapping, len(r.languages))
	for language, list := range r.languages {
		out[language] = append([]Mapping(nil), list...)
	}
	return out
}

// persist writes one snapshot as pretty-printed JSON.
func (r *Registry) persist(snapshot map[string][]Mapping) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize commands: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("ensure commands dir: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("write commands file %q: %w", r.path, err)
	}
	return nil
}
