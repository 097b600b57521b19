// Package speech translates recognized speech text into parameter
// updates through the persisted command table.
package speech

import (
	"fmt"
	"strings"

	"github.com/voxosc/voxosc/internal/command"
	"github.com/voxosc/voxosc/internal/osc"
)

// Sender dispatches one parameter update over the wire.
type Sender interface {
	Send(name string, kind osc.Kind, value float32) error
}

// Matcher scans a language's command mappings against recognized text
// and dispatches every match.
type Matcher struct {
	registry *command.Registry
	store    *osc.Store
	sender   Sender
}

// NewMatcher wires the matcher to its registry, parameter store, and sender.
func NewMatcher(registry *command.Registry, store *osc.Store, sender Sender) *Matcher {
	return &Matcher{registry: registry, store: store, sender: sender}
}

// Process matches text against every mapping for language, in registry
// order, using case-insensitive substring matching. Each match sends the
// mapping's fixed value typed by the store's known kind for that
// parameter (Float when the parameter has never been seen) and yields a
// human-readable result line. The first send failure aborts processing
// and discards the results collected so far.
func (m *Matcher) Process(text, language string) ([]string, error) {
	lowered := strings.ToLower(text)
	results := make([]string, 0)

	for _, mapping := range m.registry.List(language) {
		if !strings.Contains(lowered, strings.ToLower(mapping.CommandText)) {
			continue
		}

		kind := osc.KindFloat
		if param, ok := m.store.Get(mapping.ParameterName); ok {
			kind = param.Kind
		}

		if err := m.sender.Send(mapping.ParameterName, kind, mapping.Value); err != nil {
			return nil, fmt.Errorf("send parameter %q: %w", mapping.ParameterName, err)
		}

		// Known parameters track the value we just pushed; unknown ones
		// stay absent until the peer reports them.
		_ = m.store.Set(mapping.ParameterName, mapping.Value)

		results = append(results, fmt.Sprintf("%s -> %s: %v", mapping.CommandText, mapping.ParameterName, mapping.Value))
	}

	return results, nil
}
