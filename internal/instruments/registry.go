// Package instruments keeps the set of instrument result parsers the importer
// can dispatch to. Parsers register themselves from an init function; the
// binary pulls them in with blank imports.
package instruments

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// Parser turns one instrument export into an Outcome.
type Parser interface {
	Parse(r io.Reader) (*types.Outcome, error)
}

// Definition describes a registered instrument.
type Definition struct {
	// Key is the identifier used by profiles and the --instrument flag.
	Key string

	// Vendor groups definitions in listings.
	Vendor string

	// Title is the human readable instrument name.
	Title string

	// AttachmentFileType names the file type the source export is attached
	// to the batch as.
	AttachmentFileType string

	// New builds a parser for one profile.
	New func(profile config.InstrumentProfile, logger *zap.Logger) (Parser, error)
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds an instrument definition.
// Panics if the key is empty, New is nil, or the key is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Key == "" || def.New == nil {
		panic(fmt.Sprintf("invalid instrument definition: %q", def.Key))
	}
	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("instrument already registered: %s", def.Key))
	}

	registry[def.Key] = def
}

// Get returns an instrument definition by key.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns every definition, sorted by vendor then key.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Vendor != result[j].Vendor {
			return result[i].Vendor < result[j].Vendor
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns the registered keys, sorted.
func Keys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewParser looks up key and builds its parser for profile.
func NewParser(key string, profile config.InstrumentProfile, logger *zap.Logger) (Parser, Definition, error) {
	def, ok := Get(key)
	if !ok {
		return nil, Definition{}, fmt.Errorf("unknown instrument %q (registered: %v)", key, Keys())
	}

	p, err := def.New(profile, logger)
	if err != nil {
		return nil, def, fmt.Errorf("failed to build parser for %s: %w", key, err)
	}
	return p, def, nil
}

// Clear removes all registered instruments.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Definition)
}
