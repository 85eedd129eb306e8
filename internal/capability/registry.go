// Package capability keeps named Generator and Enricher strategies so the
// configured strategy can be resolved at startup.
package capability

import (
	"fmt"
	"sort"

	"ArticleFactory/internal/ports"
)

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	generators map[string]ports.Generator
	enrichers  map[string]ports.Enricher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: map[string]ports.Generator{},
		enrichers:  map[string]ports.Enricher{},
	}
}

// RegisterGenerator adds or replaces a generator implementation.
func (r *Registry) RegisterGenerator(g ports.Generator) {
	r.generators[g.Name()] = g
}

// RegisterEnricher adds or replaces an enricher implementation.
func (r *Registry) RegisterEnricher(e ports.Enricher) {
	r.enrichers[e.Name()] = e
}

// Generator returns a generator by name or an error if it is absent.
func (r *Registry) Generator(name string) (ports.Generator, error) {
	if g, ok := r.generators[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("generator %q is not registered (have %v)", name, keys(r.generators))
}

// Enricher returns an enricher by name or an error if it is absent.
func (r *Registry) Enricher(name string) (ports.Enricher, error) {
	if e, ok := r.enrichers[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("enricher %q is not registered (have %v)", name, keys(r.enrichers))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
