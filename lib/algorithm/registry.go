// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package algorithm

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps sub-algorithm names and aliases to factories. Names
// keep registration order.
type Registry struct {
	entries []registryEntry
	byName  map[string]int
}

type registryEntry struct {
	name    string
	aliases []string
	factory func() Algorithm
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]int{}}
}

// Register adds a factory. A duplicate name or alias is a programming
// error and panics.
func (r *Registry) Register(name string, factory func() Algorithm, aliases ...string) {
	for _, key := range append([]string{name}, aliases...) {
		if _, exists := r.byName[key]; exists {
			panic(fmt.Sprintf("algorithm: %q registered twice", key))
		}
		r.byName[key] = len(r.entries)
	}
	r.entries = append(r.entries, registryEntry{name: name, aliases: aliases, factory: factory})
}

// Has reports whether name or alias is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns the registered names without aliases.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, entry := range r.entries {
		names[i] = entry.name
	}
	return names
}

func (r *Registry) namesAndAliases() []string {
	var names []string
	for _, entry := range r.entries {
		names = append(names, entry.name)
		names = append(names, entry.aliases...)
	}
	return names
}

func (r *Registry) instantiate(name string) Algorithm {
	index, ok := r.byName[name]
	if !ok {
		return nil
	}
	entry := r.entries[index]
	alg := entry.factory()
	alg.Core().aliases = entry.aliases
	return alg
}

// Instantiate creates the algorithm registered under name or alias.
func (r *Registry) Instantiate(name string) (Algorithm, error) {
	if alg := r.instantiate(name); alg != nil {
		return alg, nil
	}
	if suggestion := suggestWithin(name, r.namesAndAliases(), 2); suggestion != "" {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("Algorithm '%s' is unknown. Do you mean '%s'?", name, suggestion)}
	}
	return nil, &Error{Kind: KindParse, Err: fmt.Errorf("Algorithm '%s' is unknown.", name)}
}

// The process-wide registry holds algorithms contributed from outside
// the package that declares their parent, keyed by call path.
var global struct {
	mu        sync.Mutex
	factories map[string]func() Algorithm
}

// RegisterGlobal makes factory available as the child reached by
// path, e.g. ["geoalg", "raster", "hillshade"].
func RegisterGlobal(path []string, factory func() Algorithm) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.factories == nil {
		global.factories = map[string]func() Algorithm{}
	}
	key := strings.Join(path, " ")
	if _, exists := global.factories[key]; exists {
		panic(fmt.Sprintf("algorithm: %q registered twice", key))
	}
	global.factories[key] = factory
}

func instantiateGlobal(path []string) Algorithm {
	global.mu.Lock()
	factory := global.factories[strings.Join(path, " ")]
	global.mu.Unlock()
	if factory == nil {
		return nil
	}
	return factory()
}

func globalChildren(parent []string) []string {
	prefix := strings.Join(parent, " ") + " "
	global.mu.Lock()
	defer global.mu.Unlock()
	var names []string
	for key := range global.factories {
		rest, ok := strings.CutPrefix(key, prefix)
		if ok && !strings.Contains(rest, " ") {
			names = append(names, rest)
		}
	}
	slices.Sort(names)
	return names
}
