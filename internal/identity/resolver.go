// Package identity maps alternate customer identifiers (phone numbers,
// secondary emails) onto canonical customer ids.
package identity

import (
	"strings"
	"sync"
)

// Resolver stores symmetric identifier links. Links are one hop only:
// resolving never follows chains through intermediate identifiers. That is a
// deliberate scope limit of the linking model, not an optimization.
//
// Safe for concurrent use.
type Resolver struct {
	mu    sync.RWMutex
	links map[string]map[string]struct{}
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{links: make(map[string]map[string]struct{})}
}

// Normalize lowercases and trims an identifier. All Resolver methods
// normalize their inputs with it.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Link records a bidirectional association between two identifiers.
func (r *Resolver) Link(primary, alt string) {
	p := Normalize(primary)
	a := Normalize(alt)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(p, a)
	r.add(a, p)
}

func (r *Resolver) add(from, to string) {
	set, ok := r.links[from]
	if !ok {
		set = make(map[string]struct{})
		r.links[from] = set
	}
	set[to] = struct{}{}
}

// Resolve maps an identifier to a canonical customer id. isCanonical reports
// whether an id is already filed as a customer key. Resolution order: the
// identifier itself, then each directly linked identifier. Unknown
// identifiers resolve to themselves (a new customer); Resolve never fails.
func (r *Resolver) Resolve(identifier string, isCanonical func(string) bool) string {
	id := Normalize(identifier)

	if isCanonical(id) {
		return id
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for linked := range r.links[id] {
		if isCanonical(linked) {
			return linked
		}
	}
	return id
}

// Links returns all stored edges as (a, b) pairs with a < b, for persistence.
func (r *Resolver) Links() [][2]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[[2]string]struct{})
	var out [][2]string
	for from, set := range r.links {
		for to := range set {
			edge := [2]string{from, to}
			if to < from {
				edge = [2]string{to, from}
			}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			out = append(out, edge)
		}
	}
	return out
}
