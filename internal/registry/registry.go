// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package registry

import (
	"slices"
	"sync"

	"github.com/wneessen/weather-session/internal/weather"
)

// Registry is a concurrency-safe, insertion-ordered set of saved locations keyed by
// provider city id. Entries are never mutated, only added or removed.
type Registry struct {
	mu        sync.RWMutex
	locations []weather.LocationRef
	index     map[int64]int
}

func New() *Registry {
	return &Registry{index: make(map[int64]int)}
}

// Add appends the location unless its id is already known. It reports whether the
// location was added.
func (r *Registry) Add(ref weather.LocationRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[ref.ID]; ok {
		return false
	}
	r.index[ref.ID] = len(r.locations)
	r.locations = append(r.locations, ref)
	return true
}

// Remove deletes the location with the given id. It reports whether a location was removed.
func (r *Registry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[id]
	if !ok {
		return false
	}
	r.locations = slices.Delete(r.locations, pos, pos+1)
	delete(r.index, id)
	for i := pos; i < len(r.locations); i++ {
		r.index[r.locations[i].ID] = i
	}
	return true
}

// Get returns the location with the given id.
func (r *Registry) Get(id int64) (weather.LocationRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[id]
	if !ok {
		return weather.LocationRef{}, false
	}
	return r.locations[pos], true
}

// List returns a copy of the saved locations in first-insertion order.
func (r *Registry) List() []weather.LocationRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.locations)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locations)
}
