package models

import "time"

// Registry is the per-owner measurement store: one owner identity, a mapping
// from location to its latest measurement, and two counters. TotalLocations
// counts distinct keys ever inserted and never decreases (there is no delete
// operation); UpdateCount counts every accepted write, inserts and
// overwrites alike, so UpdateCount >= TotalLocations always holds.
type Registry struct {
	Owner          string                      `json:"owner" db:"owner"`
	Entries        map[LocationKey]Measurement `json:"-" db:"-"`
	TotalLocations uint64                      `json:"total_locations" db:"total_locations"`
	UpdateCount    uint64                      `json:"update_count" db:"update_count"`
	CreatedAt      time.Time                   `json:"created_at" db:"created_at"`
}

// NewRegistry returns an empty registry owned by owner.
func NewRegistry(owner string, createdAt time.Time) *Registry {
	return &Registry{
		Owner:     owner,
		Entries:   make(map[LocationKey]Measurement),
		CreatedAt: createdAt,
	}
}

// Get returns the measurement stored under key.
func (r *Registry) Get(key LocationKey) (Measurement, bool) {
	m, ok := r.Entries[key]
	return m, ok
}

// Contains reports whether key has a stored measurement.
func (r *Registry) Contains(key LocationKey) bool {
	_, ok := r.Entries[key]
	return ok
}

// Put stores m under key, replacing any previous value wholesale. The first
// write for a key grows TotalLocations; every write grows UpdateCount.
// Reports whether the key was newly inserted.
func (r *Registry) Put(key LocationKey, m Measurement) bool {
	_, present := r.Entries[key]
	r.Entries[key] = m
	if !present {
		r.TotalLocations++
	}
	r.UpdateCount++
	return !present
}

// Clone returns a deep copy so callers can hold a snapshot without aliasing
// the live entry map.
func (r *Registry) Clone() *Registry {
	entries := make(map[LocationKey]Measurement, len(r.Entries))
	for k, v := range r.Entries {
		entries[k] = v
	}

	return &Registry{
		Owner:          r.Owner,
		Entries:        entries,
		TotalLocations: r.TotalLocations,
		UpdateCount:    r.UpdateCount,
		CreatedAt:      r.CreatedAt,
	}
}
