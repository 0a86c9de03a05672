package tle

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Store holds the current dataset. Readers never block; a refresh builds a
// new dataset and swaps it in whole, so catalogs handed out earlier stay
// valid and unchanged for the rest of a prediction run.
type Store struct {
	dataset atomic.Pointer[TLEDataset]
	mu      sync.Mutex // serializes refreshes
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *TLEDataset {
	return s.dataset.Load()
}

// Set replaces the current dataset.
func (s *Store) Set(ds *TLEDataset) {
	s.dataset.Store(ds)
}

// Catalog returns the history for one object from the current dataset.
func (s *Store) Catalog(noradID int) (*Catalog, error) {
	ds := s.dataset.Load()
	if ds == nil {
		return nil, fmt.Errorf("%w: no element sets loaded", ErrNotFound)
	}
	c := ds.Catalog(noradID)
	if c == nil {
		return nil, fmt.Errorf("%w: NORAD %d not in dataset", ErrNotFound, noradID)
	}
	return c, nil
}

// AgeSeconds returns seconds since the current dataset was fetched, or -1.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}

// Lock and Unlock serialize refresh operations.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }
