// Package tle loads two-line element sets and selects the one applicable to a
// given instant.
package tle

import (
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when no element set has an epoch at or before the
// requested time.
var ErrNotFound = errors.New("tle: no element set at or before target time")

// TLEEntry is one element set for one object. Entries are immutable once
// parsed.
type TLEEntry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange is the span of epochs in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// TLEDataset is every element set loaded from one source, indexed by object.
type TLEDataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []TLEEntry
	catalogs   map[int]*Catalog
}

// NewDataset builds a dataset and one catalog per NORAD ID.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
		catalogs:   make(map[int]*Catalog),
	}
	for id, group := range GroupByNORAD(entries) {
		ds.catalogs[id] = NewCatalog(group)
	}
	for i, e := range entries {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}

// Catalog returns the epoch-ordered history for one object, or nil.
func (ds *TLEDataset) Catalog(noradID int) *Catalog {
	return ds.catalogs[noradID]
}

// Catalogs returns every object's catalog, ordered by NORAD ID.
func (ds *TLEDataset) Catalogs() []*Catalog {
	ids := make([]int, 0, len(ds.catalogs))
	for id := range ds.catalogs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Catalog, len(ids))
	for i, id := range ids {
		out[i] = ds.catalogs[id]
	}
	return out
}

// ObjectCount returns the number of distinct objects in the dataset.
func (ds *TLEDataset) ObjectCount() int {
	return len(ds.catalogs)
}

// GroupByNORAD splits entries by object, preserving input order within each
// group.
func GroupByNORAD(entries []TLEEntry) map[int][]TLEEntry {
	out := make(map[int][]TLEEntry)
	for _, e := range entries {
		out[e.NORADID] = append(out[e.NORADID], e)
	}
	return out
}
