package propagation

import (
	"fmt"
	"time"

	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

// CatalogSource propagates one object through its element-set history,
// switching to the newest set whose epoch is not after each requested time.
//
// Propagators are built lazily and kept for the currently selected set only.
// A CatalogSource is not safe for concurrent use.
type CatalogSource struct {
	cat     *tle.Catalog
	cursor  *tle.Cursor
	backend Backend

	idx  int
	prop Propagator
	err  error
}

// NewCatalogSource returns a source over cat.
func NewCatalogSource(cat *tle.Catalog, backend Backend) *CatalogSource {
	return &CatalogSource{cat: cat, cursor: cat.Cursor(), backend: backend, idx: -1}
}

// StateAt returns the TEME state at t from the applicable element set.
// Times before the first epoch yield an error wrapping tle.ErrNotFound.
func (s *CatalogSource) StateAt(t time.Time) (transform.PositionTEME, error) {
	sel, err := s.cursor.Advance(t)
	if err != nil {
		return transform.PositionTEME{}, err
	}
	if i := s.cursor.Index(); i != s.idx {
		s.idx = i
		s.prop, s.err = New(s.backend, sel.Entry)
	}
	if s.err != nil {
		return transform.PositionTEME{}, s.err
	}
	return s.prop.Propagate(t)
}

// FixedSource propagates a single element set for every request.
type FixedSource struct {
	Propagator
}

// NewFixedSource builds a source pinned to entry.
func NewFixedSource(backend Backend, entry tle.TLEEntry) (*FixedSource, error) {
	p, err := New(backend, entry)
	if err != nil {
		return nil, fmt.Errorf("fixed source: %w", err)
	}
	return &FixedSource{Propagator: p}, nil
}

// StateAt implements the same contract as CatalogSource.StateAt.
func (s *FixedSource) StateAt(t time.Time) (transform.PositionTEME, error) {
	return s.Propagate(t)
}
