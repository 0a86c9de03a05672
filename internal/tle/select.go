package tle

import (
	"fmt"
	"sort"
	"time"
)

// Selection is the element set chosen for a target time.
type Selection struct {
	Entry TLEEntry `json:"entry"`
	// AgeDays is target minus epoch, in days. Never negative.
	AgeDays float64 `json:"age_days"`
}

// Epoch returns the selected element set's epoch.
func (s Selection) Epoch() time.Time { return s.Entry.Epoch }

func newSelection(e TLEEntry, target time.Time) Selection {
	return Selection{Entry: e, AgeDays: target.Sub(e.Epoch).Hours() / 24}
}

// Select returns the entry with the latest epoch not after target. Among
// entries with equal epochs the later one in entries wins. Element sets
// are never extrapolated backwards: if every epoch postdates target the
// result is ErrNotFound.
func Select(entries []TLEEntry, target time.Time) (Selection, error) {
	best := -1
	for i, e := range entries {
		if e.Epoch.After(target) {
			continue
		}
		if best < 0 || !e.Epoch.Before(entries[best].Epoch) {
			best = i
		}
	}
	if best < 0 {
		return Selection{}, fmt.Errorf("%w: %s", ErrNotFound, target.UTC().Format(time.RFC3339))
	}
	return newSelection(entries[best], target), nil
}

// Catalog is an immutable, epoch-ordered history of element sets for one
// object. It is safe for concurrent use.
type Catalog struct {
	entries []TLEEntry
}

// NewCatalog copies entries and sorts them by epoch, keeping input order for
// equal epochs.
func NewCatalog(entries []TLEEntry) *Catalog {
	sorted := make([]TLEEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Epoch.Before(sorted[j].Epoch)
	})
	return &Catalog{entries: sorted}
}

// Len returns the number of element sets.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns the element sets in epoch order. The slice must not be
// modified.
func (c *Catalog) Entries() []TLEEntry { return c.entries }

// Range returns the first and last epochs.
func (c *Catalog) Range() EpochRange {
	if len(c.entries) == 0 {
		return EpochRange{}
	}
	return EpochRange{Min: c.entries[0].Epoch, Max: c.entries[len(c.entries)-1].Epoch}
}

// Select is Select over the catalog, by binary search.
func (c *Catalog) Select(target time.Time) (Selection, error) {
	i := c.index(target)
	if i < 0 {
		return Selection{}, fmt.Errorf("%w: %s", ErrNotFound, target.UTC().Format(time.RFC3339))
	}
	return newSelection(c.entries[i], target), nil
}

// index returns the position of the latest entry with epoch <= target, or -1.
func (c *Catalog) index(target time.Time) int {
	return sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Epoch.After(target)
	}) - 1
}

// Cursor returns a forward-moving selector over the catalog, for callers
// that step through time in increasing order.
func (c *Catalog) Cursor() *Cursor {
	return &Cursor{cat: c, idx: -1}
}

// Cursor remembers the last selected index so that a run of non-decreasing
// targets costs amortised O(1) per step. A Cursor is not safe for
// concurrent use; give each goroutine its own.
type Cursor struct {
	cat  *Catalog
	idx  int
	last time.Time
}

// Advance returns the selection for target. For non-decreasing targets the
// index only moves forward. A target earlier than the previous one makes the
// cursor re-seek, so it never hands out an element set newer than target.
func (cur *Cursor) Advance(target time.Time) (Selection, error) {
	entries := cur.cat.entries
	if cur.idx < 0 || target.Before(cur.last) {
		cur.idx = cur.cat.index(target)
	} else {
		for cur.idx+1 < len(entries) && !entries[cur.idx+1].Epoch.After(target) {
			cur.idx++
		}
	}
	cur.last = target

	if cur.idx < 0 {
		return Selection{}, fmt.Errorf("%w: %s", ErrNotFound, target.UTC().Format(time.RFC3339))
	}
	return newSelection(entries[cur.idx], target), nil
}

// Index returns the current position in the catalog, -1 before the first
// successful Advance.
func (cur *Cursor) Index() int { return cur.idx }
