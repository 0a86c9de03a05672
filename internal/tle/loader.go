package tle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LoadFiles parses every path and returns the combined entries in file
// order. Element sets for one object may be spread over several files.
func LoadFiles(paths []string, logger *slog.Logger) ([]TLEEntry, error) {
	var all []TLEEntry
	for _, p := range paths {
		entries, err := ParseFile(p, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded TLE file", "path", p, "count", len(entries))
		all = append(all, entries...)
	}
	return all, nil
}

// LoadDataset builds a dataset from files, falling back to the newest cache
// file when no paths are given. It returns nil and no error when there is
// nothing to load.
func LoadDataset(paths []string, cache *Cache, logger *slog.Logger) (*TLEDataset, error) {
	if len(paths) > 0 {
		entries, err := LoadFiles(paths, logger)
		if err != nil {
			return nil, err
		}
		return NewDataset("file:"+strings.Join(paths, ","), time.Now().UTC(), entries), nil
	}
	if cache == nil {
		return nil, nil
	}
	data, ts, err := cache.LoadLatest()
	if err != nil {
		logger.Info("no TLE cache found, starting without TLE data", "error", err)
		return nil, nil
	}
	entries, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing cached TLE data: %w", err)
	}
	logger.Info("loaded TLE data from cache", "count", len(entries), "cached_at", ts.Format(time.RFC3339))
	return NewDataset("cache", ts, entries), nil
}

// Refresh downloads a new dataset, writes it to cache (if any) and installs
// it in store. Concurrent refreshes are serialized.
func Refresh(ctx context.Context, f *Fetcher, cache *Cache, store *Store, logger *slog.Logger) (*TLEDataset, error) {
	store.Lock()
	defer store.Unlock()

	data, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("fetched data from %s contained no element sets", f.SourceURL())
	}

	now := time.Now().UTC()
	if cache != nil {
		if err := cache.Write(data, now); err != nil {
			logger.Warn("failed to write TLE cache", "error", err)
		}
	}
	ds := NewDataset(f.SourceURL(), now, entries)
	store.Set(ds)
	logger.Info("TLE dataset refreshed", "count", len(entries), "objects", ds.ObjectCount())
	return ds, nil
}
