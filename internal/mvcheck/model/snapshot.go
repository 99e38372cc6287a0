package model

import "slices"

// Snapshot is the set of rows read from a table or a single view replica at some point in time.
// The order rows were fetched in is not retained, so nothing derived from a snapshot depends on it.
type Snapshot struct {
	// Every r read for a key, in no particular order until sorted by values.
	rows map[Key][]int32
}

// NewSnapshot builds a snapshot from rows in any order.
func NewSnapshot(rows []Row) *Snapshot {
	s := &Snapshot{rows: make(map[Key][]int32, len(rows))}
	for _, row := range rows {
		s.Add(row)
	}
	return s
}

// Add inserts row. A key read more than once keeps every value it was read with.
func (s *Snapshot) Add(row Row) {
	if s.rows == nil {
		s.rows = make(map[Key][]int32)
	}
	key := row.Key()
	s.rows[key] = append(s.rows[key], row.R)
}

// Len returns the number of distinct keys.
func (s *Snapshot) Len() int {
	return len(s.rows)
}

// Values returns the distinct values read for key in ascending order, or nil if the key is absent.
// More than one value means the read returned conflicting rows for the key.
func (s *Snapshot) Values(key Key) []int32 {
	values, ok := s.rows[key]
	if !ok {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// Get returns the row stored under key. Of conflicting rows, the one with the smallest r is returned.
func (s *Snapshot) Get(key Key) (Row, bool) {
	values := s.Values(key)
	if values == nil {
		return Row{}, false
	}
	return Row{P: key.P, C: key.C, R: values[0]}, true
}

// Keys returns every key in ascending order.
func (s *Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s.rows))
	for key := range s.rows {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}

// Duplicates returns every row whose key was read more than once, including the first read,
// sorted by key then r.
func (s *Snapshot) Duplicates() []Row {
	var duplicates []Row
	for key, values := range s.rows {
		if len(values) < 2 {
			continue
		}
		for _, r := range values {
			duplicates = append(duplicates, Row{P: key.P, C: key.C, R: r})
		}
	}
	SortRows(duplicates)
	return duplicates
}

// Rows returns every distinct row sorted by key then r.
func (s *Snapshot) Rows() []Row {
	rows := make([]Row, 0, len(s.rows))
	for _, key := range s.Keys() {
		for _, r := range s.Values(key) {
			rows = append(rows, Row{P: key.P, C: key.C, R: r})
		}
	}
	return rows
}
