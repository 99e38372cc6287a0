// Package compare computes the difference between the base table and one view replica.
package compare

import (
	"slices"

	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

// MismatchingRow is a key present on both sides with a different payload.
type MismatchingRow struct {
	Key       model.Key
	BaseValue int32
	ViewValue int32
}

// Diff is the symmetric difference between two snapshots. Every slice is sorted by key then r.
type Diff struct {
	// In the base table but not in the view.
	Missing []model.Row
	// In the view but not in the base table.
	Extraneous []model.Row
	// In both, with a different r, or with conflicting r values on one side.
	Mismatching []MismatchingRow
}

// Len returns the total number of differing keys.
func (d Diff) Len() int {
	return len(d.Missing) + len(d.Extraneous) + len(d.Mismatching)
}

// Empty reports whether the two sides held exactly the same rows.
func (d Diff) Empty() bool {
	return d.Len() == 0
}

// Truncate returns a copy of d keeping at most limit entries of each kind.
// A limit below zero keeps everything.
func (d Diff) Truncate(limit int) Diff {
	if limit < 0 {
		return d
	}
	return Diff{
		Missing:     d.Missing[:min(limit, len(d.Missing))],
		Extraneous:  d.Extraneous[:min(limit, len(d.Extraneous))],
		Mismatching: d.Mismatching[:min(limit, len(d.Mismatching))],
	}
}

// Result of comparing the base table against one view snapshot.
type Result struct {
	Matched   bool
	BaseCount int
	ViewCount int
	Diff      Diff
	// Every row of a key the view returned more than once. Repeats of the same row don't affect
	// Matched; conflicting values for a key show up as a mismatch.
	ViewDuplicates []model.Row
}

// Compare compares base and view as sets keyed by (p, c), with value equality on r. A key matches
// only if both sides read exactly the same set of r values for it.
// The order rows were fetched in has no effect on the result.
func Compare(base, view *model.Snapshot) Result {
	var diff Diff
	for _, key := range base.Keys() {
		baseValues := base.Values(key)
		viewValues := view.Values(key)
		switch {
		case viewValues == nil:
			diff.Missing = append(diff.Missing, rowsOf(key, baseValues)...)
		case !slices.Equal(baseValues, viewValues):
			diff.Mismatching = append(diff.Mismatching, MismatchingRow{
				Key:       key,
				BaseValue: firstNotIn(baseValues, viewValues),
				ViewValue: firstNotIn(viewValues, baseValues),
			})
		}
	}
	for _, key := range view.Keys() {
		if base.Values(key) == nil {
			diff.Extraneous = append(diff.Extraneous, rowsOf(key, view.Values(key))...)
		}
	}

	return Result{
		Matched:        diff.Empty(),
		BaseCount:      base.Len(),
		ViewCount:      view.Len(),
		Diff:           diff,
		ViewDuplicates: view.Duplicates(),
	}
}

func rowsOf(key model.Key, values []int32) []model.Row {
	rows := make([]model.Row, len(values))
	for i, r := range values {
		rows[i] = model.Row{P: key.P, C: key.C, R: r}
	}
	return rows
}

// firstNotIn returns the smallest of values missing from other, or the smallest of values if none is.
// Both slices are sorted.
func firstNotIn(values, other []int32) int32 {
	for _, v := range values {
		if _, found := slices.BinarySearch(other, v); !found {
			return v
		}
	}
	return values[0]
}
