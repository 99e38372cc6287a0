// Package model contains the row types read from and written to the cluster.
package model

import (
	"cmp"
	"fmt"
	"slices"
)

// Key is the primary key shared by the base table and the view.
type Key struct {
	P int32
	C int32
}

func (k Key) String() string {
	return fmt.Sprintf("(%d, %d)", k.P, k.C)
}

// Less orders keys by partition then clustering key.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Compare returns -1, 0 or +1 as k sorts before, equal to or after other.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.P, other.P); c != 0 {
		return c
	}
	return cmp.Compare(k.C, other.C)
}

// Row is one (p, c, r) tuple. Rows are never updated once written.
type Row struct {
	P int32
	C int32
	R int32
}

func (r Row) Key() Key {
	return Key{P: r.P, C: r.C}
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %d, %d)", r.P, r.C, r.R)
}

// SortRows sorts rows by key then r, in place.
func SortRows(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		if c := a.Key().Compare(b.Key()); c != 0 {
			return c
		}
		return cmp.Compare(a.R, b.R)
	})
}

// NodeEndpoint identifies one cluster member. Index is its position in the configured node list.
type NodeEndpoint struct {
	Index   int
	Address string
}

func (n NodeEndpoint) String() string {
	return fmt.Sprintf("node #%d (%s)", n.Index, n.Address)
}

// NodeEndpoints builds endpoints for addresses in cluster order.
func NodeEndpoints(addresses []string) []NodeEndpoint {
	nodes := make([]NodeEndpoint, len(addresses))
	for i, address := range addresses {
		nodes[i] = NodeEndpoint{Index: i, Address: address}
	}
	return nodes
}
