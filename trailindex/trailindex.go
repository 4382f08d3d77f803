// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package trailindex implements the constructor's 128-bit UUID to
// head-of-chain map. A single index doubles as both the
// UUID keyspace and the per-trail event chain head pointer.
package trailindex

import "github.com/google/uuid"

// Index maps a trail's UUID to the arena index of the head of its
// event chain. The zero value of the stored uint64 means "no prior
// event". Not safe for concurrent use.
type Index struct {
	heads map[uuid.UUID]*uint64
	order []uuid.UUID
}

// New returns an empty Index.
func New() *Index {
	return &Index{heads: make(map[uuid.UUID]*uint64)}
}

// Insert returns a pointer to u's chain-head slot, creating it
// (initialized to 0) if u has not been seen before. The caller updates
// the pointee directly to advance the chain head.
func (x *Index) Insert(u uuid.UUID) *uint64 {
	if p, ok := x.heads[u]; ok {
		return p
	}
	p := new(uint64)
	x.heads[u] = p
	x.order = append(x.order, u)
	return p
}

// NumKeys returns the number of distinct UUIDs inserted so far.
func (x *Index) NumKeys() int {
	return len(x.order)
}

// Fold invokes f once for every (UUID, head pointer) pair, in
// insertion order. The uuids file is written in this order, and the
// encoder must consume uuids in the same order to align trail indices.
func (x *Index) Fold(f func(u uuid.UUID, head *uint64)) {
	for _, u := range x.order {
		f(u, x.heads[u])
	}
}
