// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lexicon implements the per-field string interner: a dense,
// injective mapping from value bytes to a stable 1-based id, used by
// the constructor to turn repeated field values into compact items.
package lexicon

import (
	trailunsafe "github.com/grailbio/trailbase/unsafe"
)

// Lexicon assigns a dense 1-based id to every distinct value it sees.
// The empty value is never inserted; callers treat it as id 0 (null)
// without consulting the Lexicon. Not safe for concurrent Insert
// calls, matching the constructor's single-threaded contract; Fold may
// safely run concurrently with other Lexicons' Fold once insertion has
// stopped.
type Lexicon struct {
	ids    map[string]uint64
	values [][]byte
	size   uint64
}

// New returns an empty Lexicon.
func New() *Lexicon {
	return &Lexicon{ids: make(map[string]uint64)}
}

// Insert returns the id of v, assigning a new one if v has not been
// seen before. v must be non-empty; the caller is responsible for
// mapping the empty value to id 0 itself.
func (l *Lexicon) Insert(v []byte) uint64 {
	key := trailunsafe.BytesToString(v)
	if id, ok := l.ids[key]; ok {
		return id
	}
	cp := append([]byte(nil), v...)
	l.values = append(l.values, cp)
	id := uint64(len(l.values))
	l.ids[trailunsafe.BytesToString(cp)] = id
	l.size += uint64(len(cp))
	return id
}

// NumKeys returns the number of distinct values interned so far.
func (l *Lexicon) NumKeys() uint64 {
	return uint64(len(l.values))
}

// ValuesSize returns the sum of the lengths of all interned values.
func (l *Lexicon) ValuesSize() uint64 {
	return l.size
}

// Fold invokes f once for every id in [1, NumKeys()], in insertion
// order, which is the order lexicon_io relies on when writing the
// on-disk offset table.
func (l *Lexicon) Fold(f func(id uint64, v []byte)) {
	for i, v := range l.values {
		f(uint64(i+1), v)
	}
}
