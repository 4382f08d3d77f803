// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"github.com/google/uuid"

	"github.com/grailbio/trailbase/item"
	"github.com/grailbio/trailbase/lexicon"
)

// ChainEvent is one decoded event from a trail's chain: a timestamp
// plus one item per output field, in field order. A null field decodes
// to item.Make(f, 0) whether the source event stored an explicit null
// item (the Add path) or omitted it entirely (the Append path) — the
// field number is carried by the item itself, so both layouts decode
// identically.
type ChainEvent struct {
	Timestamp uint64
	Items     []item.Item
}

// Snapshot is the read-only view of a finalized constructor handed to
// an Encoder, and to a fresh constructor's Append as its source. It
// remains valid until the Cons it was taken from is Closed.
type Snapshot struct {
	c *Cons
}

// Root returns the constructor's output directory.
func (s *Snapshot) Root() string {
	return s.c.root
}

// Fields returns the output field names, in output-field order
// (excluding the implicit "time" field at position 0).
func (s *Snapshot) Fields() []string {
	return s.c.fields
}

// NumTrails returns the number of distinct UUIDs recorded.
func (s *Snapshot) NumTrails() int {
	return s.c.index.NumKeys()
}

// Lexicon returns the interner for the 0-based field index i.
func (s *Snapshot) Lexicon(i int) *lexicon.Lexicon {
	return s.c.lex[i]
}

// FoldTrails invokes f once per trail, in the trail index's fold
// order (the same order storeUUIDs writes to the uuids file), with
// that trail's chain decoded head-first (most recent event first, the
// chain's native LIFO order; reversing to chronological order, if
// needed, is the caller's job — matching spec.md §5).
func (s *Snapshot) FoldTrails(f func(u uuid.UUID, events []ChainEvent)) {
	s.c.index.Fold(func(u uuid.UUID, head *uint64) {
		f(u, s.chainEvents(*head))
	})
}

func (s *Snapshot) chainEvents(head uint64) []ChainEvent {
	var out []ChainEvent
	numFields := len(s.c.fields)
	for idx := head; idx != 0; {
		ev := &s.c.events[idx-1]
		items := make([]item.Item, numFields)
		for f := range items {
			items[f] = item.Make(f+1, 0)
		}
		base := (ev.itemZero - 1) * itemRecordSize
		for k := uint64(0); k < ev.numItems; k++ {
			it := getItem(s.c.mappedItems[base+k*itemRecordSize : base+(k+1)*itemRecordSize])
			items[it.Field()-1] = it
		}
		out = append(out, ChainEvent{Timestamp: ev.timestamp, Items: items})
		idx = ev.prevEventIdx
	}
	return out
}

// Items returns the mapped items region as a flat byte slice of
// itemRecordSize-byte records, valid only between a successful
// Finalize and the following Close.
func (s *Snapshot) Items() []byte {
	return s.c.mappedItems
}
