// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/item"
)

// Append concatenates the trails of an already-finalized database
// (other) into c, re-interning every value through c's own lexicons so
// ids are renumbered. other's field names must match c's positionally;
// otherwise Append fails with AppendFieldsMismatch and mutates nothing.
//
// Unlike Add, Append writes only non-null items to the items arena (a
// behavior difference inherited unchanged from the source — see
// DESIGN.md's resolution of the num_items open question). An event's
// numItems after Append therefore counts non-null items only.
func (c *Cons) Append(other *Snapshot) error {
	if !c.opened {
		return errors.E(errors.HandleIsNull, "append called on closed constructor")
	}
	if len(other.Fields()) != len(c.fields) {
		return errors.E(errors.AppendFieldsMismatch, "field count differs")
	}
	for i, name := range other.Fields() {
		if name != c.fields[i] {
			return errors.E(errors.AppendFieldsMismatch, "field name differs at position", strconv.Itoa(i))
		}
	}

	idMaps := make([]map[uint64]uint64, len(c.fields))
	for i := range idMaps {
		idMaps[i] = map[uint64]uint64{0: 0}
		other.Lexicon(i).Fold(func(oldID uint64, v []byte) {
			idMaps[i][oldID] = c.lex[i].Insert(v)
		})
	}

	var appendErr error
	other.FoldTrails(func(u uuid.UUID, events []ChainEvent) {
		if appendErr != nil {
			return
		}
		head := c.index.Insert(u)
		// FoldTrails yields events head-first (most recent first); since
		// Add-style chain linking makes whichever event is replayed last
		// the new head, replay oldest-first so the source's most recent
		// event ends up at the head again.
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			if ev.Timestamp < c.minTimestamp {
				c.minTimestamp = ev.Timestamp
			}
			eventIdx, rec := c.allocEvent()
			rec.timestamp = ev.Timestamp
			rec.prevEventIdx = *head
			rec.itemZero = nextItemIndex(c)
			for f, it := range ev.Items {
				val := it.Val()
				if val == 0 {
					continue
				}
				translated := idMaps[f][val]
				if _, err := c.appendItem(item.Make(f+1, translated)); err != nil {
					appendErr = err
					return
				}
				rec.numItems++
			}
			*head = eventIdx
		}
	})
	return appendErr
}
