// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"github.com/google/uuid"

	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/item"
)

// Add records one event for UUID u at timestamp ts, with one value per
// output field in values (len(values) must equal NumFields). A zero-
// length value is the distinguished null value and is never interned.
//
// Add writes a null item for every null field (see the numItems doc on
// consEvent for the counting asymmetry with Append), and fails with
// ValueTooLong before mutating any constructor state if a value
// exceeds the configured limit.
func (c *Cons) Add(u uuid.UUID, ts uint64, values [][]byte) error {
	if !c.opened {
		return errors.E(errors.HandleIsNull, "add called on closed constructor")
	}
	if len(values) != len(c.fields) {
		return errors.E(errors.Invalid, "values count does not match field count")
	}
	for _, v := range values {
		if err := validateValueLength(len(v), c.limits); err != nil {
			return err
		}
	}

	head := c.index.Insert(u)
	eventIdx, ev := c.allocEvent()
	ev.itemZero = nextItemIndex(c)
	ev.timestamp = ts
	ev.prevEventIdx = *head
	*head = eventIdx

	if ts < c.minTimestamp {
		c.minTimestamp = ts
	}

	for i, v := range values {
		var val uint64
		if len(v) > 0 {
			val = c.lex[i].Insert(v)
		}
		if _, err := c.appendItem(item.Make(i+1, val)); err != nil {
			return err
		}
		// add counts every field, null or not, unlike append; see
		// consEvent.numItems's doc and DESIGN.md's resolution of the open
		// question this inherits from the source.
		ev.numItems++
	}
	return nil
}

// nextItemIndex returns the 1-based arena index the next appendItem
// call will produce, used to set a new event's itemZero before any
// items for it have actually been written.
func nextItemIndex(c *Cons) uint64 {
	return uint64(c.items.NumRecords()) + 1
}
