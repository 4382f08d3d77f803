// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"bytes"
	"io"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/grailbio/trailbase/data"
	"github.com/grailbio/trailbase/digest"
	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/log"
)

// Encoder is the pluggable external collaborator that packs a
// finalized trail database's chains into the actual trail file format.
// Its internal byte layout is not a compatibility target of this
// package; only the contract below is.
type Encoder interface {
	// Encode consumes the finalized snapshot s, a read-only view of the
	// mapped items region, and that region's size in bytes. Encode may
	// read s.Items() through items directly or through the snapshot's
	// decoded ChainEvent view, whichever suits its own format.
	Encode(s *Snapshot, items io.ReaderAt, itemsSize int64) error
}

// Finalize orchestrates the constructor's terminal sequence: flush the
// items arena, map it read-only, write the lexicon/uuids/metadata
// files, then invoke enc. Finalize is not re-entrant and not
// resumable; on any error the caller should discard the handle with
// Close rather than retry.
//
// On success, Finalize returns a Snapshot that remains valid (and its
// underlying mapping held open) until Close is called on c — this
// lets a successfully finalized Cons serve as the source for another
// constructor's Append, without reimplementing a file-based reader
// that spec.md explicitly places out of scope.
func (c *Cons) Finalize(enc Encoder) (*Snapshot, error) {
	if !c.opened {
		return nil, errors.E(errors.HandleIsNull, "finalize called on closed constructor")
	}
	if err := validateNumTrails(c.index.NumKeys(), c.limits); err != nil {
		return nil, err
	}

	if err := c.items.Flush(); err != nil {
		return nil, err
	}
	if err := c.tmpFile.Close(); err != nil {
		return nil, errors.E(errors.IoClose, "closing temp items file", err)
	}
	c.tmpFile = nil

	size := c.items.NumRecords() * itemRecordSize
	if size > 0 {
		f, err := openReadOnly(c.tmpPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			return nil, errors.E(errors.IoOpen, "mapping items file", err)
		}
		c.mappedItems = []byte(m)
		c.mmap = m
	}

	if err := storeLexicons(c.root, c.fields, c.lex, c.limits); err != nil {
		return nil, err
	}
	if err := storeUUIDs(c.root, c.index); err != nil {
		return nil, err
	}
	if err := storeVersion(c.root); err != nil {
		return nil, err
	}
	if err := storeFields(c.root, c.fields); err != nil {
		return nil, err
	}

	snap := &Snapshot{c: c}
	if log.At(log.Debug) {
		d := digest.SHA256.FromBytes(c.mappedItems)
		log.Debug.Printf("cons: finalize %s: %d trails, %s of items, digest %s",
			c.root, c.index.NumKeys(), data.Size(size), d)
	}
	if err := enc.Encode(snap, bytes.NewReader(c.mappedItems), size); err != nil {
		return nil, errors.E(errors.IoWrite, "encoding finalized database", err)
	}

	c.finalized = true
	return snap, nil
}
