// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cons implements the trail data constructor: the write side
// that ingests events into arena-backed buffers, interns field values
// into per-field lexicons, links events into per-UUID chains, and
// finalizes everything into a directory of on-disk artifacts.
//
// A Cons is not safe for concurrent use by multiple goroutines; its
// scheduling model is single-threaded, synchronous, blocking I/O, the
// same as the source this spec describes.
package cons

import (
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/grailbio/trailbase/arena"
	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/item"
	"github.com/grailbio/trailbase/lexicon"
	"github.com/grailbio/trailbase/log"
	"github.com/grailbio/trailbase/trailindex"
)

// eventRecordsPerGrowth is the events arena's growth increment, per
// spec.md §4.A ("events arena uses 1,000,000").
const eventRecordsPerGrowth = 1_000_000

// itemRecordsPerGrowth is the items arena's growth increment, and also
// the record count at which its in-memory buffer auto-flushes to the
// temp file.
const itemRecordsPerGrowth = 1_000_000

// itemRecordSize is the fixed width of one packed item on the items
// arena, i.e. sizeof(item.Item).
const itemRecordSize = 8

// Limits bounds the constructor's interlocking size and identifier
// ceilings. The zero value is not useful; start from DefaultLimits.
type Limits struct {
	// MaxNumFields bounds the number of output fields passed to Open.
	MaxNumFields int
	// MaxNumTrails bounds the number of distinct UUIDs a database may
	// hold, chosen so trails*16 fits a signed 64-bit byte offset.
	MaxNumTrails uint64
	// MaxValueSize bounds a single field value's length, in bytes.
	MaxValueSize int
	// MaxLexiconSize bounds a single field lexicon's serialized size,
	// in bytes.
	MaxLexiconSize uint64
	// MaxFieldNameLength bounds a field name's length; names must be
	// strictly shorter than this.
	MaxFieldNameLength int
}

// MaxNumTrails is 2^59 - 1, chosen so that num_trails * 16 never
// overflows a signed 64-bit file offset.
const MaxNumTrails = uint64(1)<<59 - 1

// DefaultLimits are the size ceilings used when the caller does not
// override them.
var DefaultLimits = Limits{
	MaxNumFields:       4096,
	MaxNumTrails:       MaxNumTrails,
	MaxValueSize:       1 << 20,
	MaxLexiconSize:     1 << 34,
	MaxFieldNameLength: 256,
}

// consEvent is the events arena's fixed-size record. prevEventIdx
// follows convention (i) from spec.md §3: arena indices are stored
// offset by 1, so 0 unambiguously means "no prior event" even though
// the events arena's first slot is index 0 internally.
type consEvent struct {
	itemZero uint64
	// numItems counts the items written for this event: one per field,
	// null or not, on the Add path, but only the non-null ones on the
	// Append path.
	numItems     uint64
	timestamp    uint64
	prevEventIdx uint64
}

// Cons is the constructor handle: it owns the output directory, the
// temp items file, the events and items arenas, the trail index, one
// lexicon per output field, and the field name list.
type Cons struct {
	root   string
	limits Limits

	fields []string
	lex    []*lexicon.Lexicon

	index *trailindex.Index

	tmpFile *os.File
	tmpPath string

	items  *arena.Arena // file-backed, record size itemRecordSize
	events []consEvent  // grows in eventRecordsPerGrowth batches

	minTimestamp uint64

	opened      bool
	finalized   bool     // true once Finalize has succeeded
	mappedItems []byte   // set by Finalize; nil if the items region was empty
	mmap        mmap.MMap // the same memory as mappedItems, kept for Unmap
}

// Open creates and configures a new constructor rooted at dir, with
// the given output field names, which must be distinct, legal, and
// at most limits.MaxNumFields in number. dir is created with mode 0755 if it
// does not already exist; a pre-existing directory is fine.
func Open(dir string, fields []string, limits Limits) (*Cons, error) {
	if err := validateFields(fields, limits); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.E(errors.IoOpen, "creating root directory", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp.items.*")
	if err != nil {
		return nil, errors.E(errors.IoOpen, "creating temp items file", err)
	}

	lex := make([]*lexicon.Lexicon, len(fields))
	for i := range lex {
		lex[i] = lexicon.New()
	}

	c := &Cons{
		root:         dir,
		limits:       limits,
		fields:       append([]string(nil), fields...),
		lex:          lex,
		index:        trailindex.New(),
		tmpFile:      tmpFile,
		tmpPath:      tmpFile.Name(),
		items:        arena.NewFile(itemRecordSize, itemRecordsPerGrowth, tmpFile),
		minTimestamp: math.MaxUint64,
		opened:       true,
	}
	log.Debug.Printf("cons: opened %s with %d fields", dir, len(fields))
	return c, nil
}

// NumFields returns the number of configured output fields.
func (c *Cons) NumFields() int {
	return len(c.fields)
}

// MinTimestamp returns the minimum timestamp observed across all Add
// and Append calls so far, or math.MaxUint64 if none have succeeded.
func (c *Cons) MinTimestamp() uint64 {
	return c.minTimestamp
}

// Close releases the constructor's resources without finalizing.
// After Close the handle must not be used again. Close is also the
// step that ends a successful Finalize: it unmaps the items region the
// returned Snapshot reads and removes the temp items file.
func (c *Cons) Close() (err error) {
	if !c.opened {
		return nil
	}
	c.opened = false
	c.items.Free()
	c.events = nil

	if c.mmap != nil {
		m := c.mmap
		c.mmap, c.mappedItems = nil, nil
		defer errors.CleanUp(func() error {
			if uerr := m.Unmap(); uerr != nil {
				return errors.E(errors.IoClose, "unmapping items file", uerr)
			}
			return nil
		}, &err)
	}
	// Finalize closes the temp file's descriptor and clears c.tmpFile,
	// even if a later step of Finalize fails; otherwise it is still open.
	if !c.finalized && c.tmpFile != nil {
		defer errors.CleanUp(func() error {
			if cerr := c.tmpFile.Close(); cerr != nil {
				return errors.E(errors.IoClose, "closing temp items file", cerr)
			}
			return nil
		}, &err)
	}
	defer errors.CleanUp(func() error {
		if rerr := os.Remove(c.tmpPath); rerr != nil && !os.IsNotExist(rerr) {
			return errors.E(errors.IoClose, "removing temp items file", rerr)
		}
		return nil
	}, &err)
	return nil
}

// openReadOnly opens path for mmap.Map, which requires an *os.File
// handle of its own distinct from the writer's (already-closed) one.
func openReadOnly(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.IoOpen, "reopening items file for mmap", err)
	}
	return f, nil
}

// appendItem writes it to the items arena and returns its 1-based
// arena slot index.
func (c *Cons) appendItem(it item.Item) (uint64, error) {
	slot, err := c.items.Add()
	if err != nil {
		return 0, errors.E(errors.NoMem, "appending item", err)
	}
	putItem(slot, it)
	return uint64(c.items.NumRecords()), nil
}

// allocEvent appends a new, zeroed event record and returns its
// 1-based arena index plus a pointer to it for the caller to fill in.
// The events arena is in-memory only and grows in batches of
// eventRecordsPerGrowth records, the same discipline arena.Arena uses
// for its file-backed byte buffers (spec.md §4.H: item records, not
// event records, are the ones that can vastly exceed memory, which is
// why only the items arena needs a backing file).
func (c *Cons) allocEvent() (uint64, *consEvent) {
	if len(c.events) == cap(c.events) {
		grown := make([]consEvent, len(c.events), cap(c.events)+eventRecordsPerGrowth)
		copy(grown, c.events)
		c.events = grown
	}
	c.events = c.events[:len(c.events)+1]
	idx := uint64(len(c.events))
	return idx, &c.events[idx-1]
}
