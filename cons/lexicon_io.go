// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/lexicon"
	"github.com/grailbio/trailbase/traverse"
)

// storeLexicons writes one lexicon.<name> file per field under root.
// Each field's file is independent I/O with no shared mutable state
// once Finalize has stopped inserting, so the files are written
// concurrently with traverse.Each, the same pattern the teacher uses
// for independent per-shard work.
func storeLexicons(root string, fields []string, lex []*lexicon.Lexicon, limits Limits) error {
	return traverse.Each(len(fields)).Do(func(i int) error {
		return storeLexicon(root, fields[i], lex[i], limits)
	})
}

func storeLexicon(root, field string, lex *lexicon.Lexicon, limits Limits) error {
	n := lex.NumKeys()
	// Total size: count + n offsets + end_offset, at width 4, plus
	// the concatenated values; re-derive at width 8 if that overflows.
	width := 4
	total := uint64(width)*(uint64(n)+2) + lex.ValuesSize()
	if total > math.MaxUint32 {
		width = 8
		total = uint64(width)*(uint64(n)+2) + lex.ValuesSize()
	}
	if total > limits.MaxLexiconSize {
		return errors.E(errors.LexiconTooLarge, "field", field, "size", strconv.FormatUint(total, 10))
	}

	path := filepath.Join(root, "lexicon."+field)
	f, err := os.Create(path)
	if err != nil {
		return errors.E(errors.IoOpen, "creating lexicon file", field, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(total)); err != nil {
		return errors.E(errors.IoTruncate, "truncating lexicon file", field, err)
	}

	header := make([]byte, width)
	putWidth(header, width, 0, n)
	if _, err := f.WriteAt(header, 0); err != nil {
		return errors.E(errors.IoWrite, "writing lexicon count", field, err)
	}

	tail := uint64(width) * (n + 2)
	var foldErr error
	lex.Fold(func(id uint64, v []byte) {
		if foldErr != nil {
			return
		}
		off := make([]byte, width)
		putWidth(off, width, 0, tail)
		if _, err := f.WriteAt(off, int64(uint64(width)*id)); err != nil {
			foldErr = errors.E(errors.IoWrite, "writing lexicon offset", field, err)
			return
		}
		if len(v) > 0 {
			if _, err := f.WriteAt(v, int64(tail)); err != nil {
				foldErr = errors.E(errors.IoWrite, "writing lexicon value", field, err)
				return
			}
		}
		tail += uint64(len(v))
	})
	if foldErr != nil {
		return foldErr
	}

	endOff := make([]byte, width)
	putWidth(endOff, width, 0, tail)
	if _, err := f.WriteAt(endOff, int64(uint64(width)*(n+1))); err != nil {
		return errors.E(errors.IoWrite, "writing lexicon end offset", field, err)
	}
	// Offsets sit at id*width with ids starting at 1, so index 0 of the
	// offset table is the count itself: every header slot has now been
	// written explicitly, and Truncate only sets the file's size.
	return nil
}

func putWidth(b []byte, width int, i int, v uint64) {
	if width == 4 {
		binary.LittleEndian.PutUint32(b[i:], uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(b[i:], v)
}
