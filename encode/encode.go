// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package encode provides DefaultEncoder, a reference implementation
// of cons.Encoder that packs a finalized database's trails into
// trails.data and trails.toc. Its block discipline — pack, compress,
// checksum, write length-prefixed blocks in sequence order — is
// borrowed from the teacher's recordio writer, trimmed to the single
// sequential writer this module needs; nothing here is a compatibility
// target, since spec.md scopes the actual packed-trail format to an
// external encoder.
package encode

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/DataDog/zstd"
	"github.com/google/uuid"

	"github.com/grailbio/trailbase/cons"
	"github.com/grailbio/trailbase/digest"
	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/log"
)

// magic identifies a trails.data file produced by DefaultEncoder.
var magic = [4]byte{'T', 'R', 'L', '1'}

// tocEntry is one trails.toc record: a trail's byte range in
// trails.data and its event count.
type tocEntry struct {
	Offset    uint64
	Length    uint64
	NumEvents uint64
}

// DefaultEncoder writes trails.data (one zstd-compressed, checksummed
// block per trail, events in chronological order) and trails.toc
// (fixed-width byte ranges into trails.data, in the same trail order
// cons.Snapshot.FoldTrails produces). CompressionLevel is passed to
// zstd; 0 selects its default.
type DefaultEncoder struct {
	CompressionLevel int
}

// Encode implements cons.Encoder. It ignores items/itemsSize and reads
// through the decoded ChainEvent view instead, since that view already
// resolves the Add/Append null-item asymmetry for it.
func (e DefaultEncoder) Encode(s *cons.Snapshot, items io.ReaderAt, itemsSize int64) error {
	root := s.Root()
	dataPath := filepath.Join(root, "trails.data")
	tocPath := filepath.Join(root, "trails.toc")

	dataFile, err := os.Create(dataPath)
	if err != nil {
		return errors.E(errors.IoOpen, "creating trails.data", err)
	}
	defer dataFile.Close()

	if _, err := dataFile.Write(magic[:]); err != nil {
		return errors.E(errors.IoWrite, "writing trails.data magic", err)
	}

	var tocEntries []tocEntry
	offset := uint64(len(magic))
	numFields := len(s.Fields())

	var writeErr error
	s.FoldTrails(func(_ uuid.UUID, events []cons.ChainEvent) {
		if writeErr != nil {
			return
		}
		raw := serializeChronological(events, numFields)
		compressed, err := zstd.CompressLevel(nil, raw, e.CompressionLevel)
		if err != nil {
			writeErr = errors.E(errors.IoWrite, "compressing trail block", err)
			return
		}
		sum := digest.SHA256.FromBytes(compressed)

		block := make([]byte, 0, 8+8+32+len(compressed))
		block = appendUint32(block, uint32(len(compressed)))
		block = appendUint32(block, uint32(len(raw)))
		block = append(block, []byte(sum.Hex())...)
		block = append(block, compressed...)

		if _, err := dataFile.Write(block); err != nil {
			writeErr = errors.E(errors.IoWrite, "writing trail block", err)
			return
		}
		tocEntries = append(tocEntries, tocEntry{
			Offset:    offset,
			Length:    uint64(len(block)),
			NumEvents: uint64(len(events)),
		})
		offset += uint64(len(block))
	})
	if writeErr != nil {
		return writeErr
	}

	if err := writeTOC(tocPath, tocEntries); err != nil {
		return err
	}
	log.Debug.Printf("encode: wrote %d trails to %s", len(tocEntries), dataPath)
	return nil
}

// serializeChronological flattens events (given head-first, i.e. most
// recent first) into chronological order and encodes each as a
// timestamp followed by one item.Item per field, including nulls; the
// reference format does not attempt to omit them since its layout
// isn't load-bearing for any reader this module ships.
func serializeChronological(events []cons.ChainEvent, numFields int) []byte {
	out := make([]byte, 0, len(events)*(8+numFields*8))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		out = appendUint64(out, ev.Timestamp)
		for _, it := range ev.Items {
			out = appendUint64(out, uint64(it))
		}
	}
	return out
}

func writeTOC(path string, entries []tocEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E(errors.IoOpen, "creating trails.toc", err)
	}
	defer f.Close()
	buf := make([]byte, 0, len(entries)*24)
	for _, e := range entries {
		buf = appendUint64(buf, e.Offset)
		buf = appendUint64(buf, e.Length)
		buf = appendUint64(buf, e.NumEvents)
	}
	if _, err := f.Write(buf); err != nil {
		return errors.E(errors.IoWrite, "writing trails.toc", err)
	}
	return nil
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
