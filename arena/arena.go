// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package arena provides a growable append-only buffer of fixed-size
// records, optionally backed by a file. It is the constructor's
// primitive for both the in-memory events arena and the file-backed
// items arena; growth proceeds in fixed record increments the same way
// recordio's headerEncoder grows its byte buffer.
package arena

import (
	"os"

	"github.com/grailbio/trailbase/errors"
)

// Arena is a growable append-only buffer of records, each recordSize
// bytes. Add returns a slot valid only until the next Add (growth may
// reallocate the backing buffer). An Arena is not safe for concurrent
// use; the constructor that owns it is itself single-threaded.
type Arena struct {
	recordSize int
	increment  int
	buf        []byte
	numRecords int64
	file       *os.File
}

// New creates an in-memory-only Arena. recordSize is the fixed size,
// in bytes, of every record. increment is the number of records by
// which the in-memory buffer grows each time it is exhausted.
func New(recordSize, increment int) *Arena {
	if recordSize <= 0 {
		panic("arena: recordSize must be positive")
	}
	if increment <= 0 {
		increment = 1
	}
	return &Arena{recordSize: recordSize, increment: increment}
}

// NewFile creates a file-backed Arena. The in-memory buffer is
// flushed to file automatically once it reaches increment records.
func NewFile(recordSize, increment int, file *os.File) *Arena {
	a := New(recordSize, increment)
	a.file = file
	return a
}

// Add appends a new record and returns its bytes for the caller to
// fill in. The returned slice aliases the arena's internal buffer and
// must not be retained past the next call to Add or Flush.
func (a *Arena) Add() ([]byte, error) {
	if a.file != nil && len(a.buf) >= a.increment*a.recordSize {
		if err := a.Flush(); err != nil {
			return nil, err
		}
	}
	a.grow(a.recordSize)
	start := len(a.buf) - a.recordSize
	a.numRecords++
	return a.buf[start : start+a.recordSize : start+a.recordSize], nil
}

func (a *Arena) grow(delta int) {
	cur := len(a.buf)
	if cap(a.buf) >= cur+delta {
		a.buf = a.buf[:cur+delta]
		return
	}
	grown := make([]byte, cur+delta, cur+delta+a.increment*a.recordSize)
	copy(grown, a.buf)
	a.buf = grown
}

// Flush writes the currently buffered records to the backing file and
// resets the in-memory buffer. It is a no-op if the arena has no
// backing file or nothing is buffered.
func (a *Arena) Flush() error {
	if a.file == nil || len(a.buf) == 0 {
		return nil
	}
	if _, err := a.file.Write(a.buf); err != nil {
		return errors.E(errors.IoWrite, "arena flush", err)
	}
	a.buf = a.buf[:0]
	return nil
}

// Free releases the arena's in-memory buffer. It does not touch the
// backing file.
func (a *Arena) Free() {
	a.buf = nil
}

// NumRecords returns the total number of records ever added,
// including ones already flushed to the backing file.
func (a *Arena) NumRecords() int64 {
	return a.numRecords
}

// RecordSize returns the fixed size, in bytes, of every record.
func (a *Arena) RecordSize() int {
	return a.recordSize
}

// File returns the arena's backing file, or nil if it is in-memory only.
func (a *Arena) File() *os.File {
	return a.file
}
