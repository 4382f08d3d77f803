// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package digest provides a small fixed-size representation for
// content digests, used by the finalizer to log a checksum of the
// mapped items region and by the reference encoder to checksum each
// trail block it writes. It is a trimmed
// descendant of grailbio/base/digest, which supports a much larger
// set of hash functions and serialization formats than trailbase
// needs; only sha256 is wired up here.
package digest

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

// maxSize is large enough for any hash this package registers.
const maxSize = sha256.Size

// ErrInvalidDigest is returned by Parse when given a malformed string.
var ErrInvalidDigest = errors.New("digest: invalid digest")

var hashNames = map[crypto.Hash]string{
	crypto.SHA256: "sha256",
}

var namesToHash = map[string]crypto.Hash{
	"sha256": crypto.SHA256,
}

// Digest is a fixed-size, comparable representation of a digest
// computed by a cryptographic hash function.
type Digest struct {
	h crypto.Hash
	b [maxSize]byte
}

// IsZero tells whether d is the zero Digest.
func (d Digest) IsZero() bool { return d.h == 0 }

// Hex returns the digest's padded hexadecimal representation.
func (d Digest) Hex() string {
	n := d.h.Size()
	return fmt.Sprintf("%0*x", 2*n, d.b[:n])
}

// String returns the digest in "name:hex" form, e.g. "sha256:deadbeef...".
func (d Digest) String() string {
	if d.IsZero() {
		return "<zero>"
	}
	return hashNames[d.h] + ":" + d.Hex()
}

// Parse parses a digest in the form produced by Digest.String.
func Parse(s string) (Digest, error) {
	if s == "" || s == "<zero>" {
		return Digest{}, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Digest{}, ErrInvalidDigest
	}
	h, ok := namesToHash[parts[0]]
	if !ok {
		return Digest{}, ErrInvalidDigest
	}
	b, err := hex.DecodeString(parts[1])
	if err != nil || len(b) != h.Size() {
		return Digest{}, ErrInvalidDigest
	}
	d := Digest{h: h}
	copy(d.b[:], b)
	return d, nil
}

// Digester names a cryptographic hash function usable to compute
// Digests. SHA256 is the only Digester trailbase registers.
type Digester crypto.Hash

// SHA256 computes digests with crypto/sha256.
const SHA256 = Digester(crypto.SHA256)

// FromBytes computes the digest of p.
func (d Digester) FromBytes(p []byte) Digest {
	h := crypto.Hash(d).New()
	h.Write(p)
	return d.fromHash(h)
}

// NewWriter returns a Writer that computes a running digest of
// everything written through it while also forwarding the bytes to w
// (or discarding them if w is nil).
func (d Digester) NewWriter(w io.Writer) *Writer {
	return &Writer{h: crypto.Hash(d).New(), w: w, kind: crypto.Hash(d)}
}

func (d Digester) fromHash(h hash.Hash) Digest {
	dg := Digest{h: crypto.Hash(d)}
	copy(dg.b[:], h.Sum(nil))
	return dg
}

// Writer computes a digest of the bytes written through it, optionally
// tee-ing them to an underlying io.Writer.
type Writer struct {
	h    hash.Hash
	w    io.Writer
	kind crypto.Hash
}

func (dw *Writer) Write(p []byte) (int, error) {
	dw.h.Write(p)
	if dw.w == nil {
		return len(p), nil
	}
	return dw.w.Write(p)
}

// Digest returns the digest of all bytes written so far.
func (dw *Writer) Digest() Digest {
	d := Digest{h: dw.kind}
	copy(d.b[:], dw.h.Sum(nil))
	return d
}
