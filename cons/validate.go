// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"strconv"

	"github.com/willf/bitset"

	"github.com/grailbio/trailbase/errors"
)

// fieldnameChars is the set of bytes legal in a field name: letters,
// digits, and underscore. It is built once and tested with a bitset
// rather than a byte-range scan, since a field name is checked byte by
// byte on every Open call.
var fieldnameChars = buildFieldnameChars()

func buildFieldnameChars() *bitset.BitSet {
	b := bitset.New(256)
	for c := 'a'; c <= 'z'; c++ {
		b.Set(uint(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		b.Set(uint(c))
	}
	for c := '0'; c <= '9'; c++ {
		b.Set(uint(c))
	}
	b.Set(uint('_'))
	return b
}

// reservedFieldName is implicitly field 0 in every finalized database
// and may not appear in the caller-supplied field list.
const reservedFieldName = "time"

// validateFieldName checks a single field name against the naming
// rules: non-empty, within the length ceiling, drawn from
// fieldnameChars, and not the reserved name "time".
func validateFieldName(name string, limits Limits) error {
	if name == "" || len(name) > limits.MaxFieldNameLength-1 {
		return errors.E(errors.InvalidFieldname, "field name length", name)
	}
	if name == reservedFieldName {
		return errors.E(errors.InvalidFieldname, `field name "time" is reserved`)
	}
	for i := 0; i < len(name); i++ {
		if !fieldnameChars.Test(uint(name[i])) {
			return errors.E(errors.InvalidFieldname, "illegal character in field name", name)
		}
	}
	return nil
}

// validateFields validates the full set of output field names: each
// individually, plus the count ceiling and duplicate detection.
func validateFields(names []string, limits Limits) error {
	if len(names) > limits.MaxNumFields {
		return errors.E(errors.TooManyFields, "num fields", strconv.Itoa(len(names)))
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := validateFieldName(name, limits); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return errors.E(errors.DuplicateFields, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// validateValueLength rejects values longer than MAX_VALUE_SIZE before
// any constructor state is mutated, matching the source's
// reject-before-chain-mutation behavior.
func validateValueLength(n int, limits Limits) error {
	if n > limits.MaxValueSize {
		return errors.E(errors.ValueTooLong, "value length", strconv.Itoa(n))
	}
	return nil
}

// validateNumTrails rejects databases whose trail count would exceed
// MAX_NUM_TRAILS; called at finalize.
func validateNumTrails(n int, limits Limits) error {
	if uint64(n) > limits.MaxNumTrails {
		return errors.E(errors.TooManyTrails, "num trails", strconv.Itoa(n))
	}
	return nil
}
