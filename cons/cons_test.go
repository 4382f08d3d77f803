// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/trailbase/cons"
	"github.com/grailbio/trailbase/errors"
)

func TestOpenRejectsDuplicateFields(t *testing.T) {
	_, err := cons.Open(t.TempDir(), []string{"a", "b", "a"}, cons.DefaultLimits)
	require.Error(t, err)
	require.True(t, errors.Is(errors.DuplicateFields, err))
}

func TestOpenRejectsReservedFieldName(t *testing.T) {
	_, err := cons.Open(t.TempDir(), []string{"time"}, cons.DefaultLimits)
	require.Error(t, err)
	require.True(t, errors.Is(errors.InvalidFieldname, err))
}

func TestOpenRejectsIllegalFieldChars(t *testing.T) {
	_, err := cons.Open(t.TempDir(), []string{"bad-name"}, cons.DefaultLimits)
	require.Error(t, err)
	require.True(t, errors.Is(errors.InvalidFieldname, err))
}

func TestOpenRejectsFieldNameAtLengthLimit(t *testing.T) {
	limits := cons.DefaultLimits
	limits.MaxFieldNameLength = 8
	ok := strings.Repeat("a", 7)
	c, err := cons.Open(t.TempDir(), []string{ok}, limits)
	require.NoError(t, err)
	c.Close()

	tooLong := strings.Repeat("a", 8)
	_, err = cons.Open(t.TempDir(), []string{tooLong}, limits)
	require.Error(t, err)
	require.True(t, errors.Is(errors.InvalidFieldname, err))
}

func TestOpenAcceptsZeroFields(t *testing.T) {
	c, err := cons.Open(t.TempDir(), nil, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, 0, c.NumFields())
}

func TestOpenRejectsTooManyFields(t *testing.T) {
	limits := cons.DefaultLimits
	limits.MaxNumFields = 1
	_, err := cons.Open(t.TempDir(), []string{"a", "b"}, limits)
	require.Error(t, err)
	require.True(t, errors.Is(errors.TooManyFields, err))
}

func TestAddRejectsWrongValueCount(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a", "b"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	err = c.Add(uuid.New(), 1, [][]byte{[]byte("x")})
	require.Error(t, err)
}

func TestAddRejectsOversizeValueWithoutMutation(t *testing.T) {
	limits := cons.DefaultLimits
	limits.MaxValueSize = 4
	c, err := cons.Open(t.TempDir(), []string{"a"}, limits)
	require.NoError(t, err)
	defer c.Close()

	err = c.Add(uuid.New(), 1, [][]byte{[]byte("toolong")})
	require.Error(t, err)
	require.True(t, errors.Is(errors.ValueTooLong, err))
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), c.MinTimestamp())
}

func TestAddAcceptsValueAtSizeLimit(t *testing.T) {
	limits := cons.DefaultLimits
	limits.MaxValueSize = 4
	c, err := cons.Open(t.TempDir(), []string{"a"}, limits)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(uuid.New(), 1, [][]byte{[]byte("abcd")}))
}

func TestAddAcceptsNullValue(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a", "b"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(uuid.New(), 1, [][]byte{nil, []byte("x")}))
}

func TestMinTimestampTracksAcrossEvents(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	u := uuid.New()
	require.NoError(t, c.Add(u, 100, [][]byte{[]byte("x")}))
	require.NoError(t, c.Add(u, 50, [][]byte{[]byte("y")}))
	require.NoError(t, c.Add(u, 200, [][]byte{[]byte("z")}))
	require.EqualValues(t, 50, c.MinTimestamp())
}

func TestAddOnClosedConstructorFails(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.Add(uuid.New(), 1, [][]byte{[]byte("x")})
	require.Error(t, err)
	require.True(t, errors.Is(errors.HandleIsNull, err))
}
