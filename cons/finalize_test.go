// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/trailbase/cons"
	"github.com/grailbio/trailbase/encode"
	"github.com/grailbio/trailbase/errors"
)

func TestFinalizeSingleEvent(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	u := uuid.New()
	require.NoError(t, c.Add(u, 42, [][]byte{[]byte("v")}))

	snap, err := c.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.NumTrails())

	var seen int
	snap.FoldTrails(func(got uuid.UUID, events []cons.ChainEvent) {
		seen++
		require.Equal(t, u, got)
		require.Len(t, events, 1)
		require.EqualValues(t, 42, events[0].Timestamp)
	})
	require.Equal(t, 1, seen)
}

func TestFinalizeTwoEventsSameUUID(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	u := uuid.New()
	require.NoError(t, c.Add(u, 1, [][]byte{[]byte("first")}))
	require.NoError(t, c.Add(u, 2, [][]byte{[]byte("second")}))

	snap, err := c.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)
	require.Equal(t, 1, snap.NumTrails())

	snap.FoldTrails(func(_ uuid.UUID, events []cons.ChainEvent) {
		require.Len(t, events, 2)
		// FoldTrails yields head-first: most recent event (ts=2) first.
		require.EqualValues(t, 2, events[0].Timestamp)
		require.EqualValues(t, 1, events[1].Timestamp)
	})
}

func TestFinalizeEmptyDatabase(t *testing.T) {
	c, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer c.Close()

	snap, err := c.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)
	require.Equal(t, 0, snap.NumTrails())
}

func TestFinalizeRejectsTooManyTrails(t *testing.T) {
	limits := cons.DefaultLimits
	limits.MaxNumTrails = 1
	c, err := cons.Open(t.TempDir(), []string{"a"}, limits)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(uuid.New(), 1, [][]byte{[]byte("x")}))
	require.NoError(t, c.Add(uuid.New(), 1, [][]byte{[]byte("y")}))

	_, err = c.Finalize(encode.DefaultEncoder{})
	require.Error(t, err)
	require.True(t, errors.Is(errors.TooManyTrails, err))
}

func TestAppendRejectsFieldCountMismatch(t *testing.T) {
	src, err := cons.Open(t.TempDir(), []string{"a", "b"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Add(uuid.New(), 1, [][]byte{[]byte("x"), []byte("y")}))
	snap, err := src.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)

	dst, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer dst.Close()

	err = dst.Append(snap)
	require.Error(t, err)
	require.True(t, errors.Is(errors.AppendFieldsMismatch, err))
}

func TestAppendRejectsFieldNameMismatch(t *testing.T) {
	src, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Add(uuid.New(), 1, [][]byte{[]byte("x")}))
	snap, err := src.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)

	dst, err := cons.Open(t.TempDir(), []string{"b"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer dst.Close()

	err = dst.Append(snap)
	require.Error(t, err)
	require.True(t, errors.Is(errors.AppendFieldsMismatch, err))
}

func TestAppendRoundTrip(t *testing.T) {
	src, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer src.Close()

	u1, u2 := uuid.New(), uuid.New()
	require.NoError(t, src.Add(u1, 10, [][]byte{[]byte("alice")}))
	require.NoError(t, src.Add(u1, 20, [][]byte{[]byte("bob")}))
	require.NoError(t, src.Add(u2, 5, [][]byte{[]byte("alice")}))

	srcSnap, err := src.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)

	dst, err := cons.Open(t.TempDir(), []string{"a"}, cons.DefaultLimits)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, dst.Add(u1, 1, [][]byte{[]byte("carol")}))
	require.NoError(t, dst.Append(srcSnap))

	dstSnap, err := dst.Finalize(encode.DefaultEncoder{})
	require.NoError(t, err)
	require.Equal(t, 2, dstSnap.NumTrails())

	counts := map[uuid.UUID]int{}
	dstSnap.FoldTrails(func(u uuid.UUID, events []cons.ChainEvent) {
		counts[u] = len(events)
	})
	require.Equal(t, 3, counts[u1])
	require.Equal(t, 1, counts[u2])

	// u1's chain head should be the appended trail's most recent event
	// (ts=20): Append replays oldest-first so the source's newest event
	// ends up at the head again, ahead of carol's earlier direct Add.
	dstSnap.FoldTrails(func(u uuid.UUID, events []cons.ChainEvent) {
		if u != u1 {
			return
		}
		require.EqualValues(t, 20, events[0].Timestamp)
		require.EqualValues(t, 10, events[1].Timestamp)
		require.EqualValues(t, 1, events[2].Timestamp)
	})
}
