// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package trailindex_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/trailbase/trailindex"
)

func TestInsertReturnsStablePointer(t *testing.T) {
	x := trailindex.New()
	u := uuid.New()

	p1 := x.Insert(u)
	require.EqualValues(t, 0, *p1)
	*p1 = 42

	p2 := x.Insert(u)
	require.Same(t, p1, p2)
	require.EqualValues(t, 42, *p2)
	require.Equal(t, 1, x.NumKeys())
}

func TestFoldOrderMatchesInsertion(t *testing.T) {
	x := trailindex.New()
	want := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range want {
		x.Insert(u)
	}

	var got []uuid.UUID
	x.Fold(func(u uuid.UUID, _ *uint64) { got = append(got, u) })
	require.Equal(t, want, got)
}
