// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/grailbio/trailbase/errors"
	"github.com/grailbio/trailbase/trailindex"
)

// storeUUIDs writes the uuids file: num_trails * 16 raw bytes, one
// UUID per trail, in the trail index's fold order.
func storeUUIDs(root string, index *trailindex.Index) error {
	f, err := os.Create(filepath.Join(root, "uuids"))
	if err != nil {
		return errors.E(errors.IoOpen, "creating uuids file", err)
	}
	defer f.Close()

	if err := f.Truncate(int64(index.NumKeys()) * 16); err != nil {
		return errors.E(errors.IoTruncate, "truncating uuids file", err)
	}

	var offset int64
	var writeErr error
	index.Fold(func(u uuid.UUID, _ *uint64) {
		if writeErr != nil {
			return
		}
		if _, err := f.WriteAt(u[:], offset); err != nil {
			writeErr = errors.E(errors.IoWrite, "writing uuids file", err)
			return
		}
		offset += 16
	})
	return writeErr
}
