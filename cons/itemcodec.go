// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"encoding/binary"

	"github.com/grailbio/trailbase/item"
)

func putItem(slot []byte, it item.Item) {
	binary.LittleEndian.PutUint64(slot, uint64(it))
}

func getItem(slot []byte) item.Item {
	return item.Item(binary.LittleEndian.Uint64(slot))
}
