// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cons

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/trailbase/errors"
)

// VersionLatest is written verbatim, as ASCII decimal with no trailing
// newline, to the version file.
const VersionLatest = 1

// storeVersion writes the version file.
func storeVersion(root string) error {
	path := filepath.Join(root, "version")
	if err := os.WriteFile(path, []byte(strconv.Itoa(VersionLatest)), 0644); err != nil {
		return errors.E(errors.IoWrite, "writing version file", err)
	}
	return nil
}

// storeFields writes the fields file: one field name per line, in
// output-field order, LF-terminated. The reader re-adds the implicit
// "time" field at position 0.
func storeFields(root string, fields []string) error {
	path := filepath.Join(root, "fields")
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.E(errors.IoWrite, "writing fields file", err)
	}
	return nil
}
