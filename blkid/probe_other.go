// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package blkid

import (
	"fmt"
	"os"

	"github.com/siderolabs/go-blkprobe/block"
)

func getGeometry(f *os.File) (geometry, error) {
	st, err := f.Stat()
	if err != nil {
		return geometry{}, fmt.Errorf("failed to stat: %w", err)
	}

	if !st.Mode().IsRegular() {
		return geometry{}, fmt.Errorf("unsupported file type: %s", st.Mode().Type())
	}

	return geometry{
		size:       uint64(st.Size()),
		sectorSize: block.DefaultBlockSize,
		ioSize:     block.DefaultBlockSize,
	}, nil
}
