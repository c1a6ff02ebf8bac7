// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-blkprobe/block"
)

func getGeometry(f *os.File) (geometry, error) {
	var st unix.Stat_t

	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return geometry{}, fmt.Errorf("failed to stat: %w", err)
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK:
		dev := block.NewFromFile(f)

		size, err := dev.GetSize()
		if err != nil {
			return geometry{}, fmt.Errorf("failed to get block device size: %w", err)
		}

		ioSize, err := dev.GetIOSize()
		if err != nil {
			return geometry{}, fmt.Errorf("failed to get block device I/O size: %w", err)
		}

		return geometry{
			size:       size,
			sectorSize: dev.GetSectorSize(),
			ioSize:     ioSize,
		}, nil
	case unix.S_IFREG:
		return geometry{
			size:       uint64(st.Size),
			sectorSize: block.DefaultBlockSize,
			ioSize:     block.DefaultBlockSize,
		}, nil
	default:
		return geometry{}, fmt.Errorf("unsupported file type: 0%o", st.Mode&unix.S_IFMT)
	}
}
