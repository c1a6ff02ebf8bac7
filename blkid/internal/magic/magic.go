// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package magic implements the magic number detection for files and block devices.
package magic

import (
	"bytes"
	"io"
)

// Magic defines a filesystem/volume manager/partition table magic value.
type Magic struct {
	// Value to search for.
	Value []byte

	// Offset in the probed area where the magic value is located.
	Offset int
}

// Matches returns true if the magic value is found at the specified offset in the buffer.
//
// Magic with an empty Value matches any buffer.
func (magic *Magic) Matches(buf []byte) bool {
	if len(magic.Value) == 0 {
		return true
	}

	if len(buf) < magic.Offset+len(magic.Value) {
		return false
	}

	return bytes.Equal(buf[magic.Offset:magic.Offset+len(magic.Value)], magic.Value)
}

// BlockSize returns the size of the buffer that needs to be read from the disk to detect the magic value.
func (magic *Magic) BlockSize() int {
	if len(magic.Value) == 0 {
		return 0
	}

	return magic.Offset + len(magic.Value)
}

// MatchesAt returns true if the magic value is found at the specified offset of the reader.
//
// It is used for magic values which are too far from the start of the device to be
// included into the common magic buffer.
func (magic *Magic) MatchesAt(r io.ReaderAt) bool {
	if len(magic.Value) == 0 {
		return true
	}

	buf := make([]byte, len(magic.Value))

	if n, err := r.ReadAt(buf, int64(magic.Offset)); n != len(buf) && err != nil {
		return false
	}

	return bytes.Equal(buf, magic.Value)
}
