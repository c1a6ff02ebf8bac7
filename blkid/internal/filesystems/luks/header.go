// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package luks

import "encoding/binary"

// HeaderSize is the size of the common part of LUKS1 and LUKS2 binary headers.
const HeaderSize = 512

// Header is the LUKS1/LUKS2 binary header.
//
// Both versions share the magic, the version and the UUID location;
// the label is only present in LUKS2.
type Header []byte

// Magic returns the header magic.
func (h Header) Magic() []byte {
	return h[0:6]
}

// Version returns the header version.
func (h Header) Version() uint16 {
	return binary.BigEndian.Uint16(h[6:8])
}

// Label returns the LUKS2 label field.
func (h Header) Label() []byte {
	return h[24:72]
}

// HeaderOffset returns the offset of the LUKS2 header from the start of the device.
func (h Header) HeaderOffset() uint64 {
	return binary.BigEndian.Uint64(h[256:264])
}

// UUID returns the textual UUID field.
func (h Header) UUID() []byte {
	return h[168:208]
}
