// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package luks probes LUKS encrypted volumes.
package luks

import (
	"bytes"
	"strconv"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/blkid/internal/utils"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

// Name is the name of the LUKS signature.
const Name = "crypto_LUKS"

var (
	primaryMagic   = []byte("LUKS\xba\xbe")
	secondaryMagic = []byte("SKUL\xba\xbe")
)

// LUKS2 secondary header offsets, the secondary header follows the primary one
// and its offset depends on the size of the JSON area.
var secondaryOffsets = []int{
	0x4000, 0x8000, 0x10000, 0x20000, 0x40000, 0x80000, 0x100000, 0x200000, 0x400000,
}

var magics = func() []*magic.Magic {
	result := []*magic.Magic{
		{Offset: 0, Value: primaryMagic},
	}

	for _, offset := range secondaryOffsets {
		result = append(result, &magic.Magic{Offset: offset, Value: secondaryMagic})
	}

	return result
}()

// Probe for the LUKS header.
type Probe struct{}

// Magic returns the magic values for the LUKS headers.
//
// The primary header goes first, so the secondary LUKS2 headers are only
// matched once the primary one is gone.
func (p *Probe) Magic() []*magic.Magic {
	return magics
}

// Name returns the name of the signature.
func (p *Probe) Name() string {
	return Name
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageCrypto
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, HeaderSize)

	if err := ioutil.ReadFullAt(r, buf, int64(m.Offset)); err != nil {
		return nil, err
	}

	hdr := Header(buf)

	version := hdr.Version()

	switch {
	case version != 1 && version != 2:
		return nil, nil //nolint:nilnil
	case version == 2 && hdr.HeaderOffset() != uint64(m.Offset):
		return nil, nil //nolint:nilnil
	case version == 1 && m.Offset != 0:
		return nil, nil //nolint:nilnil
	}

	res := &probe.Result{
		Version: pointer.To(strconv.Itoa(int(version))),
	}

	if version == 2 {
		res.Label = utils.CString(hdr.Label())
	}

	uuidStr := hdr.UUID()
	if idx := bytes.IndexByte(uuidStr, 0); idx != -1 {
		uuidStr = uuidStr[:idx]
	}

	if len(uuidStr) > 0 {
		if id, err := uuid.ParseBytes(uuidStr); err == nil {
			res.UUID = pointer.To(id)
		}
	}

	return res, nil
}
