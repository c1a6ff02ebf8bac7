// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package swap probes Linux swapspaces.
package swap

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/blkid/internal/utils"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const (
	magicV0 = "SWAP-SPACE"
	magicV1 = "SWAPSPACE2"

	headerOffset = 1024
	headerSize   = 44
)

var magics = func() []*magic.Magic {
	var result []*magic.Magic

	// swap signature is at the end of the first page, for page sizes 4k..64k
	for _, pageSize := range []int{0x1000, 0x2000, 0x4000, 0x8000, 0x10000} {
		for _, value := range []string{magicV0, magicV1} {
			result = append(result, &magic.Magic{
				Offset: pageSize - len(value),
				Value:  []byte(value),
			})
		}
	}

	return result
}()

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return magics
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "swap"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageOther
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	// https://github.com/util-linux/util-linux/blob/c0207d354ee47fb56acfa64b03b5b559bb301280/libblkid/src/superblocks/swap.c#L47
	pageSize := m.Offset + len(m.Value)

	if string(m.Value) == magicV0 {
		return &probe.Result{
			Version:             pointer.To("0"),
			BlockSize:           uint32(pageSize),
			FilesystemBlockSize: uint32(pageSize),
		}, nil
	}

	buf := make([]byte, headerSize)

	if err := ioutil.ReadFullAt(r, buf, headerOffset); err != nil {
		return nil, err
	}

	version := binary.LittleEndian.Uint32(buf[0:])
	lastPage := binary.LittleEndian.Uint32(buf[4:])

	if version != 1 || lastPage == 0 {
		return nil, nil //nolint:nilnil
	}

	res := &probe.Result{
		Version: pointer.To("1"),
		Label:   utils.CString(buf[28:44]),

		BlockSize:           uint32(pageSize),
		FilesystemBlockSize: uint32(pageSize),
		ProbedSize:          uint64(pageSize) * uint64(lastPage),
	}

	fsUUID, err := uuid.FromBytes(buf[12:28])
	if err == nil && fsUUID != uuid.Nil {
		res.UUID = &fsUUID
	}

	return res, nil
}
