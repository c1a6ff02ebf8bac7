// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package dos probes MBR (DOS) partition tables.
package dos

import (
	"encoding/binary"
	"fmt"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/vfat"
	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const (
	mbrSize = 512

	diskIDOffset       = 0x1b8
	partitionsOffset   = 0x1be
	partitionEntrySize = 16
	numPartitions      = 4

	// PMBR partition type of GPT disks.
	typeGPTProtective = 0xee
)

var mbrMagic = magic.Magic{
	Offset: 0x1fe,
	Value:  []byte{0x55, 0xaa},
}

// Probe for the partition table.
type Probe struct{}

// Magic returns the magic value for the partition table.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&mbrMagic}
}

// Name returns the name of the partition table.
func (p *Probe) Name() string {
	return "dos"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, mbrSize)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	// FAT boot sectors carry the same signature
	for _, m := range vfat.Magics() {
		if m.Matches(buf) && vfat.IsValid(vfat.BootSector(buf)) {
			return nil, nil //nolint:nilnil
		}
	}

	sectorSize := uint64(r.GetSectorSize())
	result := &probe.Result{
		BlockSize: uint32(sectorSize),
	}

	for i := range numPartitions {
		entry := buf[partitionsOffset+i*partitionEntrySize : partitionsOffset+(i+1)*partitionEntrySize]

		if bootIndicator := entry[0]; bootIndicator != 0 && bootIndicator != 0x80 {
			return nil, nil //nolint:nilnil
		}

		typeCode := entry[4]

		if typeCode == typeGPTProtective {
			// protective MBR is handled by the gpt prober
			return nil, nil //nolint:nilnil
		}

		start := uint64(binary.LittleEndian.Uint32(entry[8:]))
		size := uint64(binary.LittleEndian.Uint32(entry[12:]))

		if typeCode == 0 || size == 0 {
			continue
		}

		result.Parts = append(result.Parts, probe.Partition{
			TypeCode: typeCode,
			Index:    uint(i + 1),
			Offset:   start * sectorSize,
			Size:     size * sectorSize,
		})

		result.ProbedSize = max(result.ProbedSize, (start+size)*sectorSize)
	}

	if diskID := binary.LittleEndian.Uint32(buf[diskIDOffset:]); diskID != 0 {
		result.ID = pointer.To(fmt.Sprintf("%08x", diskID))
	}

	return result, nil
}
