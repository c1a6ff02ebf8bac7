// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gpt probes GPT partition tables.
package gpt

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/gptstructs"
	"github.com/siderolabs/go-blkprobe/internal/gptutil"
)

// nullMagic matches always, as the header location depends on the sector size.
var nullMagic = magic.Magic{}

var headerMagic = []byte("EFI PART")

// Probe for the partition table.
type Probe struct{}

// Magic returns the magic value for the partition table.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&nullMagic}
}

// Name returns the name of the partition table.
func (p *Probe) Name() string {
	return "gpt"
}

const primaryLBA = 1

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	lastLBA, ok := gptutil.LastLBA(r)
	if !ok || lastLBA <= primaryLBA {
		return nil, nil //nolint:nilnil
	}

	headerLBA := uint64(primaryLBA)

	// try reading primary header
	hdr, entries, err := gptstructs.ReadHeader(r, headerLBA, lastLBA)
	if err != nil {
		return nil, err
	}

	if hdr == nil {
		// try reading backup header
		headerLBA = lastLBA

		hdr, entries, err = gptstructs.ReadHeader(r, headerLBA, lastLBA)
		if err != nil {
			return nil, err
		}
	}

	if hdr == nil {
		// no header, skip
		return nil, nil //nolint:nilnil
	}

	ptUUID, err := uuid.FromBytes(gptutil.GUIDToUUID(hdr.DiskGUID()))
	if err != nil {
		return nil, err
	}

	sectorSize := r.GetSectorSize()

	result := &probe.Result{
		UUID: &ptUUID,
		Magic: &magic.Magic{
			Offset: int(gptutil.LBAToOffset(headerLBA, sectorSize)),
			Value:  headerMagic,
		},

		BlockSize:  uint32(sectorSize),
		ProbedSize: uint64(sectorSize) * (hdr.LastUsableLBA() - hdr.FirstUsableLBA() + 1),
	}

	partIdx := uint(1)
	firstUsableLBA := hdr.FirstUsableLBA()
	lastUsableLBA := hdr.LastUsableLBA()

	zeroGUID := make([]byte, 16)
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

	for _, entry := range entries {
		offset := gptutil.LBAToOffset(entry.StartingLBA(), sectorSize)
		size := gptutil.LBAToOffset(entry.EndingLBA()-entry.StartingLBA()+1, sectorSize)

		if entry.StartingLBA() < firstUsableLBA || entry.EndingLBA() > lastUsableLBA || entry.EndingLBA() < entry.StartingLBA() {
			partIdx++

			continue
		}

		// skip zero GUIDs
		if bytes.Equal(entry.PartitionTypeGUID(), zeroGUID) {
			partIdx++

			continue
		}

		partUUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.UniquePartitionGUID()))
		if err != nil {
			return nil, err
		}

		typeUUID, err := uuid.FromBytes(gptutil.GUIDToUUID(entry.PartitionTypeGUID()))
		if err != nil {
			return nil, err
		}

		name, err := utf16.NewDecoder().Bytes(entry.PartitionName())
		if err != nil {
			return nil, err
		}

		name = bytes.TrimRight(name, "\x00")

		result.Parts = append(result.Parts, probe.Partition{
			UUID:     &partUUID,
			TypeUUID: &typeUUID,
			Label:    pointer.To(string(name)),

			Index: partIdx,

			Offset: offset,
			Size:   size,
		})

		partIdx++
	}

	return result, nil
}
