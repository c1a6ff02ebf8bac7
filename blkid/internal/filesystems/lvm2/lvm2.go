// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package lvm2 probes LVM2 PVs.
package lvm2

import (
	"encoding/binary"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const (
	labelSize = 512

	// offset of the type within the label header
	typeOffset = 0x18

	pvUUIDLen = 32
)

var (
	labelID   = []byte("LABELONE")
	labelType = []byte("LVM2 001")
)

// the label is in the first or the second sector.
var (
	lvmMagic1 = magic.Magic{
		Offset: typeOffset,
		Value:  labelType,
	}

	lvmMagic2 = magic.Magic{
		Offset: labelSize + typeOffset,
		Value:  labelType,
	}
)

// Probe for the LVM2 physical volume.
type Probe struct{}

// Magic returns the magic value for the PV label.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{
		&lvmMagic1,
		&lvmMagic2,
	}
}

// Name returns the name of the volume manager.
func (p *Probe) Name() string {
	return "lvm2-pv"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageRaid
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, labelSize)

	if err := ioutil.ReadFullAt(r, buf, int64(m.Offset-typeOffset)); err != nil {
		return nil, err
	}

	hdr := Label(buf)

	if string(hdr.ID()) != string(labelID) || string(hdr.Type()) != string(labelType) {
		return nil, nil //nolint:nilnil
	}

	pvUUID, ok := hdr.PVUUID()
	if !ok {
		return nil, nil //nolint:nilnil
	}

	return &probe.Result{
		ID:      pointer.To(formatPVUUID(pvUUID)),
		Version: pointer.To(string(labelType)),
	}, nil
}

// Label is the LVM2 label sector: label header followed by the PV header.
type Label []byte

// ID returns the label ID.
func (l Label) ID() []byte {
	return l[0:8]
}

// Sector returns the sector number of the label.
func (l Label) Sector() uint64 {
	return binary.LittleEndian.Uint64(l[8:16])
}

// ContentOffset returns the offset of the PV header within the label sector.
func (l Label) ContentOffset() uint32 {
	return binary.LittleEndian.Uint32(l[20:24])
}

// Type returns the label type.
func (l Label) Type() []byte {
	return l[typeOffset : typeOffset+8]
}

// PVUUID returns the PV UUID from the PV header.
func (l Label) PVUUID() ([]byte, bool) {
	off := int(l.ContentOffset())

	if off < typeOffset+8 || off+pvUUIDLen > len(l) {
		return nil, false
	}

	return l[off : off+pvUUIDLen], true
}

// formatPVUUID formats the 32 characters of the PV UUID the way LVM tools print it.
func formatPVUUID(id []byte) string {
	s := string(id)

	return s[:6] + "-" + s[6:10] + "-" + s[10:14] + "-" + s[14:18] + "-" + s[18:22] + "-" + s[22:26] + "-" + s[26:]
}
