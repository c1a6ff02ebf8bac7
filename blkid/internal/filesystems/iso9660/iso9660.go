// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package iso9660 probes ISO9660 filesystems.
package iso9660

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/siderolabs/go-pointer"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const (
	superblockOffset = 0x8000

	descriptorSize = 2048
)

var isoMagic = magic.Magic{
	Offset: superblockOffset + 1,
	Value:  []byte("CD001"),
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&isoMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "iso9660"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageFilesystem
}

// Volume descriptor types.
const (
	vdBootRecord    = 0
	vdPrimary       = 1
	vdSupplementary = 2
	vdEnd           = 0xff

	vdMax = 16
)

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	var pvd, joliet VolumeDescriptor

vdLoop:
	for i := range vdMax {
		buf := make([]byte, descriptorSize)

		if err := ioutil.ReadFullAt(r, buf, superblockOffset+descriptorSize*int64(i)); err != nil {
			break
		}

		vd := VolumeDescriptor(buf)

		if !bytes.Equal(vd.ID(), isoMagic.Value) {
			break
		}

		switch vd.Type() {
		case vdEnd:
			break vdLoop
		case vdPrimary:
			if pvd == nil {
				pvd = vd
			}
		case vdSupplementary:
			if joliet == nil && vd.IsJoliet() {
				joliet = vd
			}
		}
	}

	if pvd == nil {
		return nil, nil //nolint:nilnil
	}

	logicalBlockSize := uint32(pvd.LogicalBlockSize())

	res := &probe.Result{
		BlockSize:           logicalBlockSize,
		FilesystemBlockSize: logicalBlockSize,
		ProbedSize:          uint64(pvd.SpaceSize()) * uint64(logicalBlockSize),
	}

	if joliet != nil {
		if label, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(joliet.VolumeID()); err == nil {
			res.Label = nonEmpty(strings.TrimRight(string(label), " \x00"))
		}
	}

	if res.Label == nil {
		res.Label = nonEmpty(strings.TrimRight(string(pvd.VolumeID()), " \x00"))
	}

	if id, ok := pvd.CreationID(); ok {
		res.ID = pointer.To(id)
	}

	return res, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return pointer.To(s)
}

// VolumeDescriptor is an ISO9660 volume descriptor.
type VolumeDescriptor []byte

// Type returns the descriptor type.
func (vd VolumeDescriptor) Type() uint8 {
	return vd[0]
}

// ID returns the standard identifier, "CD001".
func (vd VolumeDescriptor) ID() []byte {
	return vd[1:6]
}

// VolumeID returns the volume identifier.
func (vd VolumeDescriptor) VolumeID() []byte {
	return vd[40:72]
}

// SpaceSize returns the number of logical blocks (both-endian field, little endian half).
func (vd VolumeDescriptor) SpaceSize() uint32 {
	return binary.LittleEndian.Uint32(vd[80:84])
}

// IsJoliet returns true if the supplementary descriptor carries the Joliet escape sequence.
func (vd VolumeDescriptor) IsJoliet() bool {
	esc := vd[88:91]

	return esc[0] == '%' && esc[1] == '/' && (esc[2] == '@' || esc[2] == 'C' || esc[2] == 'E')
}

// LogicalBlockSize returns the logical block size (both-endian field, little endian half).
func (vd VolumeDescriptor) LogicalBlockSize() uint16 {
	return binary.LittleEndian.Uint16(vd[128:130])
}

// CreationID formats the volume creation time the way blkid reports ISO9660 UUIDs.
func (vd VolumeDescriptor) CreationID() (string, bool) {
	t := vd[813:829]

	if bytes.Count(t, []byte{'0'}) == len(t) || bytes.IndexFunc(t, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		return "", false
	}

	return strings.Join([]string{
		string(t[0:4]), string(t[4:6]), string(t[6:8]), string(t[8:10]), string(t[10:12]), string(t[12:14]), string(t[14:16]),
	}, "-"), true
}
