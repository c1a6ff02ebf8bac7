// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package vfat probes FAT12/FAT16/FAT32 filesystems.
package vfat

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/blkid/internal/utils"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

var (
	fatMagic1 = magic.Magic{
		Offset: 0x52,
		Value:  []byte("MSWIN"),
	}

	fatMagic2 = magic.Magic{
		Offset: 0x52,
		Value:  []byte("FAT32   "),
	}

	fatMagic3 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("MSDOS"),
	}

	fatMagic4 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT16   "),
	}

	fatMagic5 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT12   "),
	}

	fatMagic6 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT     "),
	}
)

// Magics returns all FAT boot sector magics.
//
// The dos partition table prober uses them to tell a FAT boot sector from an MBR.
func Magics() []*magic.Magic {
	return []*magic.Magic{
		&fatMagic1,
		&fatMagic2,
		&fatMagic3,
		&fatMagic4,
		&fatMagic5,
		&fatMagic6,
	}
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return Magics()
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "vfat"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageFilesystem
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, BootSectorSize)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	sb := BootSector(buf)

	if !IsValid(sb) {
		return nil, nil //nolint:nilnil
	}

	sectorCount := uint32(sb.Sectors())
	if sectorCount == 0 {
		sectorCount = sb.TotalSect()
	}

	sectorSize := uint32(sb.SectorSize())

	res := &probe.Result{
		BlockSize:           sectorSize,
		FilesystemBlockSize: uint32(sb.ClusterSize()) * sectorSize,
		ProbedSize:          uint64(sectorCount) * uint64(sectorSize),
	}

	label, serial := sb.FAT16Label(), sb.FAT16Serial()

	if m.Offset == fatMagic1.Offset {
		label, serial = sb.FAT32Label(), sb.FAT32Serial()
		res.Version = pointer.To("FAT32")
	} else if v := strings.TrimSpace(string(m.Value)); strings.HasPrefix(v, "FAT1") {
		res.Version = pointer.To(v)
	}

	if lbl := bytes.TrimRight(label, " \x00"); len(lbl) > 0 && string(lbl) != "NO NAME" {
		res.Label = utils.CString(lbl)
	}

	if serial != 0 {
		res.ID = pointer.To(fmt.Sprintf("%04X-%04X", serial>>16, serial&0xffff))
	}

	return res, nil
}

// IsValid checks the BIOS parameter block for sanity.
func IsValid(sb BootSector) bool {
	if sb.FATs() == 0 {
		return false
	}

	if sb.Reserved() == 0 {
		return false
	}

	if !(0xf8 <= sb.Media() || sb.Media() == 0xf0) {
		return false
	}

	if !utils.IsPowerOf2(sb.ClusterSize()) {
		return false
	}

	if !utils.IsPowerOf2(sb.SectorSize()) {
		return false
	}

	if sb.SectorSize() < 512 || sb.SectorSize() > 4096 {
		return false
	}

	return true
}
