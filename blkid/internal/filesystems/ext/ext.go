// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ext probes extfs filesystems.
package ext

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/blkid/internal/utils"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const sbOffset = 0x400

var extfsMagic = magic.Magic{
	Offset: sbOffset + 0x38,
	Value:  []byte("\123\357"),
}

// Variant of the extfs family.
type Variant int

// Variants, each one is reported under its own name.
const (
	Ext2 Variant = iota
	Ext3
	Ext4
	JBD
)

func (v Variant) String() string {
	switch v {
	case Ext2:
		return "ext2"
	case Ext3:
		return "ext3"
	case Ext4:
		return "ext4"
	case JBD:
		return "jbd"
	default:
		return "unknown"
	}
}

// Probe for the filesystem.
//
// A Probe only accepts superblocks of its Variant.
type Probe struct {
	Variant Variant
}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&extfsMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return p.Variant.String()
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	if p.Variant == JBD {
		return probe.UsageOther
	}

	return probe.UsageFilesystem
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, SuperBlockSize)

	if err := ioutil.ReadFullAt(r, buf, sbOffset); err != nil {
		return nil, err
	}

	sb := SuperBlock(buf)

	if sb.Variant() != p.Variant || sb.BlockSize() == 0 {
		return nil, nil //nolint:nilnil
	}

	res := &probe.Result{
		BlockSize:           sb.BlockSize(),
		FilesystemBlockSize: sb.BlockSize(),
		ProbedSize:          sb.FilesystemSize(),

		Label:   utils.CString(sb.VolumeName()),
		Version: pointer.To(fmt.Sprintf("%d.%d", sb.RevLevel(), sb.MinorRevLevel())),
	}

	if sb.FeatureROCompat()&EXT4_FEATURE_RO_COMPAT_METADATA_CSUM > 0 {
		res.BadChecksum = utils.CRC32c(buf[:SuperBlockSize-4]) != sb.Checksum()
	}

	fsUUID, err := uuid.FromBytes(sb.UUID())
	if err != nil {
		return nil, err
	}

	if fsUUID != uuid.Nil {
		res.UUID = &fsUUID
	}

	return res, nil
}
