// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package chain provides the lists of probers for superblocks and partition tables.
package chain

import (
	"io"

	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/bluestore"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/ext"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/iso9660"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/luks"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/lvm2"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/squashfs"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/swap"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/talosmeta"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/vfat"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/xfs"
	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/zfs"
	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/partitions/dos"
	"github.com/siderolabs/go-blkprobe/blkid/internal/partitions/gpt"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
)

// Chain is a list of probers.
type Chain[T probe.Prober] []T

// MaxMagicSize returns the maximum size of the magic value in the chain.
func (chain Chain[T]) MaxMagicSize() int {
	max := 0

	for _, prober := range chain {
		for _, magic := range prober.Magic() {
			if size := magic.BlockSize(); size >= max {
				max = size
			}
		}
	}

	return max
}

// MagicMatches returns the first magic of the prober which matches.
//
// Magic values which don't fit into the buffer are read from r.
func MagicMatches(prober probe.Prober, buf []byte, r io.ReaderAt) (magic.Magic, bool) {
	for _, m := range prober.Magic() {
		var matches bool

		if m.BlockSize() <= len(buf) {
			matches = m.Matches(buf)
		} else {
			matches = m.MatchesAt(r)
		}

		if matches {
			return *m, true
		}
	}

	return magic.Magic{}, false
}

// Superblocks returns the list of probers for filesystems, volume managers and crypto containers.
//
// Order matters: probers are tried in this order by incremental probing.
func Superblocks() Chain[probe.SuperblockProber] {
	return Chain[probe.SuperblockProber]{
		&luks.Probe{},
		&lvm2.Probe{},
		&xfs.Probe{},
		&ext.Probe{Variant: ext.JBD},
		&ext.Probe{Variant: ext.Ext4},
		&ext.Probe{Variant: ext.Ext3},
		&ext.Probe{Variant: ext.Ext2},
		&vfat.Probe{},
		&swap.Probe{},
		&squashfs.Probe{},
		&bluestore.Probe{},
		&iso9660.Probe{},
		&talosmeta.Probe{},
		// no magic, tried on every device
		&zfs.Probe{},
	}
}

// Partitions returns the list of probers for partition tables.
func Partitions() Chain[probe.Prober] {
	return Chain[probe.Prober]{
		&gpt.Probe{},
		&dos.Probe{},
	}
}
