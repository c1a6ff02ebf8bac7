// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package zfs probes ZFS filesystems.
package zfs

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

// ZFS on-disk layout constants.
const (
	uberblockCount    = 128
	uberblockSize     = 1024
	vdevLabelSize     = 256 * 1024
	uberblockRingOff  = 128 * 1024
	minUberblocks     = 4
	uberblockMagicLen = 8

	magicNative  uint64 = 0x00bab10c
	magicSwapped uint64 = 0x0cb1ba00
)

// nullMagic matches always.
var nullMagic = magic.Magic{}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&nullMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "zfs"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageFilesystem
}

// Probe scans the uberblock rings of the four vdev labels.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	size := r.GetSize()

	if size < 2*vdevLabelSize {
		return nil, nil //nolint:nilnil
	}

	// trailing labels are aligned to the label size
	end := size - size%vdevLabelSize

	ring := make([]byte, uberblockCount*uberblockSize)

	for _, labelOffset := range []uint64{
		0,
		vdevLabelSize,
		end - 2*vdevLabelSize,
		end - vdevLabelSize,
	} {
		ringOffset := labelOffset + uberblockRingOff

		if err := ioutil.ReadFullAt(r, ring, int64(ringOffset)); err != nil {
			return nil, err
		}

		var (
			found int
			first = -1
			order binary.ByteOrder
		)

		for i := range uberblockCount {
			ub := ring[i*uberblockSize : (i+1)*uberblockSize]

			var o binary.ByteOrder

			switch binary.LittleEndian.Uint64(ub) {
			case magicNative:
				o = binary.LittleEndian
			case magicSwapped:
				o = binary.BigEndian
			default:
				continue
			}

			if first == -1 {
				first, order = i, o
			}

			found++
		}

		if found < minUberblocks {
			continue
		}

		ub := ring[first*uberblockSize:]

		// the pool name lives in the label nvlist, the GUID sum stands in for it
		return &probe.Result{
			Version: pointer.To(strconv.FormatUint(order.Uint64(ub[8:16]), 10)),
			Label:   pointer.To(fmt.Sprintf("%016x", order.Uint64(ub[24:32]))),
			Magic: &magic.Magic{
				Offset: int(ringOffset) + first*uberblockSize,
				Value:  append([]byte(nil), ub[:uberblockMagicLen]...),
			},
		}, nil
	}

	return nil, nil //nolint:nilnil
}
