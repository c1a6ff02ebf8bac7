// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package squashfs probes Squash filesystems.
package squashfs

import (
	"encoding/binary"
	"fmt"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

const superBlockSize = 48

var squashfsMagic = magic.Magic{ // little endian
	Offset: 0,
	Value:  []byte("hsqs"),
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{
		&squashfsMagic,
	}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "squashfs"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageFilesystem
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, superBlockSize)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	blockSize := binary.LittleEndian.Uint32(buf[12:])
	vermaj := binary.LittleEndian.Uint16(buf[28:])
	vermin := binary.LittleEndian.Uint16(buf[30:])

	if vermaj < 4 {
		return nil, nil //nolint:nilnil
	}

	return &probe.Result{
		Version: pointer.To(fmt.Sprintf("%d.%d", vermaj, vermin)),

		BlockSize:           blockSize,
		FilesystemBlockSize: blockSize,
		ProbedSize:          binary.LittleEndian.Uint64(buf[40:]),
	}, nil
}
