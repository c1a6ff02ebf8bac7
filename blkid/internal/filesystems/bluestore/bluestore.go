// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package bluestore probes Ceph bluestore devices.
package bluestore

import (
	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

var blueStoreMagic = magic.Magic{
	Offset: 0,
	Value:  []byte("bluestore block device"),
}

// the label is "bluestore block device\n<osd uuid>\n".
const (
	osdUUIDOffset = 23
	osdUUIDLen    = 36
)

// Probe for the bluestore.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&blueStoreMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "ceph_bluestore"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageOther
}

// Probe runs the further inspection and returns the result if successful.
//
// The OSD UUID is reported if the label carries one.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, osdUUIDOffset+osdUUIDLen)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	res := &probe.Result{}

	if id, err := uuid.ParseBytes(buf[osdUUIDOffset:]); err == nil {
		res.UUID = pointer.To(id)
	}

	return res, nil
}
