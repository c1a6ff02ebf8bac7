// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package talosmeta probes Talos META partition.
package talosmeta

import (
	"encoding/binary"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

// META constants, from talos/internal/pkg/meta/internal/adv/talos.
const (
	magic1 uint32 = 0x5a4b3c2d
	magic2 uint32 = 0xa5b4c3d2
	length        = 256 * 1024
)

// META keeps two copies, one after another.
var (
	metaMagic1 = magic.Magic{
		Offset: 0,
		Value:  binary.BigEndian.AppendUint32(nil, magic1),
	}

	metaMagic2 = magic.Magic{
		Offset: length,
		Value:  binary.BigEndian.AppendUint32(nil, magic1),
	}
)

// Probe for the META partition.
type Probe struct{}

// Magic returns the magic values for both copies.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{
		&metaMagic1,
		&metaMagic2,
	}
}

// Name returns the name of the signature.
func (p *Probe) Name() string {
	return "talosmeta"
}

// Usage implements probe.SuperblockProber.
func (p *Probe) Usage() probe.Usage {
	return probe.UsageOther
}

// Probe checks the trailing magic of the matched copy.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, 4)

	if err := ioutil.ReadFullAt(r, buf, int64(m.Offset)+length-4); err != nil {
		return nil, err
	}

	if binary.BigEndian.Uint32(buf) != magic2 {
		return nil, nil //nolint:nilnil
	}

	return &probe.Result{
		ProbedSize: 2 * length,
	}, nil
}
