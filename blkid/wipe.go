// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// DoWipe erases the magic of the signature found by the last probe.
//
// The magic string is overwritten with zeroes and the device is synced, then
// incremental probing steps back, so the next DoProbe checks the same prober
// again (another magic of the same type might be present).
//
// If the last probe didn't report a magic (SuperblocksMagic/PartitionsMagic flags not set,
// or nothing found), DoWipe does nothing. With dryRun the device is not modified.
func (p *Probe) DoWipe(dryRun bool) error {
	if p.f == nil {
		return ErrNoDevice
	}

	offKey, magicKey, ok := p.wipeValues()
	if !ok {
		return nil
	}

	off, _ := p.LookupValue(offKey)     //nolint:errcheck
	mag, _ := p.LookupValue(magicKey) //nolint:errcheck

	offset, err := strconv.ParseUint(string(off), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid magic offset %q: %w", off, err)
	}

	if offset+uint64(len(mag)) > p.size {
		return fmt.Errorf("magic is out of the probing area: offset %d + len %d > size %d", offset, len(mag), p.size)
	}

	offset += p.offset

	p.logger.Debug("wiping signature",
		zap.String("device", p.f.Name()),
		zap.Uint64("offset", offset),
		zap.Int("len", len(mag)),
		zap.Bool("dry_run", dryRun),
	)

	if !dryRun {
		if _, err = p.f.WriteAt(make([]byte, len(mag)), int64(offset)); err != nil {
			return fmt.Errorf("failed to wipe signature at %d: %w", offset, err)
		}

		if err = p.f.Sync(); err != nil {
			return fmt.Errorf("failed to sync device: %w", err)
		}
	}

	if p.cur != noChain {
		return p.StepBack()
	}

	return nil
}

// wipeValues returns the names of magic values to wipe.
//
// The chain of the incremental probing in progress wins, otherwise (after DoSafeProbe)
// the partition table magic goes first.
func (p *Probe) wipeValues() (offKey, magicKey string, ok bool) {
	candidates := [][2]string{
		{ValuePartitionTableMagicOff, ValuePartitionTableMagic},
		{ValueSuperblockMagicOff, ValueSuperblockMagic},
	}

	switch p.cur {
	case chainSuperblocks:
		candidates = candidates[1:]
	case chainPartitions:
		candidates = candidates[:1]
	}

	for _, c := range candidates {
		if p.HasValue(c[0]) && p.HasValue(c[1]) {
			return c[0], c[1], true
		}
	}

	return "", "", false
}
