// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"

	"github.com/siderolabs/go-blkprobe/blkid/internal/chain"
	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
	"github.com/siderolabs/go-blkprobe/blkid/internal/probe"
)

type chainEntry struct {
	prober probe.Prober
	usage  probe.Usage
}

var (
	superblockChain = chain.Superblocks()
	partitionChain  = chain.Partitions()

	chainEntries = [numChains][]chainEntry{
		chainSuperblocks: xslices.Map(superblockChain, func(p probe.SuperblockProber) chainEntry {
			return chainEntry{prober: p, usage: p.Usage()}
		}),
		chainPartitions: xslices.Map(partitionChain, func(p probe.Prober) chainEntry {
			return chainEntry{prober: p}
		}),
	}

	chainMagicSize = [numChains]int{
		chainSuperblocks: min(superblockChain.MaxMagicSize(), maxMagicBufferSize),
		chainPartitions:  min(partitionChain.MaxMagicSize(), maxMagicBufferSize),
	}
)

// maxMagicBufferSize limits the magic buffer, magic values beyond it are read one by one.
const maxMagicBufferSize = 0x10000

type match struct {
	res   *probe.Result
	magic magic.Magic
	entry chainEntry
	idx   int
}

// DoProbe runs the next prober of the enabled chains.
//
// Each call continues after the previous match: superblocks first, then partition tables.
// ErrNothingFound is returned when all chains are exhausted, the next call starts over.
func (p *Probe) DoProbe() error {
	if p.f == nil {
		return ErrNoDevice
	}

	p.resetValues()

	if p.cur == noChain {
		p.cur = chainSuperblocks
	}

	for ; p.cur < numChains; p.cur++ {
		st := &p.chains[p.cur]

		if !st.enabled {
			st.idx = -1

			continue
		}

		m, err := p.nextMatch(p.cur, st.idx+1)
		if err != nil {
			return err
		}

		if m != nil {
			st.idx = m.idx
			p.commit(p.cur, m)

			return nil
		}

		st.idx = -1
	}

	p.cur = noChain

	return ErrNothingFound
}

// DoSafeProbe runs all enabled chains and checks that the result is unambiguous.
//
// ErrAmbivalent is returned if more than one superblock was found, no values are set in that case.
// Incremental probing is reset.
func (p *Probe) DoSafeProbe() error {
	if p.f == nil {
		return ErrNoDevice
	}

	p.Reset()

	found := false

	if p.chains[chainSuperblocks].enabled {
		var matches []*match

		for idx := 0; ; {
			m, err := p.nextMatch(chainSuperblocks, idx)
			if err != nil {
				return err
			}

			if m == nil {
				break
			}

			matches = append(matches, m)
			idx = m.idx + 1
		}

		if len(matches) > 1 {
			p.logger.Debug("ambivalent probing result",
				zap.Strings("types", xslices.Map(matches, func(m *match) string { return m.entry.prober.Name() })),
			)

			return ErrAmbivalent
		}

		if len(matches) == 1 {
			p.commit(chainSuperblocks, matches[0])

			found = true
		}
	}

	if p.chains[chainPartitions].enabled {
		m, err := p.nextMatch(chainPartitions, 0)
		if err != nil {
			return err
		}

		if m != nil {
			p.commit(chainPartitions, m)

			found = true
		}
	}

	if !found {
		return ErrNothingFound
	}

	return nil
}

// StepBack moves incremental probing back by one prober, so the next DoProbe
// runs the last matched prober again.
func (p *Probe) StepBack() error {
	if p.cur == noChain {
		return ErrNoCurrentChain
	}

	if st := &p.chains[p.cur]; st.idx >= 0 {
		st.idx--
	}

	p.logger.Debug("probing stepped back", zap.Stringer("chain", p.cur))

	return nil
}

func (p *Probe) readMagicBuffer(id chainID) ([]byte, error) {
	size := uint64(max(chainMagicSize[id], int(p.ioSize)))
	size = min(size, p.size)

	buf := make([]byte, size)

	n, err := p.f.ReadAt(buf, int64(p.offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read magic buffer: %w", err)
	}

	return buf[:n], nil
}

// nextMatch runs the probers of the chain starting at index start and returns the first match.
func (p *Probe) nextMatch(id chainID, start int) (*match, error) {
	buf, err := p.readMagicBuffer(id)
	if err != nil {
		return nil, err
	}

	r := p.reader()
	entries := chainEntries[id]

	for idx := start; idx < len(entries); idx++ {
		entry := entries[idx]
		name := entry.prober.Name()

		if id == chainSuperblocks && p.filtered(name) {
			continue
		}

		mag, ok := chain.MagicMatches(entry.prober, buf, r)
		if !ok {
			continue
		}

		res, err := entry.prober.Probe(r, mag)
		if err != nil {
			p.logger.Debug("prober failed", zap.String("prober", name), zap.Error(err))

			continue
		}

		if res == nil {
			continue
		}

		if res.BadChecksum && (id != chainSuperblocks || p.superblocksFlags&SuperblocksBadChecksum == 0) {
			p.logger.Debug("signature with bad checksum skipped", zap.String("prober", name))

			continue
		}

		if res.Magic != nil {
			mag = *res.Magic
		}

		p.logger.Debug("signature found", zap.Stringer("chain", id), zap.String("type", name))

		return &match{
			res:   res,
			magic: mag,
			entry: entry,
			idx:   idx,
		}, nil
	}

	return nil, nil //nolint:nilnil
}

func (p *Probe) commit(id chainID, m *match) {
	switch id {
	case chainSuperblocks:
		p.commitSuperblock(m)
	case chainPartitions:
		p.commitPartitions(m)
	}
}

func (p *Probe) commitSuperblock(m *match) {
	flags := p.superblocksFlags
	res := m.res

	if flags&SuperblocksType != 0 {
		p.setString(ValueType, m.entry.prober.Name())
	}

	if flags&SuperblocksLabel != 0 && res.Label != nil {
		p.setString(ValueLabel, *res.Label)
	}

	if flags&SuperblocksUUID != 0 {
		switch {
		case res.UUID != nil:
			p.setString(ValueUUID, res.UUID.String())
		case res.ID != nil:
			p.setString(ValueUUID, *res.ID)
		}
	}

	if flags&SuperblocksUsage != 0 {
		p.setString(ValueUsage, m.entry.usage.String())
	}

	if flags&SuperblocksVersion != 0 && res.Version != nil {
		p.setString(ValueVersion, *res.Version)
	}

	if flags&SuperblocksMagic != 0 && len(m.magic.Value) > 0 {
		p.setValue(ValueSuperblockMagic, append([]byte(nil), m.magic.Value...))
		p.setString(ValueSuperblockMagicOff, strconv.Itoa(m.magic.Offset))
	}

	if res.BadChecksum {
		p.setString(ValueBadChecksum, "1")
	}

	if res.BlockSize != 0 {
		p.setString(ValueBlockSize, strconv.FormatUint(uint64(res.BlockSize), 10))
	}

	if flags&SuperblocksFSInfo != 0 {
		if res.ProbedSize != 0 {
			p.setString(ValueFSSize, strconv.FormatUint(res.ProbedSize, 10))
		}

		if res.FilesystemBlockSize != 0 {
			p.setString(ValueFSBlockSize, strconv.FormatUint(uint64(res.FilesystemBlockSize), 10))
		}
	}
}

func (p *Probe) commitPartitions(m *match) {
	res := m.res

	p.setString(ValuePartitionTableType, m.entry.prober.Name())

	switch {
	case res.UUID != nil:
		p.setString(ValuePartitionTableUUID, res.UUID.String())
	case res.ID != nil:
		p.setString(ValuePartitionTableUUID, *res.ID)
	}

	if p.partitionsFlags&PartitionsMagic != 0 && len(m.magic.Value) > 0 {
		p.setValue(ValuePartitionTableMagic, append([]byte(nil), m.magic.Value...))
		p.setString(ValuePartitionTableMagicOff, strconv.Itoa(m.magic.Offset))
	}

	p.parts = xslices.Map(res.Parts, func(part probe.Partition) Partition {
		return Partition{
			UUID:     part.UUID,
			TypeUUID: part.TypeUUID,
			Label:    part.Label,
			TypeCode: part.TypeCode,
			Index:    part.Index,
			Offset:   part.Offset,
			Size:     part.Size,
		}
	})
}
