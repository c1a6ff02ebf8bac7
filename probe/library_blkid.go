// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux && !noblkid

package probe

import (
	"errors"
	"os"

	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"

	"github.com/siderolabs/go-blkprobe/blkid"
)

func defaultLibrary() Library {
	return blkidLibrary{}
}

// blkidLibrary is backed by the pure-Go blkid package.
type blkidLibrary struct{}

func (blkidLibrary) Supported() bool { return true }

func (blkidLibrary) Capabilities() Capabilities {
	return Capabilities{
		BadChecksum:     true,
		NativeWipe:      true,
		StepBack:        true,
		PartitionsMagic: true,
	}
}

func (blkidLibrary) NewSessionFromPath(path string, logger *zap.Logger) (Session, error) {
	p, err := blkid.NewProbeFromFilename(path, blkid.WithProbeLogger(logger))
	if err != nil {
		return nil, err
	}

	return &blkidSession{p: p}, nil
}

func (blkidLibrary) NewSessionFromFile(f *os.File, logger *zap.Logger) (Session, error) {
	p := blkid.NewProbe(blkid.WithProbeLogger(logger))

	if err := p.SetDevice(f, 0, 0); err != nil {
		return nil, err
	}

	return &blkidSession{p: p}, nil
}

var (
	superblocksFlags = map[SuperblocksFlags]blkid.SuperblocksFlags{
		SuperblocksLabel:       blkid.SuperblocksLabel,
		SuperblocksUUID:        blkid.SuperblocksUUID,
		SuperblocksType:        blkid.SuperblocksType,
		SuperblocksUsage:       blkid.SuperblocksUsage,
		SuperblocksVersion:     blkid.SuperblocksVersion,
		SuperblocksMagic:       blkid.SuperblocksMagic,
		SuperblocksBadChecksum: blkid.SuperblocksBadChecksum,
	}

	filterModes = map[FilterMode]blkid.FilterMode{
		FilterNotIn:  blkid.FilterNotIn,
		FilterOnlyIn: blkid.FilterOnlyIn,
	}
)

type blkidSession struct {
	p *blkid.Probe
}

func (s *blkidSession) EnablePartitions(enable bool) error {
	s.p.EnablePartitions(enable)

	return nil
}

func (s *blkidSession) SetPartitionsFlags(flags PartitionsFlags) error {
	var converted blkid.PartitionsFlags

	if flags&PartitionsMagic != 0 {
		converted |= blkid.PartitionsMagic
	}

	s.p.SetPartitionsFlags(converted)

	return nil
}

func (s *blkidSession) EnableSuperblocks(enable bool) error {
	s.p.EnableSuperblocks(enable)

	return nil
}

func (s *blkidSession) SetSuperblocksFlags(flags SuperblocksFlags) error {
	var converted blkid.SuperblocksFlags

	for flag, blkidFlag := range superblocksFlags {
		if flags&flag != 0 {
			converted |= blkidFlag
		}
	}

	s.p.SetSuperblocksFlags(converted)

	return nil
}

func (s *blkidSession) FilterSuperblocksType(mode FilterMode, names []string) error {
	blkidMode, ok := filterModes[mode]
	if !ok {
		return ErrInvalidArgument
	}

	return s.p.FilterSuperblocksType(blkidMode, names)
}

func (s *blkidSession) DoProbe() error {
	return convertOutcome(s.p.DoProbe())
}

func (s *blkidSession) DoSafeProbe() error {
	return convertOutcome(s.p.DoSafeProbe())
}

func convertOutcome(err error) error {
	switch {
	case errors.Is(err, blkid.ErrNothingFound):
		return ErrNothingFound
	case errors.Is(err, blkid.ErrAmbivalent):
		return ErrAmbivalent
	default:
		return err
	}
}

func (s *blkidSession) HasValue(name string) bool {
	return s.p.HasValue(name)
}

func (s *blkidSession) LookupValue(name string) ([]byte, bool) {
	return s.p.LookupValue(name)
}

func (s *blkidSession) Values() []Value {
	return xslices.Map(s.p.Values(), func(v blkid.Value) Value {
		return Value{Name: v.Name, Data: v.Data}
	})
}

func (s *blkidSession) Partitions() []Partition {
	return xslices.Map(s.p.Partitions(), func(part blkid.Partition) Partition {
		var label string

		if part.Label != nil {
			label = *part.Label
		}

		return Partition{
			UUID:     part.UUID,
			TypeUUID: part.TypeUUID,
			Label:    label,
			TypeCode: part.TypeCode,
			Index:    part.Index,
			Offset:   part.Offset,
			Size:     part.Size,
		}
	})
}

func (s *blkidSession) SectorSize() uint {
	return s.p.SectorSize()
}

func (s *blkidSession) Wipe() error {
	return s.p.DoWipe(false)
}

func (s *blkidSession) StepBack() error {
	return s.p.StepBack()
}

func (s *blkidSession) Reset() error {
	s.p.Reset()

	return nil
}

func (s *blkidSession) SetDevice(f *os.File, offset, size uint64) error {
	return s.p.SetDevice(f, offset, size)
}

func (s *blkidSession) Close() error {
	return s.p.Close()
}
