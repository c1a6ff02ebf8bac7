// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package blkid identifies filesystem superblocks and partition tables on block devices.
//
// The API follows libblkid low-level probing: a Probe is bound to a device,
// detection chains are enabled and configured with flags, and DoProbe/DoSafeProbe
// fill a set of named values (TYPE, PTTYPE, SBMAGIC_OFFSET, ...) which can be looked up
// until the next probe.
package blkid

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common errors.
var (
	// ErrNothingFound is returned by DoProbe/DoSafeProbe when no (more) signatures were found.
	ErrNothingFound = errors.New("nothing found")
	// ErrAmbivalent is returned by DoSafeProbe if more than one signature was detected.
	ErrAmbivalent = errors.New("ambivalent probing result")
	// ErrNoDevice is returned when the probe is not bound to a device.
	ErrNoDevice = errors.New("probe is not assigned to a device")
	// ErrNoCurrentChain is returned by StepBack and DoWipe when there is no probing in progress.
	ErrNoCurrentChain = errors.New("no probing in progress")
)

// Standard value names.
const (
	ValueType               = "TYPE"
	ValueLabel              = "LABEL"
	ValueUUID               = "UUID"
	ValueUsage              = "USAGE"
	ValueVersion            = "VERSION"
	ValueSuperblockMagic    = "SBMAGIC"
	ValueSuperblockMagicOff = "SBMAGIC_OFFSET"
	ValueBadChecksum        = "SBBADCSUM"
	ValueBlockSize          = "BLOCK_SIZE"
	ValueFSSize             = "FSSIZE"
	ValueFSBlockSize        = "FSBLOCKSIZE"

	ValuePartitionTableType     = "PTTYPE"
	ValuePartitionTableUUID     = "PTUUID"
	ValuePartitionTableMagic    = "PTMAGIC"
	ValuePartitionTableMagicOff = "PTMAGIC_OFFSET"
)

// SuperblocksFlags controls which values are reported by the superblocks chain.
type SuperblocksFlags uint32

// Superblocks chain flags.
const (
	SuperblocksLabel SuperblocksFlags = 1 << iota
	SuperblocksUUID
	SuperblocksType
	SuperblocksUsage
	SuperblocksVersion
	SuperblocksMagic
	// SuperblocksBadChecksum accepts superblocks with bad checksums (reported as SBBADCSUM).
	SuperblocksBadChecksum
	// SuperblocksFSInfo reports FSSIZE and FSBLOCKSIZE.
	SuperblocksFSInfo

	SuperblocksDefault = SuperblocksLabel | SuperblocksUUID | SuperblocksType
)

// PartitionsFlags controls the partitions chain.
type PartitionsFlags uint32

// Partitions chain flags.
const (
	// PartitionsMagic reports PTMAGIC and PTMAGIC_OFFSET.
	PartitionsMagic PartitionsFlags = 1 << iota
)

// FilterMode selects how a type filter is applied.
type FilterMode int

// Filter modes.
const (
	// FilterNotIn skips probers with the listed names.
	FilterNotIn FilterMode = iota
	// FilterOnlyIn skips all probers except the listed ones.
	FilterOnlyIn
)

// Value is a single named probing result.
type Value struct {
	Name string
	Data []byte
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return string(v.Data)
}

// Partition is a partition table entry found by the partitions chain.
type Partition struct { //nolint:govet
	UUID     *uuid.UUID
	TypeUUID *uuid.UUID
	Label    *string

	// TypeCode is the MBR partition type (dos partition tables only).
	TypeCode uint8

	Index uint // 1-based index

	Offset uint64
	Size   uint64
}

// ProbeOptions is the options for probing.
type ProbeOptions struct {
	// Logger to use for logging.
	Logger *zap.Logger
}

// ProbeOption is an option for probing.
type ProbeOption func(*ProbeOptions)

// WithProbeLogger sets the logger for the probe.
func WithProbeLogger(logger *zap.Logger) ProbeOption {
	return func(o *ProbeOptions) {
		o.Logger = logger
	}
}

func applyProbeOptions(opts ...ProbeOption) ProbeOptions {
	o := ProbeOptions{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o
}
