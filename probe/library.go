// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Value names reported by sessions.
const (
	ValueType               = "TYPE"
	ValueLabel              = "LABEL"
	ValueUUID               = "UUID"
	ValueUsage              = "USAGE"
	ValueVersion            = "VERSION"
	ValueSuperblockMagic    = "SBMAGIC"
	ValueSuperblockMagicOff = "SBMAGIC_OFFSET"
	ValueBlockSize          = "BLOCK_SIZE"

	ValuePartitionTableType     = "PTTYPE"
	ValuePartitionTableUUID     = "PTUUID"
	ValuePartitionTableMagic    = "PTMAGIC"
	ValuePartitionTableMagicOff = "PTMAGIC_OFFSET"
)

// LUKSType is the superblock type of LUKS volumes.
const LUKSType = "crypto_LUKS"

// SuperblocksFlags selects the values reported for superblocks.
type SuperblocksFlags uint32

// Superblocks chain flags.
const (
	SuperblocksLabel SuperblocksFlags = 1 << iota
	SuperblocksUUID
	SuperblocksType
	SuperblocksUsage
	SuperblocksVersion
	SuperblocksMagic
	SuperblocksBadChecksum
)

// PartitionsFlags selects the values reported for partition tables.
type PartitionsFlags uint32

// Partitions chain flags.
const (
	PartitionsMagic PartitionsFlags = 1 << iota
)

// FilterMode selects how a superblock type filter is applied.
type FilterMode int

// Filter modes.
const (
	FilterNotIn FilterMode = iota
	FilterOnlyIn
)

// Capabilities of a probing library.
type Capabilities struct {
	// BadChecksum: superblocks with bad checksums can be reported.
	BadChecksum bool
	// NativeWipe: the session wipes signatures itself.
	NativeWipe bool
	// StepBack: the session can rewind incremental probing by one step.
	StepBack bool
	// PartitionsMagic: partition table magic can be reported.
	PartitionsMagic bool
}

// Intersect returns capabilities present in both c and other.
func (c Capabilities) Intersect(other Capabilities) Capabilities {
	return Capabilities{
		BadChecksum:     c.BadChecksum && other.BadChecksum,
		NativeWipe:      c.NativeWipe && other.NativeWipe,
		StepBack:        c.StepBack && other.StepBack,
		PartitionsMagic: c.PartitionsMagic && other.PartitionsMagic,
	}
}

// Value is a named probing result.
type Value struct {
	Name string
	Data []byte
}

// Partition is a partition table entry.
type Partition struct { //nolint:govet
	UUID     *uuid.UUID
	TypeUUID *uuid.UUID
	Label    string

	// TypeCode is the MBR partition type.
	TypeCode uint8

	Index uint

	Offset uint64
	Size   uint64
}

// Session is a probing session bound to a device.
//
// DoProbe and DoSafeProbe return nil if a signature was found, ErrNothingFound,
// ErrAmbivalent (DoSafeProbe only) or any other error on failure.
type Session interface {
	EnablePartitions(enable bool) error
	SetPartitionsFlags(flags PartitionsFlags) error
	EnableSuperblocks(enable bool) error
	SetSuperblocksFlags(flags SuperblocksFlags) error
	FilterSuperblocksType(mode FilterMode, names []string) error

	DoProbe() error
	DoSafeProbe() error

	HasValue(name string) bool
	LookupValue(name string) ([]byte, bool)
	Values() []Value
	Partitions() []Partition
	SectorSize() uint

	// Wipe requires Capabilities.NativeWipe.
	Wipe() error
	// StepBack requires Capabilities.StepBack.
	StepBack() error
	Reset() error
	SetDevice(f *os.File, offset, size uint64) error

	Close() error
}

// Library creates probing sessions.
type Library interface {
	Supported() bool
	Capabilities() Capabilities

	// NewSessionFromPath opens the device, the session owns the file.
	NewSessionFromPath(path string, logger *zap.Logger) (Session, error)
	// NewSessionFromFile binds the session to the whole file without owning it.
	NewSessionFromFile(f *os.File, logger *zap.Logger) (Session, error)
}

// DefaultLibrary returns the probing library compiled into the binary.
func DefaultLibrary() Library {
	return defaultLibrary()
}

// UnsupportedLibrary is a Library which is never available.
var UnsupportedLibrary Library = unsupportedLibrary{}

type unsupportedLibrary struct{}

func (unsupportedLibrary) Supported() bool { return false }

func (unsupportedLibrary) Capabilities() Capabilities { return Capabilities{} }

func (unsupportedLibrary) NewSessionFromPath(string, *zap.Logger) (Session, error) {
	return nil, ErrUnsupported
}

func (unsupportedLibrary) NewSessionFromFile(*os.File, *zap.Logger) (Session, error) {
	return nil, ErrUnsupported
}

// Supported returns true if the default probing library is available.
func Supported() bool {
	return DefaultLibrary().Supported()
}
