// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package probe defines common probe interfaces.
package probe

import (
	"io"

	"github.com/google/uuid"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
)

// Reader is a context for probing filesystems and volume managers.
type Reader interface {
	io.ReaderAt

	GetSectorSize() uint
	GetSize() uint64
}

// Prober is an interface for probing filesystems, volume managers and partition tables.
type Prober interface {
	// Name returns the name of the filesystem or volume manager.
	Name() string
	// Magic returns the magic value for the filesystem or volume manager.
	Magic() []*magic.Magic
	// Probe runs the further inspection and returns the result if successful.
	//
	// The magic which matched the device is passed in.
	Probe(Reader, magic.Magic) (*Result, error)
}

// Usage describes what a superblock is used for.
type Usage int

// Usage values.
const (
	UsageFilesystem Usage = iota
	UsageRaid
	UsageCrypto
	UsageOther
)

func (u Usage) String() string {
	switch u {
	case UsageFilesystem:
		return "filesystem"
	case UsageRaid:
		return "raid"
	case UsageCrypto:
		return "crypto"
	default:
		return "other"
	}
}

// SuperblockProber is a Prober for the superblocks chain.
type SuperblockProber interface {
	Prober

	Usage() Usage
}

// Result is a probe result.
type Result struct { //nolint:govet
	UUID    *uuid.UUID
	Label   *string
	Version *string

	// ID is an identifier which is not an RFC 4122 UUID (e.g. FAT serial number).
	ID *string

	// Magic overrides the matched magic, e.g. if the signature was found at a backup location.
	Magic *magic.Magic

	// BadChecksum is set if the signature is otherwise valid, but the checksum doesn't match.
	BadChecksum bool

	Parts []Partition

	BlockSize           uint32
	FilesystemBlockSize uint32
	ProbedSize          uint64
}

// Partition is a probe sub-result.
type Partition struct { //nolint:govet
	UUID     *uuid.UUID
	TypeUUID *uuid.UUID
	Label    *string

	// TypeCode is the MBR partition type.
	TypeCode uint8

	Index uint // 1-based index

	Offset uint64
	Size   uint64
}
