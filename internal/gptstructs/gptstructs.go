// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gptstructs provides encoded definitions for GPT on-disk structures.
package gptstructs

import "encoding/binary"

// NumEntries is the number of entries in the GPT.
const NumEntries = 128

// On-disk structure sizes.
//
//nolint:revive,stylecheck
const (
	HEADER_SIZE = 92
	ENTRY_SIZE  = 128
)

// Header is the little-endian GPT header.
type Header []byte

// Signature returns the header signature.
func (h Header) Signature() uint64 { return binary.LittleEndian.Uint64(h[0:]) }

// Revision returns the header revision.
func (h Header) Revision() uint32 { return binary.LittleEndian.Uint32(h[8:]) }

// HeaderSize returns the size of the header.
func (h Header) HeaderSize() uint32 { return binary.LittleEndian.Uint32(h[12:]) }

// HeaderCRC32 returns the header checksum.
func (h Header) HeaderCRC32() uint32 { return binary.LittleEndian.Uint32(h[16:]) }

// MyLBA returns the LBA of this header.
func (h Header) MyLBA() uint64 { return binary.LittleEndian.Uint64(h[24:]) }

// AlternateLBA returns the LBA of the other header.
func (h Header) AlternateLBA() uint64 { return binary.LittleEndian.Uint64(h[32:]) }

// FirstUsableLBA returns the first usable LBA.
func (h Header) FirstUsableLBA() uint64 { return binary.LittleEndian.Uint64(h[40:]) }

// LastUsableLBA returns the last usable LBA.
func (h Header) LastUsableLBA() uint64 { return binary.LittleEndian.Uint64(h[48:]) }

// DiskGUID returns the disk GUID (mixed-endian).
func (h Header) DiskGUID() []byte { return h[56:72] }

// PartitionEntriesLBA returns the LBA of the partition entry array.
func (h Header) PartitionEntriesLBA() uint64 { return binary.LittleEndian.Uint64(h[72:]) }

// NumPartitionEntries returns the number of partition entries.
func (h Header) NumPartitionEntries() uint32 { return binary.LittleEndian.Uint32(h[80:]) }

// SizeofPartitionEntry returns the size of a partition entry.
func (h Header) SizeofPartitionEntry() uint32 { return binary.LittleEndian.Uint32(h[84:]) }

// PartitionEntryArrayCRC32 returns the partition entry array checksum.
func (h Header) PartitionEntryArrayCRC32() uint32 { return binary.LittleEndian.Uint32(h[88:]) }

// Entry is the little-endian GPT partition entry.
type Entry []byte

// PartitionTypeGUID returns the partition type GUID (mixed-endian).
func (e Entry) PartitionTypeGUID() []byte { return e[0:16] }

// UniquePartitionGUID returns the partition GUID (mixed-endian).
func (e Entry) UniquePartitionGUID() []byte { return e[16:32] }

// StartingLBA returns the first LBA of the partition.
func (e Entry) StartingLBA() uint64 { return binary.LittleEndian.Uint64(e[32:]) }

// EndingLBA returns the last LBA of the partition (inclusive).
func (e Entry) EndingLBA() uint64 { return binary.LittleEndian.Uint64(e[40:]) }

// Attributes returns the partition attributes.
func (e Entry) Attributes() uint64 { return binary.LittleEndian.Uint64(e[48:]) }

// PartitionName returns the UTF-16LE partition name.
func (e Entry) PartitionName() []byte { return e[56:128] }
