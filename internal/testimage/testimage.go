// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package testimage builds small disk images with well-known signatures for tests.
package testimage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/siderolabs/go-blkprobe/internal/gptstructs"
	"github.com/siderolabs/go-blkprobe/internal/gptutil"
)

// Size constants.
const (
	KiB = 1024
	MiB = 1024 * KiB

	SectorSize = 512
)

// Create creates a sparse zeroed image file and returns its path.
func Create(t testing.TB, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.raw")

	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	return path
}

// Open opens the image read-write, the file is closed on test cleanup.
func Open(t testing.TB, path string) *os.File {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.Close() //nolint:errcheck
	})

	return f
}

// ReadAt returns length bytes of the image at offset.
func ReadAt(t testing.TB, path string, offset int64, length int) []byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer f.Close() //nolint:errcheck

	buf := make([]byte, length)

	_, err = f.ReadAt(buf, offset)
	require.NoError(t, err)

	return buf
}

func writeAt(t testing.TB, path string, offset int64, data []byte) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)

	_, err = f.WriteAt(data, offset)
	require.NoError(t, err)

	require.NoError(t, f.Close())
}

// LUKSMagic is the LUKS header magic at offset 0.
var LUKSMagic = []byte("LUKS\xba\xbe")

// WriteLUKS writes the binary LUKS header of the given version (1 or 2).
//
// The label is only stored for version 2.
func WriteLUKS(t testing.TB, path string, version uint16, label string, id uuid.UUID) {
	t.Helper()

	// the binary header ends before the ext superblock, so both can share an image
	hdr := make([]byte, 512)

	copy(hdr[0:], LUKSMagic)
	binary.BigEndian.PutUint16(hdr[6:], version)

	if version == 2 {
		binary.BigEndian.PutUint64(hdr[8:], 0x4000) // hdr_size
		copy(hdr[24:72], label)
		copy(hdr[72:104], "sha256")
	} else {
		copy(hdr[8:40], "aes")
		copy(hdr[40:72], "xts-plain64")
		copy(hdr[72:104], "sha256")
	}

	copy(hdr[168:208], id.String())

	writeAt(t, path, 0, hdr)
}

// Ext4 describes an ext4 superblock.
type Ext4 struct {
	Label string
	UUID  uuid.UUID

	// Blocks is the number of 4 KiB blocks, defaults to the whole image.
	Blocks uint32

	// BadChecksum enables metadata_csum with a checksum which doesn't match.
	BadChecksum bool
}

// Ext4MagicOffset is the offset of the ext4 magic from the start of the device.
const Ext4MagicOffset = 0x438

// WriteExt4 writes an ext4 superblock with a 4 KiB block size.
func WriteExt4(t testing.TB, path string, fs Ext4) {
	t.Helper()

	if fs.Blocks == 0 {
		st, err := os.Stat(path)
		require.NoError(t, err)

		fs.Blocks = uint32(st.Size() / 4096)
	}

	sb := make([]byte, 1024)

	binary.LittleEndian.PutUint32(sb[0x00:], 128)       // s_inodes_count
	binary.LittleEndian.PutUint32(sb[0x04:], fs.Blocks) // s_blocks_count_lo
	binary.LittleEndian.PutUint32(sb[0x18:], 2)         // s_log_block_size, 1024 << 2
	binary.LittleEndian.PutUint16(sb[0x38:], 0xef53)    // s_magic
	binary.LittleEndian.PutUint16(sb[0x3a:], 1)         // s_state
	binary.LittleEndian.PutUint32(sb[0x4c:], 1)         // s_rev_level
	binary.LittleEndian.PutUint32(sb[0x5c:], 0x0004)    // has_journal
	binary.LittleEndian.PutUint32(sb[0x60:], 0x0040)    // extents

	if fs.BadChecksum {
		binary.LittleEndian.PutUint32(sb[0x64:], 0x0400)     // metadata_csum
		binary.LittleEndian.PutUint32(sb[0x3fc:], 0xdeadbeef) // never the CRC32c of this superblock
	}

	copy(sb[0x68:0x78], fs.UUID[:])
	copy(sb[0x78:0x88], fs.Label)

	writeAt(t, path, 0x400, sb)
}

// GPTPartition describes a GPT partition entry.
type GPTPartition struct {
	Type     uuid.UUID
	ID       uuid.UUID
	Name     string
	FirstLBA uint64
	LastLBA  uint64
}

// GPTMagic is the GPT header signature.
var GPTMagic = []byte("EFI PART")

// WriteGPT writes a protective MBR, the primary and the backup GPT with 512-byte sectors.
//
// The image should be at least 1 MiB.
func WriteGPT(t testing.TB, path string, diskID uuid.UUID, parts ...GPTPartition) {
	t.Helper()

	st, err := os.Stat(path)
	require.NoError(t, err)

	lastLBA := uint64(st.Size()/SectorSize) - 1
	entriesSectors := uint64(gptstructs.NumEntries * gptstructs.ENTRY_SIZE / SectorSize)

	firstUsable := 2 + entriesSectors
	lastUsable := lastLBA - entriesSectors - 1

	entries := make([]byte, gptstructs.NumEntries*gptstructs.ENTRY_SIZE)
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()

	for i, part := range parts {
		entry := entries[i*gptstructs.ENTRY_SIZE : (i+1)*gptstructs.ENTRY_SIZE]

		copy(entry[0:16], gptutil.UUIDToGUID(part.Type[:]))
		copy(entry[16:32], gptutil.UUIDToGUID(part.ID[:]))
		binary.LittleEndian.PutUint64(entry[32:], part.FirstLBA)
		binary.LittleEndian.PutUint64(entry[40:], part.LastLBA)

		name, err := utf16.Bytes([]byte(part.Name))
		require.NoError(t, err)

		copy(entry[56:128], name)
	}

	entriesCRC := crc32.ChecksumIEEE(entries)

	header := func(myLBA, alternateLBA, entriesLBA uint64) []byte {
		hdr := make([]byte, SectorSize)

		copy(hdr[0:], GPTMagic)
		binary.LittleEndian.PutUint32(hdr[8:], 0x00010000)
		binary.LittleEndian.PutUint32(hdr[12:], gptstructs.HEADER_SIZE)
		binary.LittleEndian.PutUint64(hdr[24:], myLBA)
		binary.LittleEndian.PutUint64(hdr[32:], alternateLBA)
		binary.LittleEndian.PutUint64(hdr[40:], firstUsable)
		binary.LittleEndian.PutUint64(hdr[48:], lastUsable)
		copy(hdr[56:72], gptutil.UUIDToGUID(diskID[:]))
		binary.LittleEndian.PutUint64(hdr[72:], entriesLBA)
		binary.LittleEndian.PutUint32(hdr[80:], gptstructs.NumEntries)
		binary.LittleEndian.PutUint32(hdr[84:], gptstructs.ENTRY_SIZE)
		binary.LittleEndian.PutUint32(hdr[88:], entriesCRC)

		binary.LittleEndian.PutUint32(hdr[16:], crc32.ChecksumIEEE(hdr[:gptstructs.HEADER_SIZE]))

		return hdr
	}

	pmbr := make([]byte, SectorSize)
	pmbr[0x1be+4] = 0xee
	binary.LittleEndian.PutUint32(pmbr[0x1be+8:], 1)
	binary.LittleEndian.PutUint32(pmbr[0x1be+12:], uint32(min(lastLBA, 0xffffffff)))
	pmbr[0x1fe] = 0x55
	pmbr[0x1ff] = 0xaa

	writeAt(t, path, 0, pmbr)
	writeAt(t, path, SectorSize, header(1, lastLBA, 2))
	writeAt(t, path, 2*SectorSize, entries)
	writeAt(t, path, int64(lastLBA-entriesSectors)*SectorSize, entries)
	writeAt(t, path, int64(lastLBA)*SectorSize, header(lastLBA, 1, lastLBA-entriesSectors))
}

// GPTBackupHeaderOffset returns the offset of the backup GPT header for the image of the given size.
func GPTBackupHeaderOffset(size int64) int64 {
	return size - SectorSize
}

// MBRPartition describes a primary MBR partition entry.
type MBRPartition struct {
	Type     byte
	Bootable bool
	StartLBA uint32
	Sectors  uint32
}

// WriteMBR writes a DOS partition table.
func WriteMBR(t testing.TB, path string, diskID uint32, parts ...MBRPartition) {
	t.Helper()

	require.LessOrEqual(t, len(parts), 4)

	mbr := make([]byte, SectorSize)

	binary.LittleEndian.PutUint32(mbr[0x1b8:], diskID)

	for i, part := range parts {
		entry := mbr[0x1be+i*16 : 0x1be+(i+1)*16]

		if part.Bootable {
			entry[0] = 0x80
		}

		entry[4] = part.Type
		binary.LittleEndian.PutUint32(entry[8:], part.StartLBA)
		binary.LittleEndian.PutUint32(entry[12:], part.Sectors)
	}

	mbr[0x1fe] = 0x55
	mbr[0x1ff] = 0xaa

	writeAt(t, path, 0, mbr)
}

// LUKSSecondaryMagic is the magic of the LUKS2 secondary header.
var LUKSSecondaryMagic = []byte("SKUL\xba\xbe")

// WriteLUKSSecondary writes the binary LUKS2 secondary header at offset.
func WriteLUKSSecondary(t testing.TB, path string, offset int64, id uuid.UUID) {
	t.Helper()

	hdr := make([]byte, 512)

	copy(hdr[0:], LUKSSecondaryMagic)
	binary.BigEndian.PutUint16(hdr[6:], 2)
	binary.BigEndian.PutUint64(hdr[8:], 0x4000)           // hdr_size
	binary.BigEndian.PutUint64(hdr[256:], uint64(offset)) // hdr_offset
	copy(hdr[72:104], "sha256")
	copy(hdr[168:208], id.String())

	writeAt(t, path, offset, hdr)
}

// LVM2Magic is the LVM2 label type, stored 0x18 bytes into the label sector.
var LVM2Magic = []byte("LVM2 001")

// WriteLVM2 writes the LVM2 PV label into the given sector (0 or 1).
//
// The PV UUID should be 32 characters long.
func WriteLVM2(t testing.TB, path string, sector uint64, pvUUID string) {
	t.Helper()

	require.Len(t, pvUUID, 32)

	label := make([]byte, SectorSize)

	copy(label[0:], "LABELONE")
	binary.LittleEndian.PutUint64(label[8:], sector)
	binary.LittleEndian.PutUint32(label[20:], 32) // offset of the PV header
	copy(label[24:], LVM2Magic)
	copy(label[32:], pvUUID)

	writeAt(t, path, int64(sector)*SectorSize, label)
}

// ISO9660 describes an ISO9660 filesystem.
type ISO9660 struct {
	Label string

	// JolietLabel adds a Joliet supplementary descriptor with the label.
	JolietLabel string

	// Created is the creation time in the "YYYYMMDDHHMMSScc" form.
	Created string

	Blocks uint32
}

// ISO9660MagicOffset is the offset of the "CD001" magic from the start of the device.
const ISO9660MagicOffset = 0x8001

// WriteISO9660 writes the volume descriptors with a 2 KiB logical block size.
func WriteISO9660(t testing.TB, path string, fs ISO9660) {
	t.Helper()

	descriptor := func(typ byte) []byte {
		vd := make([]byte, 2048)

		vd[0] = typ
		copy(vd[1:6], "CD001")
		vd[6] = 1

		return vd
	}

	both32 := func(b []byte, v uint32) {
		binary.LittleEndian.PutUint32(b[0:], v)
		binary.BigEndian.PutUint32(b[4:], v)
	}

	both16 := func(b []byte, v uint16) {
		binary.LittleEndian.PutUint16(b[0:], v)
		binary.BigEndian.PutUint16(b[2:], v)
	}

	pvd := descriptor(1)
	copy(pvd[40:72], fmt.Sprintf("%-32s", fs.Label))
	both32(pvd[80:], fs.Blocks)
	both16(pvd[128:], 2048)
	copy(pvd[813:829], fs.Created)

	offset := int64(0x8000)

	writeAt(t, path, offset, pvd)
	offset += 2048

	if fs.JolietLabel != "" {
		svd := descriptor(2)
		copy(svd[88:91], "%/E")

		label, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(fs.JolietLabel))
		require.NoError(t, err)

		copy(svd[40:72], bytes.Repeat([]byte{0, ' '}, 16))
		copy(svd[40:72], label)
		both32(svd[80:], fs.Blocks)
		both16(svd[128:], 2048)

		writeAt(t, path, offset, svd)
		offset += 2048
	}

	writeAt(t, path, offset, descriptor(0xff))
}

// TalosMetaMagic is the magic of the Talos META copies.
var TalosMetaMagic = []byte{0x5a, 0x4b, 0x3c, 0x2d}

// TalosMetaLength is the size of a single Talos META copy.
const TalosMetaLength = 256 * KiB

// WriteTalosMeta writes both copies of an empty Talos META.
func WriteTalosMeta(t testing.TB, path string) {
	t.Helper()

	for _, offset := range []int64{0, TalosMetaLength} {
		writeAt(t, path, offset, TalosMetaMagic)
		writeAt(t, path, offset+TalosMetaLength-4, []byte{0xa5, 0xb4, 0xc3, 0xd2})
	}
}

// ZFSUberblockOffset is the offset of the first uberblock of the first vdev label.
const ZFSUberblockOffset = 128 * KiB

// WriteZFS writes uberblocks into the first vdev label.
func WriteZFS(t testing.TB, path string, count int, txg uint64) {
	t.Helper()

	for i := range count {
		ub := make([]byte, KiB)

		binary.LittleEndian.PutUint64(ub[0:], 0x00bab10c)     // ub_magic
		binary.LittleEndian.PutUint64(ub[8:], 5000)           // ub_version
		binary.LittleEndian.PutUint64(ub[16:], txg+uint64(i)) // ub_txg
		binary.LittleEndian.PutUint64(ub[24:], 0x1234abcd)    // ub_guid_sum

		writeAt(t, path, ZFSUberblockOffset+int64(i)*KiB, ub)
	}
}
