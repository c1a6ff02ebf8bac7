// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package xfs

import "encoding/binary"

// SuperBlockSize covers the fields of the superblock used by the prober.
const SuperBlockSize = 128

// XFS superblock structure constants.
//
//nolint:revive,stylecheck
const (
	XFS_MIN_BLOCKSIZE_LOG  = 9  /* i.e. 512 bytes */
	XFS_MAX_BLOCKSIZE_LOG  = 16 /* i.e. 65536 bytes */
	XFS_MIN_BLOCKSIZE      = (1 << XFS_MIN_BLOCKSIZE_LOG)
	XFS_MAX_BLOCKSIZE      = (1 << XFS_MAX_BLOCKSIZE_LOG)
	XFS_MIN_SECTORSIZE_LOG = 9  /* i.e. 512 bytes */
	XFS_MAX_SECTORSIZE_LOG = 15 /* i.e. 32768 bytes */
	XFS_MIN_SECTORSIZE     = (1 << XFS_MIN_SECTORSIZE_LOG)
	XFS_MAX_SECTORSIZE     = (1 << XFS_MAX_SECTORSIZE_LOG)

	XFS_DINODE_MIN_LOG  = 8
	XFS_DINODE_MAX_LOG  = 11
	XFS_DINODE_MIN_SIZE = (1 << XFS_DINODE_MIN_LOG)
	XFS_DINODE_MAX_SIZE = (1 << XFS_DINODE_MAX_LOG)

	XFS_MAX_RTEXTSIZE = (1024 * 1024 * 1024) /* 1GB */
	XFS_MIN_RTEXTSIZE = (4 * 1024)           /* 4kB */
)

// SuperBlock is the big-endian XFS superblock.
type SuperBlock []byte

// BlockSize returns sb_blocksize.
func (s SuperBlock) BlockSize() uint32 { return binary.BigEndian.Uint32(s[4:]) }

// DBlocks returns sb_dblocks.
func (s SuperBlock) DBlocks() uint64 { return binary.BigEndian.Uint64(s[8:]) }

// UUID returns sb_uuid.
func (s SuperBlock) UUID() []byte { return s[32:48] }

// LogStart returns sb_logstart.
func (s SuperBlock) LogStart() uint64 { return binary.BigEndian.Uint64(s[48:]) }

// RExtSize returns sb_rextsize.
func (s SuperBlock) RExtSize() uint32 { return binary.BigEndian.Uint32(s[80:]) }

// AGCount returns sb_agcount.
func (s SuperBlock) AGCount() uint32 { return binary.BigEndian.Uint32(s[88:]) }

// LogBlocks returns sb_logblocks.
func (s SuperBlock) LogBlocks() uint32 { return binary.BigEndian.Uint32(s[96:]) }

// SectSize returns sb_sectsize.
func (s SuperBlock) SectSize() uint16 { return binary.BigEndian.Uint16(s[102:]) }

// InodeSize returns sb_inodesize.
func (s SuperBlock) InodeSize() uint16 { return binary.BigEndian.Uint16(s[104:]) }

// FName returns sb_fname.
func (s SuperBlock) FName() []byte { return s[108:120] }

// BlockLog returns sb_blocklog.
func (s SuperBlock) BlockLog() uint8 { return s[120] }

// SectLog returns sb_sectlog.
func (s SuperBlock) SectLog() uint8 { return s[121] }

// InodeLog returns sb_inodelog.
func (s SuperBlock) InodeLog() uint8 { return s[122] }

// InoPBLog returns sb_inopblog.
func (s SuperBlock) InoPBLog() uint8 { return s[123] }

// IMaxPct returns sb_imax_pct.
func (s SuperBlock) IMaxPct() uint8 { return s[127] }

// Valid returns true if the superblock is valid.
//
//nolint:gocyclo,cyclop
func (s SuperBlock) Valid() bool {
	if s.AGCount() == 0 ||
		s.SectSize() < XFS_MIN_SECTORSIZE ||
		s.SectSize() > XFS_MAX_SECTORSIZE ||
		s.SectLog() < XFS_MIN_SECTORSIZE_LOG ||
		s.SectLog() > XFS_MAX_SECTORSIZE_LOG ||
		uint32(s.SectSize()) != (1<<s.SectLog()) ||
		s.BlockSize() < XFS_MIN_BLOCKSIZE ||
		s.BlockSize() > XFS_MAX_BLOCKSIZE ||
		s.BlockLog() < XFS_MIN_BLOCKSIZE_LOG ||
		s.BlockLog() > XFS_MAX_BLOCKSIZE_LOG ||
		s.BlockSize() != (1<<s.BlockLog()) ||
		s.InodeSize() < XFS_DINODE_MIN_SIZE ||
		s.InodeSize() > XFS_DINODE_MAX_SIZE ||
		s.InodeLog() < XFS_DINODE_MIN_LOG ||
		s.InodeLog() > XFS_DINODE_MAX_LOG ||
		uint32(s.InodeSize()) != (1<<s.InodeLog()) ||
		(s.BlockLog()-s.InodeLog() != s.InoPBLog()) ||
		(uint64(s.RExtSize())*uint64(s.BlockSize()) > XFS_MAX_RTEXTSIZE) ||
		(uint64(s.RExtSize())*uint64(s.BlockSize()) < XFS_MIN_RTEXTSIZE) ||
		(s.IMaxPct() > 100 /* zero sb_imax_pct is valid */) ||
		s.DBlocks() == 0 {
		return false
	}

	return true
}

// FilesystemSize returns the size of the filesystem in bytes.
func (s SuperBlock) FilesystemSize() uint64 {
	logsBlocks := uint32(0)

	if s.LogStart() != 0 {
		logsBlocks = s.LogBlocks()
	}

	availBlocks := s.DBlocks() - uint64(logsBlocks)

	return availBlocks * uint64(s.BlockSize())
}
