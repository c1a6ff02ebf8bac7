// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ext

import "encoding/binary"

// SuperBlockSize is the size of the on-disk superblock.
const SuperBlockSize = 1024

// Various extfs constants.
//
//nolint:stylecheck,revive
const (
	EXT3_FEATURE_COMPAT_HAS_JOURNAL = 0x0004

	EXT3_FEATURE_INCOMPAT_JOURNAL_DEV = 0x0008
	EXT4_FEATURE_INCOMPAT_EXTENTS     = 0x0040
	EXT4_FEATURE_INCOMPAT_64BIT       = 0x0080
	EXT4_FEATURE_INCOMPAT_FLEX_BG     = 0x0200

	EXT4_FEATURE_RO_COMPAT_HUGE_FILE     = 0x0008
	EXT4_FEATURE_RO_COMPAT_GDT_CSUM      = 0x0010
	EXT4_FEATURE_RO_COMPAT_DIR_NLINK     = 0x0020
	EXT4_FEATURE_RO_COMPAT_EXTRA_ISIZE   = 0x0040
	EXT4_FEATURE_RO_COMPAT_METADATA_CSUM = 0x0400

	ext4Incompat = EXT4_FEATURE_INCOMPAT_EXTENTS | EXT4_FEATURE_INCOMPAT_64BIT | EXT4_FEATURE_INCOMPAT_FLEX_BG
	ext4ROCompat = EXT4_FEATURE_RO_COMPAT_HUGE_FILE | EXT4_FEATURE_RO_COMPAT_GDT_CSUM |
		EXT4_FEATURE_RO_COMPAT_DIR_NLINK | EXT4_FEATURE_RO_COMPAT_EXTRA_ISIZE | EXT4_FEATURE_RO_COMPAT_METADATA_CSUM
)

// SuperBlock is the little-endian extfs superblock.
type SuperBlock []byte

// BlocksCount returns the number of blocks (64-bit if the feature is enabled).
func (s SuperBlock) BlocksCount() uint64 {
	count := uint64(binary.LittleEndian.Uint32(s[0x04:]))

	if s.FeatureIncompat()&EXT4_FEATURE_INCOMPAT_64BIT != 0 {
		count |= uint64(binary.LittleEndian.Uint32(s[0x150:])) << 32
	}

	return count
}

// LogBlockSize returns s_log_block_size.
func (s SuperBlock) LogBlockSize() uint32 {
	return binary.LittleEndian.Uint32(s[0x18:])
}

// MinorRevLevel returns s_minor_rev_level.
func (s SuperBlock) MinorRevLevel() uint16 {
	return binary.LittleEndian.Uint16(s[0x3e:])
}

// RevLevel returns s_rev_level.
func (s SuperBlock) RevLevel() uint32 {
	return binary.LittleEndian.Uint32(s[0x4c:])
}

// FeatureCompat returns s_feature_compat.
func (s SuperBlock) FeatureCompat() uint32 {
	return binary.LittleEndian.Uint32(s[0x5c:])
}

// FeatureIncompat returns s_feature_incompat.
func (s SuperBlock) FeatureIncompat() uint32 {
	return binary.LittleEndian.Uint32(s[0x60:])
}

// FeatureROCompat returns s_feature_ro_compat.
func (s SuperBlock) FeatureROCompat() uint32 {
	return binary.LittleEndian.Uint32(s[0x64:])
}

// UUID returns s_uuid.
func (s SuperBlock) UUID() []byte {
	return s[0x68:0x78]
}

// VolumeName returns s_volume_name.
func (s SuperBlock) VolumeName() []byte {
	return s[0x78:0x88]
}

// Checksum returns s_checksum.
func (s SuperBlock) Checksum() uint32 {
	return binary.LittleEndian.Uint32(s[0x3fc:])
}

// BlockSize returns the block size of the filesystem.
func (s SuperBlock) BlockSize() uint32 {
	if s.LogBlockSize() >= 32 {
		return 0
	}

	return 1024 << s.LogBlockSize()
}

// FilesystemSize returns the size of the filesystem.
func (s SuperBlock) FilesystemSize() uint64 {
	return s.BlocksCount() * uint64(s.BlockSize())
}

// Variant detects the flavor of extfs by its feature flags.
func (s SuperBlock) Variant() Variant {
	switch {
	case s.FeatureIncompat()&EXT3_FEATURE_INCOMPAT_JOURNAL_DEV != 0:
		return JBD
	case s.FeatureIncompat()&ext4Incompat != 0, s.FeatureROCompat()&ext4ROCompat != 0:
		return Ext4
	case s.FeatureCompat()&EXT3_FEATURE_COMPAT_HAS_JOURNAL != 0:
		return Ext3
	default:
		return Ext2
	}
}
