// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package probe

import (
	"slices"
	"strconv"

	"github.com/siderolabs/gen/xslices"
	"github.com/siderolabs/go-pointer"
)

// LookupValue returns a copy of the value set by the last probe.
func (h *Handle) LookupValue(name string) ([]byte, bool) {
	if h.check() != nil {
		return nil, false
	}

	v, ok := h.session.LookupValue(name)
	if !ok {
		return nil, false
	}

	return slices.Clone(v), true
}

func (h *Handle) lookupString(name string) (string, bool) {
	v, ok := h.LookupValue(name)

	return string(v), ok
}

func (h *Handle) hasValue(name string) bool {
	if h.check() != nil {
		return false
	}

	return h.session.HasValue(name)
}

// IsPartition returns true if the last probe found a partition table.
func (h *Handle) IsPartition() bool {
	return h.hasValue(ValuePartitionTableType)
}

// IsSuperblock returns true if the last probe found a superblock.
func (h *Handle) IsSuperblock() bool {
	return h.hasValue(ValueType)
}

// PartitionType returns the partition table type found by the last probe.
func (h *Handle) PartitionType() (string, bool) {
	return h.lookupString(ValuePartitionTableType)
}

// SuperblockType returns the superblock type found by the last probe.
func (h *Handle) SuperblockType() (string, bool) {
	return h.lookupString(ValueType)
}

// Label returns the superblock label.
func (h *Handle) Label() (string, bool) {
	return h.lookupString(ValueLabel)
}

// UUID returns the superblock UUID.
func (h *Handle) UUID() (string, bool) {
	return h.lookupString(ValueUUID)
}

// Usage returns the superblock usage (filesystem, crypto, ...).
func (h *Handle) Usage() (string, bool) {
	return h.lookupString(ValueUsage)
}

// Version returns the superblock version.
func (h *Handle) Version() (string, bool) {
	return h.lookupString(ValueVersion)
}

// BlockSize returns the block size of the superblock found by the last probe.
//
// Zero is returned if no superblock was found or the value is not a number.
func (h *Handle) BlockSize() uint {
	if !h.IsSuperblock() {
		return 0
	}

	v, ok := h.lookupString(ValueBlockSize)
	if !ok {
		return 0
	}

	size, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}

	return uint(size)
}

// Values returns copies of all values set by the last probe.
func (h *Handle) Values() []Value {
	if h.check() != nil {
		return nil
	}

	return xslices.Map(h.session.Values(), func(v Value) Value {
		return Value{Name: v.Name, Data: slices.Clone(v.Data)}
	})
}

// Partitions returns copies of the partition entries found by the last probe.
func (h *Handle) Partitions() []Partition {
	if h.check() != nil {
		return nil
	}

	return xslices.Map(h.session.Partitions(), func(p Partition) Partition {
		if p.UUID != nil {
			p.UUID = pointer.To(*p.UUID)
		}

		if p.TypeUUID != nil {
			p.TypeUUID = pointer.To(*p.TypeUUID)
		}

		return p
	})
}

// SignatureKind is the kind of the signature found.
type SignatureKind int

// Signature kinds.
const (
	SignaturePartitionTable SignatureKind = iota
	SignatureSuperblock
)

func (k SignatureKind) String() string {
	if k == SignaturePartitionTable {
		return "partition table"
	}

	return "superblock"
}

// Signature is the magic of the signature found by the last probe.
type Signature struct {
	Kind   SignatureKind
	Type   string
	Offset uint64
	Magic  []byte
}

// Signature returns the signature Wipe would erase.
//
// The magic is only reported by the SetChainsForWipes preset.
// A partition table takes precedence over a superblock.
func (h *Handle) Signature() (Signature, bool) {
	sig, err := h.signature()
	if err != nil || sig == nil {
		return Signature{}, false
	}

	return *sig, true
}

// signature returns nil if the last probe found nothing, and ErrInvalidArgument
// if the magic of the signature found is not available.
func (h *Handle) signature() (*Signature, error) {
	var kind SignatureKind

	switch {
	case h.IsPartition():
		kind = SignaturePartitionTable
	case h.IsSuperblock():
		kind = SignatureSuperblock
	default:
		return nil, nil //nolint:nilnil
	}

	typeKey, offKey, magicKey := ValuePartitionTableType, ValuePartitionTableMagicOff, ValuePartitionTableMagic
	if kind == SignatureSuperblock {
		typeKey, offKey, magicKey = ValueType, ValueSuperblockMagicOff, ValueSuperblockMagic
	}

	off, ok := h.lookupString(offKey)
	if !ok {
		return nil, missingValue(offKey)
	}

	magic, ok := h.LookupValue(magicKey)
	if !ok {
		return nil, missingValue(magicKey)
	}

	offset, err := strconv.ParseUint(off, 10, 64)
	if err != nil {
		return nil, invalidValue(offKey, err)
	}

	typ, _ := h.lookupString(typeKey) //nolint:errcheck

	return &Signature{
		Kind:   kind,
		Type:   typ,
		Offset: offset,
		Magic:  magic,
	}, nil
}
