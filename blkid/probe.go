// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid

import (
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type chainID int

const (
	chainSuperblocks chainID = iota
	chainPartitions

	numChains
)

func (id chainID) String() string {
	switch id {
	case chainSuperblocks:
		return "superblocks"
	case chainPartitions:
		return "partitions"
	default:
		return "unknown"
	}
}

const noChain chainID = -1

type chainState struct {
	enabled bool
	// idx of the last matched prober, -1 if none
	idx int
}

// Probe is a probing session bound to a single device.
//
// Probe is not safe for concurrent use.
type Probe struct { //nolint:govet
	logger *zap.Logger

	f         *os.File
	ownedFile bool

	offset, size uint64
	sectorSize   uint
	ioSize       uint

	chains [numChains]chainState
	cur    chainID

	superblocksFlags SuperblocksFlags
	partitionsFlags  PartitionsFlags

	filter     map[string]struct{}
	filterMode FilterMode

	values []Value
	parts  []Partition
}

// NewProbe returns a new Probe which is not yet bound to a device.
//
// By default only the superblocks chain is enabled with SuperblocksDefault flags.
func NewProbe(opts ...ProbeOption) *Probe {
	options := applyProbeOptions(opts...)

	p := &Probe{
		logger:           options.Logger,
		superblocksFlags: SuperblocksDefault,
		cur:              noChain,
	}

	p.chains[chainSuperblocks].enabled = true
	p.resetChains()

	return p
}

// NewProbeFromFilename opens the file read-only and returns a Probe bound to it.
//
// The file is owned by the Probe and closed by Close.
func NewProbeFromFilename(devpath string, opts ...ProbeOption) (*Probe, error) {
	f, err := os.OpenFile(devpath, os.O_RDONLY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	p := NewProbe(opts...)

	if err = p.SetDevice(f, 0, 0); err != nil {
		f.Close() //nolint:errcheck

		return nil, err
	}

	p.ownedFile = true

	return p, nil
}

// SetDevice binds the probe to the file, probing the area [offset, offset+size).
//
// Size 0 means up to the end of the device. The file is not owned by the Probe.
// Chain configuration and filters are kept, probing state is reset.
func (p *Probe) SetDevice(f *os.File, offset, size uint64) error {
	p.Reset()

	if p.ownedFile && p.f != nil && p.f != f {
		if err := p.f.Close(); err != nil {
			return fmt.Errorf("failed to close previous device: %w", err)
		}
	}

	p.f = nil
	p.ownedFile = false

	geometry, err := getGeometry(f)
	if err != nil {
		return err
	}

	if offset > geometry.size {
		return fmt.Errorf("probing offset is out of bounds: offset %d > size %d", offset, geometry.size)
	}

	if size == 0 {
		size = geometry.size - offset
	}

	if offset+size > geometry.size {
		return fmt.Errorf("probing range is out of bounds: offset %d + len %d > size %d", offset, size, geometry.size)
	}

	p.f = f
	p.offset = offset
	p.size = size
	p.sectorSize = geometry.sectorSize
	p.ioSize = geometry.ioSize

	p.logger.Debug("probe device assigned",
		zap.String("device", f.Name()),
		zap.Uint64("offset", offset),
		zap.Uint64("size", size),
		zap.Uint("sector_size", geometry.sectorSize),
	)

	return nil
}

// Reset zeroizes probing results and the position of incremental probing.
//
// The device, chain configuration and filters are kept.
func (p *Probe) Reset() {
	p.resetChains()
	p.resetValues()
}

func (p *Probe) resetChains() {
	p.cur = noChain

	for i := range p.chains {
		p.chains[i].idx = -1
	}
}

func (p *Probe) resetValues() {
	p.values = nil
	p.parts = nil
}

// Close releases the probe.
//
// If the Probe was created with NewProbeFromFilename, the file is closed.
func (p *Probe) Close() error {
	if p.f == nil {
		return nil
	}

	var err error

	if p.ownedFile {
		err = p.f.Close()
	}

	p.f = nil
	p.ownedFile = false
	p.resetValues()

	return err
}

// File returns the file the probe is bound to.
func (p *Probe) File() *os.File {
	return p.f
}

// SectorSize returns the logical sector size of the device, 0 if not bound.
func (p *Probe) SectorSize() uint {
	if p.f == nil {
		return 0
	}

	return p.sectorSize
}

// Size returns the size of the probing area.
func (p *Probe) Size() uint64 {
	return p.size
}

// Offset returns the start of the probing area.
func (p *Probe) Offset() uint64 {
	return p.offset
}

// EnableSuperblocks enables or disables the superblocks chain.
func (p *Probe) EnableSuperblocks(enable bool) {
	p.chains[chainSuperblocks].enabled = enable
}

// SetSuperblocksFlags sets the flags of the superblocks chain.
func (p *Probe) SetSuperblocksFlags(flags SuperblocksFlags) {
	p.superblocksFlags = flags
}

// EnablePartitions enables or disables the partitions chain.
func (p *Probe) EnablePartitions(enable bool) {
	p.chains[chainPartitions].enabled = enable
}

// SetPartitionsFlags sets the flags of the partitions chain.
func (p *Probe) SetPartitionsFlags(flags PartitionsFlags) {
	p.partitionsFlags = flags
}

// FilterSuperblocksType restricts the superblocks chain by prober name.
//
// The new filter replaces the previous one.
func (p *Probe) FilterSuperblocksType(mode FilterMode, names []string) error {
	if mode != FilterNotIn && mode != FilterOnlyIn {
		return fmt.Errorf("invalid filter mode %d", mode)
	}

	p.filter = make(map[string]struct{}, len(names))

	for _, name := range names {
		p.filter[name] = struct{}{}
	}

	p.filterMode = mode

	return nil
}

// ResetSuperblocksFilter removes the superblocks filter.
func (p *Probe) ResetSuperblocksFilter() {
	p.filter = nil
}

func (p *Probe) filtered(name string) bool {
	if p.filter == nil {
		return false
	}

	_, listed := p.filter[name]

	if p.filterMode == FilterOnlyIn {
		return !listed
	}

	return listed
}

// HasValue returns true if the value was set by the last probe.
func (p *Probe) HasValue(name string) bool {
	_, ok := p.LookupValue(name)

	return ok
}

// LookupValue returns the value set by the last probe.
//
// The returned slice is a copy.
func (p *Probe) LookupValue(name string) ([]byte, bool) {
	idx := slices.IndexFunc(p.values, func(v Value) bool { return v.Name == name })
	if idx == -1 {
		return nil, false
	}

	return slices.Clone(p.values[idx].Data), true
}

// Values returns all values set by the last probe, in the order they were set.
func (p *Probe) Values() []Value {
	result := make([]Value, 0, len(p.values))

	for _, v := range p.values {
		result = append(result, Value{Name: v.Name, Data: slices.Clone(v.Data)})
	}

	return result
}

// Partitions returns the partition entries found by the last probe.
func (p *Probe) Partitions() []Partition {
	return slices.Clone(p.parts)
}

func (p *Probe) setValue(name string, data []byte) {
	p.values = append(p.values, Value{Name: name, Data: data})
}

func (p *Probe) setString(name, value string) {
	p.setValue(name, []byte(value))
}

// deviceReader adapts the probing area to the probers' Reader.
type deviceReader struct {
	*io.SectionReader

	sectorSize uint
}

func (r deviceReader) GetSectorSize() uint {
	return r.sectorSize
}

func (r deviceReader) GetSize() uint64 {
	return uint64(r.Size())
}

func (p *Probe) reader() deviceReader {
	return deviceReader{
		SectionReader: io.NewSectionReader(p.f, int64(p.offset), int64(p.size)),
		sectorSize:    p.sectorSize,
	}
}

type geometry struct {
	size       uint64
	sectorSize uint
	ioSize     uint
}
