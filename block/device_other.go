// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package block

import (
	"errors"
	"os"
)

const (
	writeFlag     = os.O_RDWR
	exclusiveFlag = os.O_EXCL
)

var errNotImplemented = errors.New("not implemented")

// NewFromPath returns a new Device from the specified path.
func NewFromPath(path string, opts ...Option) (*Device, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	f, err := os.OpenFile(path, options.Flag, 0)
	if err != nil {
		return nil, err
	}

	return &Device{
		f:         f,
		ownedFile: true,
	}, nil
}

// GetSize returns blockdevice size in bytes.
func (d *Device) GetSize() (uint64, error) {
	return 0, errNotImplemented
}

// GetIOSize returns blockdevice optimal I/O size in bytes.
func (d *Device) GetIOSize() (uint, error) {
	return DefaultBlockSize, nil
}

// GetSectorSize returns blockdevice sector size in bytes.
func (d *Device) GetSectorSize() uint {
	return DefaultBlockSize
}

// GetDevNo returns the device number of the blockdevice.
func (d *Device) GetDevNo() (uint64, error) {
	return 0, errNotImplemented
}

// IsWholeDisk returns true if the blockdevice is a whole disk.
func (d *Device) IsWholeDisk() (bool, error) {
	return false, errNotImplemented
}

// Lock (and block until the lock is acquired) for the block device.
func (d *Device) Lock(bool) error {
	return errNotImplemented
}

// TryLock (and return an error if failed).
func (d *Device) TryLock(bool) error {
	return errNotImplemented
}

// Unlock releases any lock.
func (d *Device) Unlock() error {
	return errNotImplemented
}

// WipeRange zeroes the range [start, start+length) and returns the method used.
func (d *Device) WipeRange(uint64, uint64) (string, error) {
	return "", errNotImplemented
}

// FastWipe zeroes the head and the tail of the device.
func (d *Device) FastWipe() error {
	return errNotImplemented
}
