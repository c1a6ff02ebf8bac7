// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block

import (
	"io"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FastWipeRange is the size of the head and tail zeroed by FastWipe.
const FastWipeRange = 1024 * 1024

// WipeRange zeroes the range [start, start+length) and returns the method used.
//
// In order of availability this tries:
//   - secure discard
//   - discard with zeroes
//   - zero out via ioctl
//   - writing zeroes (the only method for regular files)
func (d *Device) WipeRange(start, length uint64) (string, error) {
	r := [2]uint64{start, length}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKSECDISCARD, uintptr(unsafe.Pointer(&r[0]))); errno == 0 {
		runtime.KeepAlive(d)

		return "blksecdiscard", nil
	}

	var zeroes int

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKDISCARDZEROES, uintptr(unsafe.Pointer(&zeroes))); errno == 0 && zeroes != 0 {
		if _, _, errno = unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKDISCARD, uintptr(unsafe.Pointer(&r[0]))); errno == 0 {
			runtime.KeepAlive(d)

			return "blkdiscardzeros", nil
		}
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKZEROOUT, uintptr(unsafe.Pointer(&r[0]))); errno == 0 {
		runtime.KeepAlive(d)

		return "blkzeroout", nil
	}

	zero, err := os.Open("/dev/zero")
	if err != nil {
		return "", err
	}

	defer zero.Close() //nolint:errcheck

	if _, err = io.CopyN(io.NewOffsetWriter(d.f, int64(start)), zero, int64(length)); err != nil {
		return "", err
	}

	return "writezeroes", d.f.Sync()
}

// FastWipe zeroes the head and the tail of the device.
//
// Partition tables and most signatures live there (GPT keeps a backup header at the end),
// but the rest of the device is left as is.
func (d *Device) FastWipe() error {
	size, err := d.wipeSize()
	if err != nil {
		return err
	}

	// BLKDISCARD is TRIM on SSDs, it might or might not zero out the contents
	r := [2]uint64{0, size}

	unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKDISCARD, uintptr(unsafe.Pointer(&r[0]))) //nolint:errcheck

	if _, err = d.WipeRange(0, min(size, FastWipeRange)); err != nil {
		return err
	}

	if size >= FastWipeRange*2 {
		if _, err = d.WipeRange(size-FastWipeRange, FastWipeRange); err != nil {
			return err
		}
	}

	return nil
}

// wipeSize is the device size, or the file size for regular files.
func (d *Device) wipeSize() (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(d.f.Fd()), &st); err != nil {
		return 0, err
	}

	if st.Mode&unix.S_IFMT == unix.S_IFREG {
		return uint64(st.Size), nil
	}

	return d.GetSize()
}
