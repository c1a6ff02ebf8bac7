// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ioutil provides IO utility functions.
package ioutil

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultPageSize is used when the system page size can't be determined.
const DefaultPageSize = 4096

// ReadFullAt is io.ReadFull for io.ReaderAt.
func ReadFullAt(r io.ReaderAt, buf []byte, offset int64) error {
	for n := 0; n < len(buf); {
		m, err := r.ReadAt(buf[n:], offset)

		n += m
		offset += int64(m)

		if err != nil {
			if err == io.EOF && n == len(buf) {
				return nil
			}

			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}

			return err
		}
	}

	return nil
}

// PageSize returns the system memory page size.
func PageSize() int {
	if size := unix.Getpagesize(); size > 0 {
		return size
	}

	return DefaultPageSize
}

// AlignedBuffer returns a zeroed buffer of the given size whose first byte is aligned to alignment.
//
// Alignment should be a power of 2.
func AlignedBuffer(size, alignment int) []byte {
	if alignment <= 1 {
		return make([]byte, size)
	}

	buf := make([]byte, size+alignment)

	var shift int

	if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(buf))) & uintptr(alignment-1)); rem != 0 {
		shift = alignment - rem
	}

	return buf[shift : shift+size : shift+size]
}

// BlockWriter is the file abstraction used by WriteAtBlockwise.
type BlockWriter interface {
	io.ReaderAt
	io.WriterAt
}

// ErrInvalidBlockSize is returned for bad block size or alignment values.
var ErrInvalidBlockSize = errors.New("invalid block size or alignment")

// WriteAtBlockwise writes buf at offset, expanding the write to whole blocks of bsize bytes.
//
// Partial head and tail blocks are read back first, so bytes around [offset, offset+len(buf))
// are preserved. The bounce buffer is aligned to alignment. The write never extends past the
// data that could be read back, so a regular file is not grown beyond offset+len(buf).
//
// The returned count is the number of bytes of buf which reached the device.
func WriteAtBlockwise(w BlockWriter, bsize, alignment int, buf []byte, offset int64) (int, error) {
	if bsize <= 0 || alignment <= 0 || alignment&(alignment-1) != 0 || offset < 0 {
		return 0, ErrInvalidBlockSize
	}

	if len(buf) == 0 {
		return 0, nil
	}

	start := offset - offset%int64(bsize)
	end := offset + int64(len(buf))

	if rem := end % int64(bsize); rem != 0 {
		end += int64(bsize) - rem
	}

	head := int(offset - start)
	block := AlignedBuffer(int(end-start), alignment)

	if head != 0 || int64(head+len(buf)) != end-start {
		n, err := w.ReadAt(block, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("error reading block at %d: %w", start, err)
		}

		// don't write beyond what exists past the requested range
		if n < head+len(buf) {
			n = head + len(buf)
		}

		block = block[:n]
	}

	copy(block[head:], buf)

	n, err := w.WriteAt(block, start)

	written := min(max(n-head, 0), len(buf))

	if err != nil {
		return written, fmt.Errorf("error writing block at %d: %w", start, err)
	}

	return written, nil
}
