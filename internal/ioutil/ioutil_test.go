// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ioutil_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-blkprobe/internal/ioutil"
)

func TestReadFullAt(t *testing.T) {
	r := bytes.NewReader([]byte("0123456789"))

	buf := make([]byte, 4)
	require.NoError(t, ioutil.ReadFullAt(r, buf, 6))
	assert.Equal(t, []byte("6789"), buf)

	assert.ErrorIs(t, ioutil.ReadFullAt(r, buf, 8), io.ErrUnexpectedEOF)
}

func TestAlignedBuffer(t *testing.T) {
	for _, alignment := range []int{1, 512, 4096} {
		buf := ioutil.AlignedBuffer(100, alignment)

		assert.Len(t, buf, 100)
		assert.Equal(t, 100, cap(buf))
		assert.Zero(t, uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%uintptr(alignment))
		assert.Equal(t, make([]byte, 100), buf)
	}
}

func TestPageSize(t *testing.T) {
	size := ioutil.PageSize()

	assert.Positive(t, size)
	assert.Zero(t, size&(size-1))
}

func createFile(t *testing.T, contents []byte) *os.File {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "image.raw"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, f.Close())
	})

	_, err = f.Write(contents)
	require.NoError(t, err)

	return f
}

func TestWriteAtBlockwise(t *testing.T) {
	for _, test := range []struct { //nolint:govet
		name string

		size   int
		offset int64
		length int
		bsize  int
	}{
		{
			name:   "aligned",
			size:   4096,
			offset: 1024,
			length: 512,
			bsize:  512,
		},
		{
			name:   "unaligned head",
			size:   4096,
			offset: 1080,
			length: 2,
			bsize:  512,
		},
		{
			name:   "crossing blocks",
			size:   4096,
			offset: 510,
			length: 8,
			bsize:  512,
		},
		{
			name:   "tail of file",
			size:   1000,
			offset: 990,
			length: 10,
			bsize:  512,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			orig := bytes.Repeat([]byte{0xaa}, test.size)
			f := createFile(t, orig)

			n, err := ioutil.WriteAtBlockwise(f, test.bsize, ioutil.PageSize(), make([]byte, test.length), test.offset)
			require.NoError(t, err)
			assert.Equal(t, test.length, n)

			contents, err := os.ReadFile(f.Name())
			require.NoError(t, err)

			require.Len(t, contents, test.size)

			expected := bytes.Clone(orig)
			copy(expected[test.offset:], make([]byte, test.length))

			assert.Equal(t, expected, contents)
		})
	}
}

func TestWriteAtBlockwiseInvalid(t *testing.T) {
	f := createFile(t, make([]byte, 1024))

	_, err := ioutil.WriteAtBlockwise(f, 0, 4096, []byte{0}, 0)
	assert.ErrorIs(t, err, ioutil.ErrInvalidBlockSize)

	_, err = ioutil.WriteAtBlockwise(f, 512, 3, []byte{0}, 0)
	assert.ErrorIs(t, err, ioutil.ErrInvalidBlockSize)

	n, err := ioutil.WriteAtBlockwise(f, 512, 4096, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
