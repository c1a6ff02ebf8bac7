// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/freddierice/go-losetup/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-blkprobe/block"
)

const MiB = 1024 * 1024

func createImage(t *testing.T, size int64) string {
	t.Helper()

	rawImage := filepath.Join(t.TempDir(), "image.raw")

	f, err := os.Create(rawImage)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	return rawImage
}

func TestRegularFile(t *testing.T) {
	rawImage := createImage(t, 16*MiB)

	devWhole, err := block.NewFromPath(rawImage, block.OpenForWrite())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, devWhole.Close())
	})

	_, err = devWhole.GetDevNo()
	require.Error(t, err)

	_, err = devWhole.IsWholeDisk()
	require.Error(t, err)

	_, err = devWhole.GetSize()
	require.Error(t, err)

	assert.EqualValues(t, block.DefaultBlockSize, devWhole.GetSectorSize())

	ioSize, err := devWhole.GetIOSize()
	require.NoError(t, err)
	assert.EqualValues(t, block.DefaultBlockSize, ioSize)

	require.NoError(t, devWhole.Lock(true))

	f, err := os.Open(rawImage)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.Close() //nolint:errcheck
	})

	// a second open file description conflicts with the exclusive lock
	other := block.NewFromFile(f)
	require.ErrorIs(t, other.TryLock(false), unix.EWOULDBLOCK)

	require.NoError(t, devWhole.Unlock())
	require.NoError(t, other.TryLock(false))
	require.NoError(t, other.Unlock())

	// not owned
	require.NoError(t, other.Close())
	assert.Equal(t, f, other.File())

	_, err = f.Stat()
	require.NoError(t, err)
}

func TestLoopDevice(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("skipping test; must be root")
	}

	rawImage := createImage(t, 64*MiB)

	loDev, err := losetup.Attach(rawImage, 0, false)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, loDev.Detach())
	})

	dev, err := block.NewFromPath(loDev.Path(), block.OpenForWrite())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, dev.Close())
	})

	size, err := dev.GetSize()
	require.NoError(t, err)
	assert.EqualValues(t, 64*MiB, size)

	assert.EqualValues(t, 512, dev.GetSectorSize())

	ioSize, err := dev.GetIOSize()
	require.NoError(t, err)
	assert.NotZero(t, ioSize)

	devNo, err := dev.GetDevNo()
	require.NoError(t, err)
	assert.EqualValues(t, 7, unix.Major(devNo)) // loop

	isWholeDisk, err := dev.IsWholeDisk()
	require.NoError(t, err)
	assert.True(t, isWholeDisk)

	require.NoError(t, dev.TryLock(true))
	require.NoError(t, dev.Unlock())
}

func TestFastWipe(t *testing.T) {
	rawImage := createImage(t, 4*MiB)

	ones := bytes.Repeat([]byte{0xff}, 4*MiB)
	require.NoError(t, os.WriteFile(rawImage, ones, 0o600))

	dev, err := block.NewFromPath(rawImage, block.OpenForWrite())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, dev.Close())
	})

	method, err := dev.WipeRange(MiB+512, 512)
	require.NoError(t, err)
	assert.Equal(t, "writezeroes", method)

	require.NoError(t, dev.FastWipe())

	contents, err := os.ReadFile(rawImage)
	require.NoError(t, err)
	require.Len(t, contents, 4*MiB)

	zeroes := make([]byte, block.FastWipeRange)

	assert.Equal(t, zeroes, contents[:block.FastWipeRange])
	assert.Equal(t, zeroes, contents[len(contents)-block.FastWipeRange:])

	assert.Equal(t, make([]byte, 512), contents[MiB+512:MiB+1024])
	assert.Equal(t, ones[:512], contents[MiB:MiB+512])
	assert.Equal(t, ones[:512], contents[MiB+1024:MiB+1536])
}
