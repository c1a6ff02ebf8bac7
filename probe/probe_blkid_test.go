// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux && !noblkid

package probe_test

import (
	"errors"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/freddierice/go-losetup/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-blkprobe/internal/testimage"
	"github.com/siderolabs/go-blkprobe/probe"
)

func openHandle(t *testing.T, path string, opts ...probe.Option) *probe.Handle {
	t.Helper()

	f := testimage.Open(t, path)

	h, err := probe.NewFromFile(f, append([]probe.Option{probe.WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, h.Close())
	})

	return h
}

func ext4Image(t *testing.T) string {
	t.Helper()

	path := testimage.Create(t, 4*testimage.MiB)
	testimage.WriteExt4(t, path, testimage.Ext4{Label: "extlabel", UUID: uuid.New()})

	return path
}

func TestSupported(t *testing.T) {
	assert.True(t, probe.Supported())
	assert.True(t, probe.DefaultLibrary().Supported())
}

func TestNewFromPath(t *testing.T) {
	path := ext4Image(t)

	h, err := probe.NewFromPath(path)
	require.NoError(t, err)

	require.NoError(t, h.SetChainsForFastDetection())

	status, err := h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusOK, status)

	typ, ok := h.SuperblockType()
	assert.True(t, ok)
	assert.Equal(t, "ext4", typ)
	assert.EqualValues(t, 4096, h.BlockSize())

	// path-opened handles have no file for the manual wipe
	h2, err := probe.NewFromPath(path, probe.WithCapabilities(probe.Capabilities{}))
	require.NoError(t, err)

	require.NoError(t, h2.SetChainsForWipes())

	status, err = h2.Probe()
	require.NoError(t, err)
	require.Equal(t, probe.StatusOK, status)

	assert.ErrorIs(t, h2.Wipe(), probe.ErrInvalidArgument)

	assert.NoError(t, h.Close())
	assert.NoError(t, h2.Close())

	_, err = probe.NewFromPath(path + ".missing")
	require.ErrorIs(t, err, probe.ErrInvalidArgument)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLookupsBeforeProbe(t *testing.T) {
	h := openHandle(t, ext4Image(t))

	_, ok := h.PartitionType()
	assert.False(t, ok)

	_, ok = h.SuperblockType()
	assert.False(t, ok)

	assert.False(t, h.IsPartition())
	assert.False(t, h.IsSuperblock())
	assert.Zero(t, h.BlockSize())

	// nothing to wipe yet
	require.NoError(t, h.Wipe())
}

func TestBlankDevice(t *testing.T) {
	path := testimage.Create(t, 2*testimage.MiB)
	h := openHandle(t, path)

	require.NoError(t, h.SetChainsForSuperblocks())

	status, err := h.Probe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, status)

	assert.False(t, h.IsPartition())
	assert.False(t, h.IsSuperblock())
	assert.Zero(t, h.BlockSize())

	require.NoError(t, h.SetChainsForWipes())

	status, err = h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, status)

	require.NoError(t, h.Wipe())
	assert.Equal(t, make([]byte, 2*testimage.MiB), testimage.ReadAt(t, path, 0, 2*testimage.MiB))
}

func TestLUKSFilters(t *testing.T) {
	path := ext4Image(t)

	h := openHandle(t, path)
	require.NoError(t, h.SetChainsForSuperblocks())
	require.NoError(t, h.SuperblocksOnlyLUKS())

	status, err := h.Probe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, status)

	h = openHandle(t, path)
	require.NoError(t, h.SetChainsForSuperblocks())
	require.NoError(t, h.SuperblocksFilterLUKS())

	status, err = h.Probe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusOK, status)

	typ, ok := h.SuperblockType()
	assert.True(t, ok)
	assert.Equal(t, "ext4", typ)

	// the superblocks preset reports the type only
	_, ok = h.Label()
	assert.False(t, ok)
}

func TestOnlyLUKS(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)
	id := uuid.New()

	testimage.WriteLUKS(t, path, 2, "cryptlabel", id)

	h := openHandle(t, path)
	require.NoError(t, h.SetChainsForFullPrint())
	require.NoError(t, h.SuperblocksOnlyLUKS())

	status, err := h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusOK, status)

	typ, _ := h.SuperblockType()
	assert.Equal(t, probe.LUKSType, typ)

	label, _ := h.Label()
	assert.Equal(t, "cryptlabel", label)

	fsUUID, _ := h.UUID()
	assert.Equal(t, id.String(), fsUUID)

	usage, _ := h.Usage()
	assert.Equal(t, "crypto", usage)

	version, _ := h.Version()
	assert.Equal(t, "2", version)

	assert.Zero(t, h.BlockSize())
}

func TestSafeProbeAmbiguous(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)

	testimage.WriteExt4(t, path, testimage.Ext4{UUID: uuid.New()})
	testimage.WriteLUKS(t, path, 2, "", uuid.New())

	h := openHandle(t, path)
	require.NoError(t, h.SetChainsForWipes())

	status, err := h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusAmbiguous, status)

	assert.False(t, h.IsPartition())
	assert.False(t, h.IsSuperblock())
	assert.Empty(t, h.Values())

	// the wipe is a no-op without a committed result
	require.NoError(t, h.Wipe())
	assert.Equal(t, testimage.LUKSMagic, testimage.ReadAt(t, path, 0, len(testimage.LUKSMagic)))
}

func TestWipe(t *testing.T) {
	for _, test := range []struct {
		name string
		caps probe.Capabilities
	}{
		{
			name: "native",
			caps: allCaps,
		},
		{
			name: "manual with step back",
			caps: probe.Capabilities{StepBack: true, PartitionsMagic: true, BadChecksum: true},
		},
		{
			name: "manual with reset",
			caps: probe.Capabilities{PartitionsMagic: true, BadChecksum: true},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Run("superblock", func(t *testing.T) {
				path := ext4Image(t)

				h := openHandle(t, path, probe.WithCapabilities(test.caps))
				require.NoError(t, h.SetChainsForWipes())

				status, err := h.Probe()
				require.NoError(t, err)
				require.Equal(t, probe.StatusOK, status)

				sig, ok := h.Signature()
				require.True(t, ok)
				assert.Equal(t, probe.SignatureSuperblock, sig.Kind)
				assert.Equal(t, "ext4", sig.Type)
				assert.EqualValues(t, testimage.Ext4MagicOffset, sig.Offset)
				assert.Equal(t, []byte{0x53, 0xef}, sig.Magic)

				require.NoError(t, h.Wipe())

				status, err = h.Probe()
				require.NoError(t, err)
				assert.Equal(t, probe.StatusEmpty, status)

				assert.Equal(t, []byte{0, 0}, testimage.ReadAt(t, path, testimage.Ext4MagicOffset, 2))
			})

			t.Run("layered", func(t *testing.T) {
				path := testimage.Create(t, 4*testimage.MiB)

				testimage.WriteExt4(t, path, testimage.Ext4{UUID: uuid.New()})
				testimage.WriteLUKS(t, path, 2, "", uuid.New())

				h := openHandle(t, path, probe.WithCapabilities(test.caps))
				require.NoError(t, h.SetChainsForWipes())

				var wiped []string

				for {
					status, err := h.Probe()
					require.NoError(t, err)

					if status == probe.StatusEmpty {
						break
					}

					typ, _ := h.SuperblockType()
					wiped = append(wiped, typ)

					require.NoError(t, h.Wipe())
				}

				assert.Equal(t, []string{probe.LUKSType, "ext4"}, wiped)
			})

			t.Run("gpt", func(t *testing.T) {
				const size = 4 * testimage.MiB

				path := testimage.Create(t, size)
				testimage.WriteGPT(t, path, uuid.New())

				h := openHandle(t, path, probe.WithCapabilities(test.caps))
				require.NoError(t, h.SetChainsForWipes())

				var offsets []uint64

				for {
					status, err := h.Probe()
					require.NoError(t, err)

					if status == probe.StatusEmpty {
						break
					}

					require.True(t, h.IsPartition())

					sig, ok := h.Signature()
					require.True(t, ok)
					assert.Equal(t, probe.SignaturePartitionTable, sig.Kind)
					assert.Equal(t, testimage.GPTMagic, sig.Magic)

					offsets = append(offsets, sig.Offset)

					require.NoError(t, h.Wipe())
				}

				assert.Equal(t, []uint64{testimage.SectorSize, uint64(testimage.GPTBackupHeaderOffset(size))}, offsets)
			})
		})
	}
}

func TestWipeReadOnly(t *testing.T) {
	for _, test := range []struct {
		name string
		caps probe.Capabilities
	}{
		{
			name: "native",
			caps: allCaps,
		},
		{
			name: "manual",
			caps: probe.Capabilities{StepBack: true},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := ext4Image(t)

			f, err := os.Open(path)
			require.NoError(t, err)

			t.Cleanup(func() {
				f.Close() //nolint:errcheck
			})

			h, err := probe.NewFromFile(f, probe.WithCapabilities(test.caps), probe.WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)

			t.Cleanup(func() {
				assert.NoError(t, h.Close())
			})

			require.NoError(t, h.SetChainsForWipes())

			status, err := h.Probe()
			require.NoError(t, err)
			require.Equal(t, probe.StatusOK, status)

			assert.ErrorIs(t, h.Wipe(), probe.ErrIO)
			assert.Equal(t, []byte{0x53, 0xef}, testimage.ReadAt(t, path, testimage.Ext4MagicOffset, 2))
		})
	}
}

func TestNilLogger(t *testing.T) {
	for _, test := range []struct {
		name string
		caps probe.Capabilities
	}{
		{
			name: "native",
			caps: allCaps,
		},
		{
			name: "manual",
			caps: probe.Capabilities{StepBack: true, PartitionsMagic: true},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := ext4Image(t)

			h, err := probe.NewFromFile(testimage.Open(t, path), probe.WithCapabilities(test.caps), probe.WithLogger(nil))
			require.NoError(t, err)

			t.Cleanup(func() {
				assert.NoError(t, h.Close())
			})

			require.NoError(t, h.SetChainsForWipes())

			status, err := h.Probe()
			require.NoError(t, err)
			require.Equal(t, probe.StatusOK, status)

			require.NoError(t, h.Wipe())

			status, err = h.Probe()
			require.NoError(t, err)
			assert.Equal(t, probe.StatusEmpty, status)
		})
	}
}

func TestLVMPhysicalVolume(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)
	testimage.WriteLVM2(t, path, 1, "0123456789abcdefghijABCDEFGHIJkl")

	h := openHandle(t, path)
	require.NoError(t, h.SetChainsForFastDetection())
	require.NoError(t, h.SuperblocksFilterLUKS())

	status, err := h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusOK, status)

	typ, ok := h.SuperblockType()
	assert.True(t, ok)
	assert.Equal(t, "lvm2-pv", typ)

	require.NoError(t, h.SetChainsForWipes())

	status, err = h.Probe()
	require.NoError(t, err)
	require.Equal(t, probe.StatusOK, status)

	require.NoError(t, h.Wipe())

	status, err = h.Probe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, status)

	assert.Equal(t, make([]byte, len(testimage.LVM2Magic)), testimage.ReadAt(t, path, testimage.SectorSize+0x18, len(testimage.LVM2Magic)))
}

func TestLoopDevice(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("test requires root privileges")
	}

	path := testimage.Create(t, 64*testimage.MiB)
	testimage.WriteLUKS(t, path, 2, "cryptlabel", uuid.New())

	var (
		loDev losetup.Device
		err   error
	)

	for range 10 {
		loDev, err = losetup.Attach(path, 0, false)
		if !errors.Is(err, unix.EBUSY) {
			break
		}

		time.Sleep(time.Duration(max(rand.ExpFloat64(), 2.0) * float64(time.Second)))
	}

	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, loDev.Detach())
	})

	h, err := probe.NewFromPath(loDev.Path())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, h.Close())
	})

	require.NoError(t, h.SetChainsForFastDetection())
	require.NoError(t, h.SuperblocksOnlyLUKS())

	status, err := h.SafeProbe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusOK, status)

	typ, _ := h.SuperblockType()
	assert.Equal(t, probe.LUKSType, typ)

	f, err := os.OpenFile(loDev.Path(), os.O_RDWR, 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.Close() //nolint:errcheck
	})

	wh, err := probe.NewFromFile(f, probe.WithCapabilities(probe.Capabilities{StepBack: true}))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, wh.Close())
	})

	require.NoError(t, wh.SetChainsForWipes())

	status, err = wh.Probe()
	require.NoError(t, err)
	require.Equal(t, probe.StatusOK, status)

	require.NoError(t, wh.Wipe())

	status, err = wh.Probe()
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, status)
}
