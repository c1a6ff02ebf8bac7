// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid_test

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-blkprobe/blkid"
	"github.com/siderolabs/go-blkprobe/internal/testimage"
)

// wipeAll wipes every signature found and returns the magic offsets in the order of wiping.
func wipeAll(t *testing.T, p *blkid.Probe) (types, offsets []string) {
	t.Helper()

	for range 32 {
		err := p.DoProbe()
		if err != nil {
			require.ErrorIs(t, err, blkid.ErrNothingFound)

			return types, offsets
		}

		types = append(types, lookup(t, p, blkid.ValueType))
		offsets = append(offsets, lookup(t, p, blkid.ValueSuperblockMagicOff))

		require.NoError(t, p.DoWipe(false))
	}

	require.FailNow(t, "signatures are not going away")

	return nil, nil
}

func TestProbeLVM2(t *testing.T) {
	for _, sector := range []uint64{0, 1} {
		t.Run(strconv.FormatUint(sector, 10), func(t *testing.T) {
			path := testimage.Create(t, 4*testimage.MiB)

			testimage.WriteLVM2(t, path, sector, "0123456789abcdefghijABCDEFGHIJkl")

			p := newProbe(t, path)
			p.SetSuperblocksFlags(allSuperblocksFlags)

			require.NoError(t, p.DoSafeProbe())

			assert.Equal(t, "lvm2-pv", lookup(t, p, blkid.ValueType))
			assert.Equal(t, "raid", lookup(t, p, blkid.ValueUsage))
			assert.Equal(t, "LVM2 001", lookup(t, p, blkid.ValueVersion))
			assert.Equal(t, "012345-6789-abcd-efgh-ijAB-CDEF-GHIJkl", lookup(t, p, blkid.ValueUUID))
			assert.Equal(t, string(testimage.LVM2Magic), lookup(t, p, blkid.ValueSuperblockMagic))
			assert.Equal(t, strconv.FormatUint(sector*testimage.SectorSize+0x18, 10), lookup(t, p, blkid.ValueSuperblockMagicOff))

			p.Reset()

			types, _ := wipeAll(t, p)
			assert.Equal(t, []string{"lvm2-pv"}, types)
		})
	}
}

func TestProbeLVM2BadLabel(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)

	testimage.WriteLVM2(t, path, 0, "0123456789abcdefghijABCDEFGHIJkl")

	// "LVM2 001" without the label ID is not a PV
	f := testimage.Open(t, path)
	_, err := f.WriteAt([]byte("LABELTWO"), 0)
	require.NoError(t, err)

	p := newProbe(t, path)

	require.ErrorIs(t, p.DoSafeProbe(), blkid.ErrNothingFound)
}

func TestProbeISO9660(t *testing.T) {
	for _, test := range []struct {
		name string
		fs   testimage.ISO9660

		expectedLabel string
		expectedID    string
	}{
		{
			name: "primary",
			fs:   testimage.ISO9660{Label: "CDROM", Blocks: 1024},

			expectedLabel: "CDROM",
		},
		{
			name: "joliet",
			fs: testimage.ISO9660{
				Label:       "CDROM",
				JolietLabel: "Talos install",
				Created:     "2024010203040500",
				Blocks:      1024,
			},

			expectedLabel: "Talos install",
			expectedID:    "2024-01-02-03-04-05-00",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := testimage.Create(t, 4*testimage.MiB)

			testimage.WriteISO9660(t, path, test.fs)

			p := newProbe(t, path)
			p.SetSuperblocksFlags(allSuperblocksFlags)

			require.NoError(t, p.DoSafeProbe())

			assert.Equal(t, "iso9660", lookup(t, p, blkid.ValueType))
			assert.Equal(t, "filesystem", lookup(t, p, blkid.ValueUsage))
			assert.Equal(t, test.expectedLabel, lookup(t, p, blkid.ValueLabel))
			assert.Equal(t, "2048", lookup(t, p, blkid.ValueBlockSize))
			assert.Equal(t, strconv.Itoa(2*testimage.MiB), lookup(t, p, blkid.ValueFSSize))
			assert.Equal(t, strconv.Itoa(testimage.ISO9660MagicOffset), lookup(t, p, blkid.ValueSuperblockMagicOff))

			if test.expectedID != "" {
				assert.Equal(t, test.expectedID, lookup(t, p, blkid.ValueUUID))
			} else {
				assert.False(t, p.HasValue(blkid.ValueUUID))
			}
		})
	}
}

func TestProbeTalosMeta(t *testing.T) {
	path := testimage.Create(t, testimage.MiB)

	testimage.WriteTalosMeta(t, path)

	p := newProbe(t, path)
	p.SetSuperblocksFlags(allSuperblocksFlags)

	require.NoError(t, p.DoSafeProbe())

	assert.Equal(t, "talosmeta", lookup(t, p, blkid.ValueType))
	assert.Equal(t, "other", lookup(t, p, blkid.ValueUsage))
	assert.Equal(t, strconv.Itoa(2*testimage.TalosMetaLength), lookup(t, p, blkid.ValueFSSize))

	p.Reset()

	// each copy is wiped on its own
	types, offsets := wipeAll(t, p)
	assert.Equal(t, []string{"talosmeta", "talosmeta"}, types)
	assert.Equal(t, []string{"0", strconv.Itoa(testimage.TalosMetaLength)}, offsets)
}

func TestProbeZFS(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)

	testimage.WriteZFS(t, path, 4, 100)

	p := newProbe(t, path)
	p.SetSuperblocksFlags(allSuperblocksFlags)

	require.NoError(t, p.DoSafeProbe())

	assert.Equal(t, "zfs", lookup(t, p, blkid.ValueType))
	assert.Equal(t, "5000", lookup(t, p, blkid.ValueVersion))
	assert.Equal(t, "000000001234abcd", lookup(t, p, blkid.ValueLabel))
	assert.Equal(t, strconv.Itoa(testimage.ZFSUberblockOffset), lookup(t, p, blkid.ValueSuperblockMagicOff))

	p.Reset()

	// losing one uberblock leaves too few of them
	types, offsets := wipeAll(t, p)
	assert.Equal(t, []string{"zfs"}, types)
	assert.Equal(t, []string{strconv.Itoa(testimage.ZFSUberblockOffset)}, offsets)
}

func TestProbeZFSTooFewUberblocks(t *testing.T) {
	path := testimage.Create(t, 4*testimage.MiB)

	testimage.WriteZFS(t, path, 3, 100)

	p := newProbe(t, path)

	require.ErrorIs(t, p.DoSafeProbe(), blkid.ErrNothingFound)
}

func TestProbeZFSSmallDevice(t *testing.T) {
	path := testimage.Create(t, 64*testimage.KiB)

	p := newProbe(t, path)

	require.ErrorIs(t, p.DoSafeProbe(), blkid.ErrNothingFound)
}

func TestWipeLUKS2SecondaryHeader(t *testing.T) {
	for _, secondaryOffset := range []int64{0x4000, 0x100000} {
		t.Run(strconv.FormatInt(secondaryOffset, 10), func(t *testing.T) {
			path := testimage.Create(t, 8*testimage.MiB)
			id := uuid.New()

			testimage.WriteLUKS(t, path, 2, "cryptlabel", id)
			testimage.WriteLUKSSecondary(t, path, secondaryOffset, id)

			p := newProbe(t, path)
			p.SetSuperblocksFlags(allSuperblocksFlags)

			require.NoError(t, p.DoSafeProbe())
			assert.Equal(t, string(testimage.LUKSMagic), lookup(t, p, blkid.ValueSuperblockMagic))

			p.Reset()

			// the primary header goes first, the secondary one is found once the primary is gone
			types, offsets := wipeAll(t, p)
			assert.Equal(t, []string{"crypto_LUKS", "crypto_LUKS"}, types)
			assert.Equal(t, []string{"0", strconv.FormatInt(secondaryOffset, 10)}, offsets)

			assert.Equal(t, make([]byte, len(testimage.LUKSSecondaryMagic)),
				testimage.ReadAt(t, path, secondaryOffset, len(testimage.LUKSSecondaryMagic)))
		})
	}
}

func TestProbeLUKS2SecondaryOnly(t *testing.T) {
	path := testimage.Create(t, 2*testimage.MiB)
	id := uuid.New()

	testimage.WriteLUKSSecondary(t, path, 0x8000, id)

	p := newProbe(t, path)
	p.SetSuperblocksFlags(allSuperblocksFlags)

	require.NoError(t, p.DoSafeProbe())

	assert.Equal(t, "crypto_LUKS", lookup(t, p, blkid.ValueType))
	assert.Equal(t, id.String(), lookup(t, p, blkid.ValueUUID))
	assert.Equal(t, string(testimage.LUKSSecondaryMagic), lookup(t, p, blkid.ValueSuperblockMagic))
	assert.Equal(t, "32768", lookup(t, p, blkid.ValueSuperblockMagicOff))
}

func TestProbeLUKS2SecondaryMisplaced(t *testing.T) {
	path := testimage.Create(t, 2*testimage.MiB)

	testimage.WriteLUKSSecondary(t, path, 0x8000, uuid.New())

	// the header claims another offset
	f := testimage.Open(t, path)
	_, err := f.WriteAt([]byte{0, 0, 0, 0, 0, 0, 0x40, 0}, 0x8000+256)
	require.NoError(t, err)

	p := newProbe(t, path)

	require.ErrorIs(t, p.DoSafeProbe(), blkid.ErrNothingFound)
}
