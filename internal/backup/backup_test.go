// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-blkprobe/internal/backup"
)

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()

	data := []byte("LUKS\xba\xbe\x00\x02")

	path, err := backup.Write(dir, "/dev/loop0", "crypto_LUKS", 0, data)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "blkprobe-loop0-crypto_LUKS-0x0.bak.zst"), path)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0o600, st.Mode().Perm())

	restored, err := backup.Read(path)
	require.NoError(t, err)
	assert.Equal(t, data, restored)

	// existing backups are never overwritten
	_, err = backup.Write(dir, "/dev/loop0", "crypto_LUKS", 0, []byte("other"))
	require.ErrorIs(t, err, os.ErrExist)

	path, err = backup.Write(dir, "/dev/loop0", "gpt", 0x3ffe00, []byte("EFI PART"))
	require.NoError(t, err)
	assert.Equal(t, "blkprobe-loop0-gpt-0x3ffe00.bak.zst", filepath.Base(path))
}

func TestReadMissing(t *testing.T) {
	_, err := backup.Read(filepath.Join(t.TempDir(), "missing"+backup.Ext))
	require.ErrorIs(t, err, os.ErrNotExist)
}
