// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bluestore_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-blkprobe/blkid/internal/filesystems/bluestore"
	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
)

type reader struct {
	*bytes.Reader
}

func (r reader) GetSectorSize() uint { return 512 }

func (r reader) GetSize() uint64 { return uint64(r.Size()) }

func TestProbe(t *testing.T) {
	var p bluestore.Probe

	id := uuid.New()

	buf := make([]byte, 4096)
	copy(buf, "bluestore block device\n"+id.String()+"\n")

	require.True(t, p.Magic()[0].Matches(buf))

	res, err := p.Probe(reader{bytes.NewReader(buf)}, magic.Magic{})
	require.NoError(t, err)
	require.NotNil(t, res.UUID)
	assert.Equal(t, id, *res.UUID)

	// labels without the OSD UUID still match
	buf = make([]byte, 4096)
	copy(buf, "bluestore block device\n")

	res, err = p.Probe(reader{bytes.NewReader(buf)}, magic.Magic{})
	require.NoError(t, err)
	assert.Nil(t, res.UUID)
}
