// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package magic_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siderolabs/go-blkprobe/blkid/internal/magic"
)

func TestMatches(t *testing.T) {
	m := magic.Magic{Offset: 2, Value: []byte("AB")}

	assert.True(t, m.Matches([]byte("..AB..")))
	assert.False(t, m.Matches([]byte("..BA..")))
	assert.False(t, m.Matches([]byte("..A")))
	assert.Equal(t, 4, m.BlockSize())

	var null magic.Magic

	assert.True(t, null.Matches(nil))
	assert.Zero(t, null.BlockSize())
}

func TestMatchesAt(t *testing.T) {
	m := magic.Magic{Offset: 4, Value: []byte("AB")}

	assert.True(t, m.MatchesAt(bytes.NewReader([]byte("....AB"))))
	assert.False(t, m.MatchesAt(bytes.NewReader([]byte("....BA"))))
	assert.False(t, m.MatchesAt(bytes.NewReader([]byte("....A"))))

	var null magic.Magic

	assert.True(t, null.MatchesAt(bytes.NewReader(nil)))
}
