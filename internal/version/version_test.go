// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	defer func(pre, build string) {
		PreRelease, BuildMetadata = pre, build
	}(PreRelease, BuildMetadata)

	PreRelease, BuildMetadata = "", ""
	require.Equal(t, UserAgent(), String())

	PreRelease, BuildMetadata = "rc1", "g1a2b.dirty"
	require.Equal(t, UserAgent()+"-rc1+g1a2b.dirty", String())

	// Invalid characters are dropped rather than producing a malformed
	// version.
	PreRelease, BuildMetadata = "r/c:1", "a+b"
	require.Equal(t, UserAgent()+"-rc1+ab", String())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "alpha-1", NormalizePreRelString("alpha.-1"))
	require.Equal(t, "alpha.-1", NormalizeBuildString("alpha.-1"))
	require.Equal(t, "", NormalizePreRelString("/:()"))
}
