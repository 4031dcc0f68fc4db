// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package imgref

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Reference
	}{
		{
			name: "RegistryRepoTag",
			in:   "quay.io/ns/app:v1",
			want: Reference{Registry: "quay.io", Repository: "quay.io/ns/app", Name: "app", Tag: "v1"},
		},
		{
			name: "RegistryRepoDigest",
			in:   "quay.io/ns/app@sha256:abcd",
			want: Reference{Registry: "quay.io", Repository: "quay.io/ns/app", Name: "app", Digest: "sha256:abcd"},
		},
		{
			name: "RegistryRepoTagDigest",
			in:   "quay.io/ns/app:v1@sha256:abcd",
			want: Reference{Registry: "quay.io", Repository: "quay.io/ns/app", Name: "app", Tag: "v1", Digest: "sha256:abcd"},
		},
		{
			name: "NoRegistryBareName",
			in:   "ubi9",
			want: Reference{Repository: "ubi9", Name: "ubi9"},
		},
		{
			name: "NoRegistryWithTag",
			in:   "ubi9:9.3",
			want: Reference{Repository: "ubi9", Name: "ubi9", Tag: "9.3"},
		},
		{
			name: "HostPortNoTag",
			in:   "localhost:5000/ns/app",
			want: Reference{Registry: "localhost:5000", Repository: "localhost:5000/ns/app", Name: "app"},
		},
		{
			name: "HostPortWithTag",
			in:   "localhost:5000/ns/app:v2",
			want: Reference{Registry: "localhost:5000", Repository: "localhost:5000/ns/app", Name: "app", Tag: "v2"},
		},
		{
			name: "NoTagNoDigest",
			in:   "quay.io/ns/app",
			want: Reference{Registry: "quay.io", Repository: "quay.io/ns/app", Name: "app"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			assert.DeepEqual(t, got, tt.want)
		})
	}
}

func TestDigestAlgoHex(t *testing.T) {
	ref := Parse("quay.io/ns/app@sha256:abcd")
	algo, hex := ref.DigestAlgoHex()
	assert.Equal(t, algo, "sha256")
	assert.Equal(t, hex, "abcd")
}
