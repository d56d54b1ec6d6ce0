// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantReg  string
		wantRepo string
		wantTag  string
		wantErr  bool
	}{
		{
			name:     "oci scheme with tag",
			input:    "oci://ghcr.io/nvidia/nna-templates:v1.2.0",
			wantReg:  "ghcr.io",
			wantRepo: "nvidia/nna-templates",
			wantTag:  "v1.2.0",
		},
		{
			name:     "no scheme",
			input:    "localhost:5000/nna/templates:dev",
			wantReg:  "localhost:5000",
			wantRepo: "nna/templates",
			wantTag:  "dev",
		},
		{
			name:     "default tag",
			input:    "oci://ghcr.io/nvidia/nna-templates",
			wantReg:  "ghcr.io",
			wantRepo: "nvidia/nna-templates",
			wantTag:  DefaultTag,
		},
		{
			name:     "https prefix stripped",
			input:    "https://registry.example.com/team/tmpl:1",
			wantReg:  "registry.example.com",
			wantRepo: "team/tmpl",
			wantTag:  "1",
		},
		{
			name:     "docker hub normalization",
			input:    "nna-templates:v1",
			wantReg:  "docker.io",
			wantRepo: "library/nna-templates",
			wantTag:  "v1",
		},
		{name: "empty", input: "", wantErr: true},
		{name: "scheme only", input: "oci://", wantErr: true},
		{name: "uppercase repository", input: "ghcr.io/NVIDIA/tmpl:v1", wantErr: true},
		{
			name:    "digest",
			input:   "ghcr.io/nvidia/tmpl@sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReg, ref.Registry)
			assert.Equal(t, tt.wantRepo, ref.Repository)
			assert.Equal(t, tt.wantTag, ref.Tag)
		})
	}
}

func TestReferenceStrings(t *testing.T) {
	ref, err := ParseReference("oci://ghcr.io/nvidia/nna-templates:v1")
	require.NoError(t, err)

	assert.Equal(t, "ghcr.io/nvidia/nna-templates", ref.Repo())
	assert.Equal(t, "ghcr.io/nvidia/nna-templates:v1", ref.String())
	assert.Equal(t, "oci://ghcr.io/nvidia/nna-templates:v1", ref.URI())

	next := ref.WithTag("v2")
	assert.Equal(t, "v2", next.Tag)
	assert.Equal(t, "v1", ref.Tag, "WithTag must not modify the receiver")
}

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://ghcr.io", "ghcr.io"},
		{"http://localhost:5000", "localhost:5000"},
		{"registry.example.com", "registry.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripProtocol(tt.input))
		})
	}
}
