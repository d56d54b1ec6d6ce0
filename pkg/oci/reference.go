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
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

const (
	// URIScheme is the optional prefix of a template bundle reference
	// (e.g. "oci://ghcr.io/org/nna-templates:v1").
	URIScheme = "oci://"

	// DefaultTag is applied when a reference carries no tag.
	DefaultTag = "latest"
)

// Reference identifies a template bundle in an OCI registry.
type Reference struct {
	// Registry is the registry host (e.g. "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g. "nvidia/nna-templates").
	Repository string
	// Tag is the artifact tag.
	Tag string
}

// ParseReference parses registry/repository[:tag] with an optional oci://
// or http(s):// prefix. A missing tag defaults to DefaultTag.
func ParseReference(s string) (*Reference, error) {
	raw := stripProtocol(strings.TrimPrefix(strings.TrimSpace(s), URIScheme))
	if raw == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is empty")
	}

	named, err := reference.ParseNormalizedNamed(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid OCI reference %q", s), err)
	}
	if _, ok := named.(reference.Digested); ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("OCI reference %q must use a tag, not a digest", s))
	}

	ref := &Reference{
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
		Tag:        DefaultTag,
	}
	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}
	return ref, nil
}

// Repo returns registry/repository.
func (r *Reference) Repo() string {
	return r.Registry + "/" + r.Repository
}

// String returns registry/repository:tag.
func (r *Reference) String() string {
	return r.Repo() + ":" + r.Tag
}

// URI returns the reference with the oci:// scheme.
func (r *Reference) URI() string {
	return URIScheme + r.String()
}

// WithTag returns a copy of the reference with the given tag.
func (r *Reference) WithTag(tag string) *Reference {
	c := *r
	c.Tag = tag
	return &c
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}
