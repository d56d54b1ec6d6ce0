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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

// PullOptions configures the OCI pull operation.
type PullOptions struct {
	// Reference is the bundle to fetch.
	Reference *Reference
	// TargetDir receives the unpacked bundle under LayerTitle.
	TargetDir string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PullResult describes a fetched bundle.
type PullResult struct {
	// Digest is the SHA256 digest of the pulled manifest.
	Digest string `json:"digest" yaml:"digest"`
	// Dir is the directory holding the template files.
	Dir string `json:"dir" yaml:"dir"`
}

// Pull fetches a template bundle and unpacks it into TargetDir.
func Pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	if opts.Reference == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required to pull")
	}

	repo, err := newRepository(opts.Reference, opts.PlainHTTP, opts.InsecureTLS)
	if err != nil {
		return nil, err
	}

	slog.Info("pulling template bundle",
		"reference", opts.Reference.String(),
		"target", opts.TargetDir)

	return pullFrom(ctx, repo, opts.Reference.Tag, opts.TargetDir)
}

// pullFrom copies the manifest tagged tag from src into a file store rooted
// at targetDir and verifies its artifact type.
func pullFrom(ctx context.Context, src oras.ReadOnlyTarget, tag, targetDir string) (*PullResult, error) {
	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", targetDir, err)
	}
	if mkErr := os.MkdirAll(absDir, 0o755); mkErr != nil {
		return nil, fmt.Errorf("failed to create %s: %w", absDir, mkErr)
	}

	fs, err := file.New(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	desc, err := oras.Copy(ctx, src, tag, fs, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to pull artifact: %w", err)
	}

	manifest, err := fetchManifest(ctx, fs, desc)
	if err != nil {
		return nil, err
	}
	if manifest.ArtifactType != ArtifactType {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"artifact is not a template bundle",
			map[string]any{"artifactType": manifest.ArtifactType, "digest": desc.Digest.String()})
	}

	dir := filepath.Join(absDir, LayerTitle)
	if _, statErr := os.Stat(dir); statErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "bundle has no templates layer", statErr)
	}

	return &PullResult{
		Digest: desc.Digest.String(),
		Dir:    dir,
	}, nil
}

func fetchManifest(ctx context.Context, fetcher content.Fetcher, desc ociv1.Descriptor) (*ociv1.Manifest, error) {
	if desc.MediaType != ociv1.MediaTypeImageManifest {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unexpected manifest media type %q", desc.MediaType))
	}
	data, err := content.FetchAll(ctx, fetcher, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	var m ociv1.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
