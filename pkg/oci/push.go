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
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

const (
	// ArtifactType is the media type of template bundle artifacts.
	ArtifactType = "application/vnd.nvidia.nna.templates"

	// LayerTitle is the name of the single directory layer in a bundle.
	// Pull unpacks it to <target>/<LayerTitle>.
	LayerTitle = "templates"
)

// PushOptions configures the OCI push operation.
type PushOptions struct {
	// SourceDir is the directory containing the template files.
	SourceDir string
	// Reference is the destination.
	Reference *Reference
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// ReproducibleTimestamp sets a fixed created annotation for reproducible builds.
	ReproducibleTimestamp string
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string `json:"digest" yaml:"digest"`
	// Reference is the full reference (registry/repository:tag).
	Reference string `json:"reference" yaml:"reference"`
}

// Push packs SourceDir as a template bundle and pushes it to the registry.
func Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.Reference == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required to push")
	}

	repo, err := newRepository(opts.Reference, opts.PlainHTTP, opts.InsecureTLS)
	if err != nil {
		return nil, err
	}

	slog.Info("pushing template bundle",
		"reference", opts.Reference.String(),
		"source", opts.SourceDir)

	desc, err := pushTo(ctx, opts.SourceDir, repo, opts.Reference.Tag, opts.ReproducibleTimestamp)
	if err != nil {
		return nil, err
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: opts.Reference.String(),
	}, nil
}

// pushTo packs sourceDir into a manifest tagged tag and copies it to dst.
func pushTo(ctx context.Context, sourceDir string, dst oras.Target, tag, created string) (ociv1.Descriptor, error) {
	if tag == "" {
		return ociv1.Descriptor{}, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required to push OCI artifact")
	}

	// Absolute path avoids ORAS working directory issues
	absDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to get absolute path for %s: %w", sourceDir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return ociv1.Descriptor{}, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "template directory not readable", err)
	}
	if !info.IsDir() {
		return ociv1.Descriptor{}, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s is not a directory", sourceDir))
	}

	fs, err := file.New(absDir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, LayerTitle, ociv1.MediaTypeImageLayerGzip, absDir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to add template directory to store: %w", err)
	}

	packOpts := oras.PackManifestOptions{
		Layers: []ociv1.Descriptor{layerDesc},
	}
	if created != "" {
		packOpts.ManifestAnnotations = map[string]string{
			ociv1.AnnotationCreated: created,
		}
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, packOpts)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to pack manifest: %w", err)
	}

	if tagErr := fs.Tag(ctx, manifestDesc, tag); tagErr != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to tag manifest in local store: %w", tagErr)
	}

	desc, err := oras.Copy(ctx, fs, tag, dst, tag, oras.DefaultCopyOptions)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to push artifact: %w", err)
	}
	return desc, nil
}

// newRepository returns an authenticated remote repository for ref.
func newRepository(ref *Reference, plainHTTP, insecureTLS bool) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Repo())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = plainHTTP
	repo.Client = createAuthClient(plainHTTP, insecureTLS)
	return repo, nil
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, _ := credentials.NewStoreFromDocker(credentials.StoreOptions{})

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
