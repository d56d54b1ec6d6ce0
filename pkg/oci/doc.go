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

// Package oci moves template bundles to and from OCI-compliant registries.
//
// A bundle is a directory of resource templates packed as a single gzip
// layer in an OCI 1.1 manifest with artifact type ArtifactType. Push packs
// and uploads a directory; Pull downloads a bundle and unpacks it so the
// operator can render from it instead of the embedded templates.
//
//	ref, err := oci.ParseReference("oci://ghcr.io/nvidia/nna-templates:v1")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.Pull(ctx, oci.PullOptions{Reference: ref, TargetDir: dir})
//	if err != nil {
//	    return err
//	}
//	templates := render.FromDir(res.Dir)
//
// Credentials are read from the Docker configuration (~/.docker/config.json)
// through the ORAS credentials package.
package oci
