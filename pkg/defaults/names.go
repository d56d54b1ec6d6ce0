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

package defaults

// Identity defaults.
const (
	// AppName is the default application name used for every rendered object.
	AppName = "namespace-node-affinity"

	// Namespace is used when neither configuration nor POD_NAMESPACE supply one.
	Namespace = "default"

	// Image is the default webhook image.
	Image = "ghcr.io/nvidia/namespace-node-affinity-webhook:latest"

	// FieldManager is the server-side apply field manager identity.
	FieldManager = "nna-operator"
)

// Backends.
const (
	// CertificateBackend is the default certificate authority implementation.
	CertificateBackend = "openssl"

	// OpenSSLPath is the openssl binary looked up on PATH.
	OpenSSLPath = "openssl"

	// StorageBackend is the default durable store for the certificate bundle.
	StorageBackend = "secret"

	// StateDir holds the file store when StorageBackend is "file".
	StateDir = "/var/lib/nna-operator"
)

// Server defaults.
const (
	// ServerPort is the default listen port for health, status and metrics.
	ServerPort = 8080

	// ServerRateLimit is the steady state request rate in requests per second.
	ServerRateLimit = 50

	// ServerRateLimitBurst is the burst size for the rate limiter.
	ServerRateLimitBurst = 100
)
