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

// Package cert produces and maintains the webhook TLS certificate chain.
//
// An Authority returns a complete store.Bundle or an error, never a partial
// result. Two implementations exist:
//
//   - OpenSSL shells out to openssl in five steps (CA key, server key,
//     self-signed CA, CSR, CA-signed server certificate) inside a private
//     temporary directory that is removed on every exit path.
//   - InProcess produces an equivalent chain with crypto/x509.
//
// Both use 2048-bit RSA keys, a CA with CN=127.0.0.1 valid for 3650 days and
// a server certificate valid for 365 days, signed with SHA-256. The server
// certificate carries the subject alternative names of the v3_ext section of
// the rendered ssl.conf.
//
// Manager.Ensure reads the bundle from a store.Store and calls the authority
// only when the bundle is incomplete:
//
//	m := cert.NewManager(cert.NewOpenSSL("openssl"), st, cert.Request{
//	    Namespace: "kubeflow",
//	    Service:   "namespace-node-affinity",
//	})
//	if err := m.Ensure(ctx); err != nil {
//	    // err carries errors.ErrCodeCertificateGeneration
//	}
package cert
