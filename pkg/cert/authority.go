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

package cert

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// Certificate parameters shared by every Authority implementation.
const (
	// KeyBits is the RSA modulus size for both CA and server keys.
	KeyBits = 2048
	// CACommonName is the subject CN of the self-signed CA.
	CACommonName = "127.0.0.1"
	// CAValidityDays is the CA certificate lifetime.
	CAValidityDays = 3650
	// ServerValidityDays is the server certificate lifetime.
	ServerValidityDays = 365
	// ExtensionSection is the ssl.conf section applied when signing the server CSR.
	ExtensionSection = "v3_ext"
)

// Placeholders substituted in the ssl.conf template.
const (
	placeholderModel   = "{{ model }}"
	placeholderService = "{{ service }}"
)

//go:embed templates/ssl.conf.tmpl
var sslConfTemplate string

// Request identifies the webhook the certificate is issued for.
type Request struct {
	// Namespace is the deploying namespace, substituted for {{ model }}.
	Namespace string
	// Service is the webhook Service name, substituted for {{ service }}.
	Service string
}

// Validate checks that the request can be rendered into an ssl.conf.
func (r Request) Validate() error {
	if r.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if r.Service == "" {
		return fmt.Errorf("service is required")
	}
	return nil
}

// DNSNames returns the subject alternative names listed in the alt_names section.
func (r Request) DNSNames() []string {
	return []string{
		r.Service,
		r.Service + "." + r.Namespace,
		r.Service + "." + r.Namespace + ".svc",
		r.Service + "." + r.Namespace + ".svc.cluster.local",
	}
}

// Authority produces a complete certificate bundle or fails without a partial result.
type Authority interface {
	Generate(ctx context.Context, req Request) (store.Bundle, error)
}

// RenderSSLConfig renders the embedded ssl.conf template for req.
func RenderSSLConfig(req Request) string {
	return strings.NewReplacer(
		placeholderModel, req.Namespace,
		placeholderService, req.Service,
	).Replace(sslConfTemplate)
}
