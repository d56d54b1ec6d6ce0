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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// InProcess generates the same certificate chain as OpenSSL using crypto/x509.
type InProcess struct {
	// Now returns the issuance time. Nil uses time.Now.
	Now func() time.Time
}

// NewInProcess returns an InProcess authority.
func NewInProcess() *InProcess {
	return &InProcess{}
}

// Generate implements Authority.
func (p *InProcess) Generate(_ context.Context, req Request) (store.Bundle, error) {
	if err := req.Validate(); err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "invalid certificate request", err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	issued := now()

	caKey, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to generate CA key", err)
	}
	serverKey, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to generate server key", err)
	}

	caTemplate := &x509.Certificate{
		SerialNumber:          mustSerial(),
		Subject:               pkix.Name{CommonName: CACommonName},
		NotBefore:             issued,
		NotAfter:              issued.AddDate(0, 0, CAValidityDays),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}
	if ip := net.ParseIP(CACommonName); ip != nil {
		caTemplate.IPAddresses = []net.IP{ip}
	}

	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to create CA certificate", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to parse CA certificate", err)
	}

	serverTemplate := &x509.Certificate{
		SerialNumber: mustSerial(),
		Subject: pkix.Name{
			CommonName:   fmt.Sprintf("%s.%s.svc", req.Service, req.Namespace),
			Organization: []string{"NVIDIA"},
		},
		DNSNames:  req.DNSNames(),
		NotBefore: issued,
		NotAfter:  issued.AddDate(0, 0, ServerValidityDays),
		KeyUsage: x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment |
			x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}

	serverDER, err := x509.CreateCertificate(rand.Reader, serverTemplate, caCert, &serverKey.PublicKey, caKey)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to sign server certificate", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(serverKey)
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to marshal server key", err)
	}

	return store.NewBundle(
		string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: serverDER})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})),
		string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})),
	), nil
}

// mustSerial returns a random 128-bit serial number.
func mustSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return serial
}
