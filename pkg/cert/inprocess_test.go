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
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeCert(t *testing.T, data string) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode([]byte(data))
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)
	c, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return c
}

func TestInProcessGenerate(t *testing.T) {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &InProcess{Now: func() time.Time { return issued }}
	req := testRequest()

	bundle, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, bundle.Complete())

	ca := decodeCert(t, *bundle.CA)
	assert.True(t, ca.IsCA)
	assert.Equal(t, CACommonName, ca.Subject.CommonName)
	assert.Equal(t, issued.AddDate(0, 0, CAValidityDays), ca.NotAfter)
	assert.Equal(t, x509.SHA256WithRSA, ca.SignatureAlgorithm)
	caPub, ok := ca.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, KeyBits, caPub.N.BitLen())

	server := decodeCert(t, *bundle.Cert)
	assert.False(t, server.IsCA)
	assert.Equal(t, req.DNSNames(), server.DNSNames)
	assert.Equal(t, issued.AddDate(0, 0, ServerValidityDays), server.NotAfter)
	assert.Equal(t, x509.SHA256WithRSA, server.SignatureAlgorithm)
	assert.Contains(t, server.ExtKeyUsage, x509.ExtKeyUsageServerAuth)

	pool := x509.NewCertPool()
	pool.AddCert(ca)
	_, err = server.Verify(x509.VerifyOptions{
		DNSName:     "namespace-node-affinity.test-model.svc",
		Roots:       pool,
		CurrentTime: issued.Add(time.Hour),
	})
	assert.NoError(t, err)

	keyBlock, _ := pem.Decode([]byte(*bundle.Key))
	require.NotNil(t, keyBlock)
	assert.Equal(t, "PRIVATE KEY", keyBlock.Type)
	key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)
	rsaKey, ok := key.(*rsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, rsaKey.PublicKey.Equal(server.PublicKey))
}

func TestInProcessInvalidRequest(t *testing.T) {
	_, err := NewInProcess().Generate(context.Background(), Request{Namespace: "ns"})
	assert.Error(t, err)
}
