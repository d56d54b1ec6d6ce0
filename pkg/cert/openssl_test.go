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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

// fakeRunner records invocations and writes a placeholder PEM to every -out path.
type fakeRunner struct {
	calls  [][]string
	failAt int    // 1-based call index that fails; 0 never fails
	skip   string // base name of an output file that is never written
	seen   string // working directory observed on the first call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.failAt == len(f.calls) {
		return errors.New("exit status 1")
	}
	for i, a := range args {
		if a != "-out" || i+1 >= len(args) {
			continue
		}
		out := args[i+1]
		if f.seen == "" {
			f.seen = filepath.Dir(out)
		}
		if filepath.Base(out) == f.skip {
			continue
		}
		content := fmt.Sprintf("-----BEGIN %s-----\n%s\n-----END %s-----\n",
			"PEM", filepath.Base(out), "PEM")
		if err := os.WriteFile(out, []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func testRequest() Request {
	return Request{Namespace: "test-model", Service: "namespace-node-affinity"}
}

func TestOpenSSLGenerate(t *testing.T) {
	parent := t.TempDir()
	runner := &fakeRunner{}
	o := &OpenSSL{Binary: "/usr/bin/openssl", TempDir: parent, Runner: runner}

	bundle, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, bundle.Complete())

	assert.Contains(t, *bundle.Cert, fileCert)
	assert.Contains(t, *bundle.Key, fileServerKey)
	assert.Contains(t, *bundle.CA, fileCACert)

	require.Len(t, runner.calls, 5)
	dir := runner.seen
	p := func(name string) string { return filepath.Join(dir, name) }

	want := [][]string{
		{"/usr/bin/openssl", "genrsa", "-out", p(fileCAKey), "2048"},
		{"/usr/bin/openssl", "genrsa", "-out", p(fileServerKey), "2048"},
		{"/usr/bin/openssl", "req", "-x509", "-new", "-sha256", "-nodes", "-days", "3650",
			"-key", p(fileCAKey), "-subj", "/CN=127.0.0.1", "-out", p(fileCACert)},
		{"/usr/bin/openssl", "req", "-new", "-sha256", "-key", p(fileServerKey),
			"-out", p(fileServerCSR), "-config", p(fileSSLConf)},
		{"/usr/bin/openssl", "x509", "-req", "-sha256", "-in", p(fileServerCSR),
			"-CA", p(fileCACert), "-CAkey", p(fileCAKey), "-CAcreateserial",
			"-out", p(fileCert), "-days", "365", "-extensions", "v3_ext", "-extfile", p(fileSSLConf)},
	}
	assert.Equal(t, want, runner.calls)

	// working directory is gone after success
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
	assertDirEmpty(t, parent)
}

func TestOpenSSLGenerateFailures(t *testing.T) {
	tests := []struct {
		name      string
		runner    *fakeRunner
		wantCalls int
		wantMsg   string
	}{
		{
			name:      "ca key fails",
			runner:    &fakeRunner{failAt: 1},
			wantCalls: 1,
			wantMsg:   "openssl step failed",
		},
		{
			name:      "csr fails",
			runner:    &fakeRunner{failAt: 4},
			wantCalls: 4,
			wantMsg:   "openssl step failed",
		},
		{
			name:      "signing fails",
			runner:    &fakeRunner{failAt: 5},
			wantCalls: 5,
			wantMsg:   "openssl step failed",
		},
		{
			name:      "server certificate never written",
			runner:    &fakeRunner{skip: fileCert},
			wantCalls: 5,
			wantMsg:   "missing openssl output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			o := &OpenSSL{TempDir: parent, Runner: tt.runner}

			bundle, err := o.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCertificateGeneration))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, bundle.Empty(), "no partial bundle on failure")
			assert.Len(t, tt.runner.calls, tt.wantCalls)
			assertDirEmpty(t, parent)
		})
	}
}

func TestOpenSSLGenerateInvalidRequest(t *testing.T) {
	runner := &fakeRunner{}
	o := &OpenSSL{TempDir: t.TempDir(), Runner: runner}

	_, err := o.Generate(context.Background(), Request{Service: "svc"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCertificateGeneration))
	assert.Empty(t, runner.calls)
}

func TestOpenSSLDefaultBinary(t *testing.T) {
	runner := &fakeRunner{}
	o := &OpenSSL{TempDir: t.TempDir(), Runner: runner}

	_, err := o.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	for _, call := range runner.calls {
		assert.Equal(t, "openssl", call[0])
	}
}

func TestRenderSSLConfig(t *testing.T) {
	conf := RenderSSLConfig(testRequest())

	assert.NotContains(t, conf, "{{")
	assert.Contains(t, conf, "[ v3_ext ]")
	assert.Contains(t, conf, "DNS.3 = namespace-node-affinity.test-model.svc\n")
	assert.Contains(t, conf, "CN = namespace-node-affinity.test-model.svc\n")
	assert.Equal(t, 1, strings.Count(conf, "[ alt_names ]"))
}

func TestRequestDNSNames(t *testing.T) {
	assert.Equal(t, []string{
		"namespace-node-affinity",
		"namespace-node-affinity.test-model",
		"namespace-node-affinity.test-model.svc",
		"namespace-node-affinity.test-model.svc.cluster.local",
	}, testRequest().DNSNames())
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary working directory must be removed")
}
