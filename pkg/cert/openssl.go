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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// Working file names inside the private temporary directory.
const (
	fileSSLConf   = "seldon-cert-gen-ssl.conf"
	fileCAKey     = "seldon-cert-gen-ca.key"
	fileServerKey = "seldon-cert-gen-server.key"
	fileCACert    = "seldon-cert-gen-ca.crt"
	fileServerCSR = "seldon-cert-gen-server.csr"
	fileCert      = "seldon-cert-gen-cert.pem"
)

// Runner executes a single external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run implements Runner. Combined output is attached to the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// OpenSSL generates certificates by invoking the openssl binary.
type OpenSSL struct {
	// Binary is the openssl executable, looked up on PATH when not absolute.
	Binary string
	// TempDir is the parent of the private working directory. Empty uses os.TempDir.
	TempDir string
	// Runner executes openssl. Nil uses ExecRunner.
	Runner Runner
}

// NewOpenSSL returns an OpenSSL authority using binary.
func NewOpenSSL(binary string) *OpenSSL {
	return &OpenSSL{Binary: binary, Runner: ExecRunner{}}
}

// Generate implements Authority.
func (o *OpenSSL) Generate(ctx context.Context, req Request) (store.Bundle, error) {
	if err := req.Validate(); err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "invalid certificate request", err)
	}

	dir, err := os.MkdirTemp(o.TempDir, "nna-cert-gen-*")
	if err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to create working directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove certificate working directory", "dir", dir, "error", rmErr)
		}
	}()

	path := func(name string) string { return filepath.Join(dir, name) }

	if err := os.WriteFile(path(fileSSLConf), []byte(RenderSSLConfig(req)), 0o600); err != nil {
		return store.Bundle{}, apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to write ssl.conf", err)
	}

	for _, step := range opensslSteps(path) {
		slog.Debug("running openssl", "step", step.name)
		if err := o.runner().Run(ctx, o.binary(), step.args...); err != nil {
			return store.Bundle{}, apperrors.WrapWithContext(apperrors.ErrCodeCertificateGeneration,
				"openssl step failed", err, map[string]any{"step": step.name})
		}
	}

	cert, err := readPEM(path(fileCert))
	if err != nil {
		return store.Bundle{}, err
	}
	key, err := readPEM(path(fileServerKey))
	if err != nil {
		return store.Bundle{}, err
	}
	ca, err := readPEM(path(fileCACert))
	if err != nil {
		return store.Bundle{}, err
	}

	return store.NewBundle(cert, key, ca), nil
}

func (o *OpenSSL) binary() string {
	if o.Binary == "" {
		return "openssl"
	}
	return o.Binary
}

func (o *OpenSSL) runner() Runner {
	if o.Runner == nil {
		return ExecRunner{}
	}
	return o.Runner
}

type opensslStep struct {
	name string
	args []string
}

// opensslSteps lists the five invocations in order.
func opensslSteps(path func(string) string) []opensslStep {
	bits := strconv.Itoa(KeyBits)
	return []opensslStep{
		{
			name: "ca-key",
			args: []string{"genrsa", "-out", path(fileCAKey), bits},
		},
		{
			name: "server-key",
			args: []string{"genrsa", "-out", path(fileServerKey), bits},
		},
		{
			name: "ca-cert",
			args: []string{
				"req", "-x509", "-new", "-sha256", "-nodes",
				"-days", strconv.Itoa(CAValidityDays),
				"-key", path(fileCAKey),
				"-subj", "/CN=" + CACommonName,
				"-out", path(fileCACert),
			},
		},
		{
			name: "server-csr",
			args: []string{
				"req", "-new", "-sha256",
				"-key", path(fileServerKey),
				"-out", path(fileServerCSR),
				"-config", path(fileSSLConf),
			},
		},
		{
			name: "server-cert",
			args: []string{
				"x509", "-req", "-sha256",
				"-in", path(fileServerCSR),
				"-CA", path(fileCACert),
				"-CAkey", path(fileCAKey),
				"-CAcreateserial",
				"-out", path(fileCert),
				"-days", strconv.Itoa(ServerValidityDays),
				"-extensions", ExtensionSection,
				"-extfile", path(fileSSLConf),
			},
		},
	}
}

func readPEM(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.WrapWithContext(apperrors.ErrCodeCertificateGeneration,
			"missing openssl output", err, map[string]any{"file": filepath.Base(path)})
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", apperrors.NewWithContext(apperrors.ErrCodeCertificateGeneration,
			"empty openssl output", map[string]any{"file": filepath.Base(path)})
	}
	return string(raw), nil
}
