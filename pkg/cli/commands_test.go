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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

const testNamespace = "test-model"

// clearEnv unsets every variable loadConfig reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		config.EnvAppName, config.EnvNamespace, config.EnvPodNamespace, config.EnvImage,
		config.EnvSettingsYAML, config.EnvSettingsFile, config.EnvFieldManager,
		config.EnvCertificateBackend, config.EnvOpenSSLPath, config.EnvStorageBackend,
		config.EnvStateDir, config.EnvTemplatesRef, config.EnvLeaderElection, config.EnvPort,
		"NNA_CONFIG",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func loadWithArgs(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg     *config.Config
		loadErr error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: append(globalFlags(), runCmd().Flags...),
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, loadErr = loadConfig(c)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return cfg, loadErr
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWithArgs(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"namespace: from-file\nimage: ghcr.io/example/webhook:file\nstorageBackend: memory\n"), 0o600))

	t.Setenv(config.EnvImage, "ghcr.io/example/webhook:env")

	cfg, err := loadWithArgs(t, "--config", path, "--namespace", "from-flag", "--port", "0", "--leader-election=false")
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Namespace, "flag beats file")
	assert.Equal(t, "ghcr.io/example/webhook:env", cfg.Image, "env beats file")
	assert.Equal(t, config.StorageBackendMemory, cfg.StorageBackend, "file beats default")
	assert.Equal(t, 0, cfg.Server.Port)
	assert.False(t, cfg.LeaderElection.Enabled)
}

func TestLoadConfigInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown storage backend", []string{"--storage-backend", "etcd"}},
		{"bad image", []string{"--image", "Not A Reference"}},
		{"bad namespace", []string{"--namespace", "Bad_Namespace"}},
		{"inline and file settings", []string{"--settings-yaml", "a: 1", "--settings-file", "/tmp/s.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWithArgs(t, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
		})
	}
}

func TestTemplatesRenderCommand(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name       string
		args       []string
		wantSecret bool
	}{
		{
			name: "without certificates",
			args: []string{"templates", "render", "--format", "yaml"},
		},
		{
			name:       "with generated certificates",
			args:       []string{"templates", "render", "--generate-certs", "--format", "yaml"},
			wantSecret: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "manifests.yaml")
			args := append([]string{name,
				"--certificate-backend", config.CertificateBackendInProcess,
				"--namespace", testNamespace,
				"--settings-yaml", "kubeflow:\n  nodeSelectorTerms: []\n",
			}, tt.args...)
			args = append(args, "--output", out)

			require.NoError(t, newRootCmd().Run(context.Background(), args))

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			manifests := string(data)

			assert.Contains(t, manifests, "kind: MutatingWebhookConfiguration")
			assert.Contains(t, manifests, "namespace: "+testNamespace)
			assert.Equal(t, tt.wantSecret, strings.Contains(manifests, "kind: Secret"))
			docs := strings.Count(manifests, "---\n")
			if tt.wantSecret {
				assert.Equal(t, 8, docs)
			} else {
				assert.Equal(t, 7, docs)
			}
		})
	}
}

func TestTemplatesRenderTable(t *testing.T) {
	clearEnv(t)

	out := filepath.Join(t.TempDir(), "manifests.txt")
	require.NoError(t, newRootCmd().Run(context.Background(), []string{name,
		"--certificate-backend", config.CertificateBackendInProcess,
		"templates", "render", "--generate-certs", "--format", "table", "--output", out,
	}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "KIND"))
	assert.True(t, strings.HasPrefix(lines[1], "ServiceAccount"))
	assert.True(t, strings.HasPrefix(lines[8], "MutatingWebhookConfiguration"))
}

func TestCertsCommands(t *testing.T) {
	clearEnv(t)

	stateDir := t.TempDir()
	run := func(sub string) certSummary {
		t.Helper()
		out := filepath.Join(t.TempDir(), sub+".json")
		require.NoError(t, newRootCmd().Run(context.Background(), []string{name,
			"--storage-backend", config.StorageBackendFile,
			"--state-dir", stateDir,
			"--certificate-backend", config.CertificateBackendInProcess,
			"--namespace", testNamespace,
			"certs", sub, "--format", "json", "--output", out,
		}))
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var s certSummary
		require.NoError(t, json.Unmarshal(data, &s))
		return s
	}

	before := run("show")
	assert.False(t, before.Complete)
	assert.False(t, before.Cert.Present)
	assert.False(t, before.Key.Present)

	ensured := run("ensure")
	assert.True(t, ensured.Complete)
	assert.True(t, ensured.Key.Present)
	assert.Contains(t, ensured.Cert.DNSNames, "namespace-node-affinity."+testNamespace+".svc")
	require.NotNil(t, ensured.Cert.NotAfter)
	assert.Contains(t, ensured.Store, stateDir)

	again := run("ensure")
	require.NotNil(t, again.Cert.NotAfter)
	assert.Equal(t, *ensured.Cert.NotAfter, *again.Cert.NotAfter, "complete bundle is not regenerated")
}

func TestEventCommandArguments(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
		code apperrors.ErrorCode
	}{
		{name: "missing event", args: []string{name, "event"}},
		{name: "too many events", args: []string{name, "event", "install", "remove"}},
		{name: "unknown event", args: []string{name, "event", "explode"}, code: apperrors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newRootCmd().Run(context.Background(), tt.args)
			require.Error(t, err)
			if tt.code != "" {
				assert.True(t, apperrors.IsCode(err, tt.code))
			}
		})
	}
}

func TestDescribeCertInvalid(t *testing.T) {
	garbage := "not a certificate"
	d := describeCert(&garbage)
	assert.True(t, d.Present)
	assert.NotEmpty(t, d.Error)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(describeCert(nil)))
	assert.JSONEq(t, `{"present": false}`, buf.String())
}
