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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/NVIDIA/namespace-node-affinity/pkg/cert"
	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/controller"
	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/client"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/leader"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Namespace = testNamespace
	cfg.CertificateBackend = config.CertificateBackendInProcess
	cfg.StorageBackend = config.StorageBackendMemory
	cfg.SettingsYAML = "abc: 123"
	return cfg
}

func testMapper() meta.RESTMapper {
	m := meta.NewDefaultRESTMapper(nil)
	for _, kind := range []string{"ServiceAccount", "ConfigMap", "Secret", "Service"} {
		m.Add(schema.GroupVersionKind{Version: "v1", Kind: kind}, meta.RESTScopeNamespace)
	}
	m.Add(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, meta.RESTScopeNamespace)
	m.Add(schema.GroupVersionKind{Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "ClusterRole"}, meta.RESTScopeRoot)
	m.Add(schema.GroupVersionKind{Group: "rbac.authorization.k8s.io", Version: "v1", Kind: "ClusterRoleBinding"}, meta.RESTScopeRoot)
	m.Add(schema.GroupVersionKind{Group: "admissionregistration.k8s.io", Version: "v1", Kind: "MutatingWebhookConfiguration"}, meta.RESTScopeRoot)
	return m
}

type fakeCluster struct {
	clients *client.Clients
	typed   *fake.Clientset

	mu      sync.Mutex
	applied []string
	deleted []string
}

func newFakeCluster() *fakeCluster {
	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())
	typed := fake.NewClientset()
	fc := &fakeCluster{
		typed: typed,
		clients: &client.Clients{
			Typed:   typed,
			Dynamic: dyn,
			Mapper:  testMapper(),
		},
	}

	dyn.PrependReactor("patch", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
		pa := action.(k8stesting.PatchAction)
		obj := &unstructured.Unstructured{}
		if err := json.Unmarshal(pa.GetPatch(), &obj.Object); err != nil {
			return true, nil, err
		}
		fc.mu.Lock()
		fc.applied = append(fc.applied, obj.GetKind())
		fc.mu.Unlock()
		return true, obj, nil
	})
	dyn.PrependReactor("delete", "*", func(action k8stesting.Action) (bool, runtime.Object, error) {
		fc.mu.Lock()
		fc.deleted = append(fc.deleted, action.(k8stesting.DeleteAction).GetName())
		fc.mu.Unlock()
		return true, nil, nil
	})
	return fc
}

func (fc *fakeCluster) appliedKinds() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.applied...)
}

func newTestOperator(t *testing.T, cfg *config.Config, clients *client.Clients) *operator {
	t.Helper()
	op, err := newOperator(context.Background(), cfg, clients, ociOptions{})
	require.NoError(t, err)
	return op
}

func TestNewStore(t *testing.T) {
	clients := newFakeCluster().clients

	tests := []struct {
		name    string
		backend string
		clients *client.Clients
		want    any
		wantErr bool
	}{
		{name: "secret", backend: config.StorageBackendSecret, clients: clients, want: &store.Secret{}},
		{name: "secret without cluster", backend: config.StorageBackendSecret, wantErr: true},
		{name: "file", backend: config.StorageBackendFile, want: &store.File{}},
		{name: "memory", backend: config.StorageBackendMemory, want: &store.Memory{}},
		{name: "unknown", backend: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.StorageBackend = tt.backend
			cfg.StateDir = t.TempDir()

			st, err := newStore(cfg, tt.clients)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, st)
		})
	}
}

func TestNewAuthority(t *testing.T) {
	cfg := testConfig()

	cfg.CertificateBackend = config.CertificateBackendOpenSSL
	a, err := newAuthority(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cert.OpenSSL{}, a)

	cfg.CertificateBackend = config.CertificateBackendInProcess
	a, err = newAuthority(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cert.InProcess{}, a)

	cfg.CertificateBackend = "vault"
	_, err = newAuthority(cfg)
	require.Error(t, err)
}

func TestCertRequest(t *testing.T) {
	req := certRequest(testConfig())
	assert.Equal(t, testNamespace, req.Namespace)
	assert.Equal(t, "namespace-node-affinity", req.Service)
}

func TestSettingsSourceReadsFile(t *testing.T) {
	cfg := testConfig()
	cfg.SettingsYAML = ""
	cfg.SettingsFile = t.TempDir() + "/settings.yaml"

	s, err := settingsSource(cfg)(context.Background())
	require.Error(t, err, "missing settings file")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
	assert.Equal(t, cfg.AppName, s.AppName)
	assert.Equal(t, cfg.Namespace, s.Namespace)
	assert.Empty(t, s.SettingsYAML)
}

func TestDispatchOnceRemoveWithBrokenSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config, string)
	}{
		{"malformed inline", func(c *config.Config, _ string) { c.SettingsYAML = "a: [unclosed" }},
		{"missing file", func(c *config.Config, dir string) {
			c.SettingsYAML = ""
			c.SettingsFile = dir + "/settings.yaml"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg, t.TempDir())
			fc := newFakeCluster()
			op := newTestOperator(t, cfg, fc.clients)

			var out bytes.Buffer
			err := op.dispatchOnce(context.Background(), controller.EventRemove, dispatchOptions{
				leader: true,
				output: serializer.NewWriter(serializer.FormatYAML, &out),
			})
			require.NoError(t, err)
			assert.Contains(t, out.String(), "state: "+string(controller.StateUnobserved))

			fc.mu.Lock()
			defer fc.mu.Unlock()
			require.NotEmpty(t, fc.deleted)
			assert.Equal(t, "namespace-node-affinity", fc.deleted[0])
		})
	}
}

func TestDispatchOnceInstall(t *testing.T) {
	fc := newFakeCluster()
	op := newTestOperator(t, testConfig(), fc.clients)

	var out bytes.Buffer
	err := op.dispatchOnce(context.Background(), controller.EventInstall, dispatchOptions{
		leader: true,
		output: serializer.NewWriter(serializer.FormatJSON, &out),
	})
	require.NoError(t, err)

	var status controller.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, controller.StateActive, status.State)
	assert.Equal(t, controller.EventInstall, status.Event)

	assert.Equal(t, []string{
		"ServiceAccount", "ClusterRole", "ClusterRoleBinding", "ConfigMap",
		"Secret", "Deployment", "Service", "MutatingWebhookConfiguration",
	}, fc.appliedKinds())

	b, err := op.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, b.Complete())

	cm, err := fc.typed.CoreV1().ConfigMaps(testNamespace).Get(context.Background(),
		op.cfg.StatusConfigMapName(), metav1.GetOptions{})
	require.NoError(t, err)
	assert.Contains(t, cm.Data[controller.StatusKey+".yaml"], string(controller.StateActive))
	assert.Equal(t, "nna-operator", cm.Labels["app.kubernetes.io/managed-by"])
}

func TestDispatchOnceNotLeader(t *testing.T) {
	fc := newFakeCluster()
	op := newTestOperator(t, testConfig(), fc.clients)

	var out bytes.Buffer
	err := op.dispatchOnce(context.Background(), controller.EventInstall, dispatchOptions{
		output: serializer.NewWriter(serializer.FormatJSON, &out),
	})
	require.NoError(t, err)

	var status controller.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, controller.StateWaitingForLeadership, status.State)
	assert.Empty(t, fc.appliedKinds())
}

func TestDispatchOnceWithoutCluster(t *testing.T) {
	op := newTestOperator(t, testConfig(), nil)

	var out bytes.Buffer
	err := op.dispatchOnce(context.Background(), controller.EventUpgrade, dispatchOptions{
		leader: true,
		output: serializer.NewWriter(serializer.FormatJSON, &out),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceApply))

	var status controller.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, controller.StateBlockedOnError, status.State)
	assert.Equal(t, string(apperrors.ErrCodeResourceApply), status.Code)
}

func TestReadiness(t *testing.T) {
	op := newTestOperator(t, testConfig(), nil)
	ctrl, err := op.newController(leader.Static(true))
	require.NoError(t, err)

	check := readiness(ctrl)
	require.NoError(t, check())

	require.Error(t, ctrl.Handle(context.Background(), controller.EventInstall))
	err = check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller blocked")
}

func TestDispatchOnceRemove(t *testing.T) {
	fc := newFakeCluster()
	op := newTestOperator(t, testConfig(), fc.clients)

	var out bytes.Buffer
	err := op.dispatchOnce(context.Background(), controller.EventRemove, dispatchOptions{
		leader: true,
		wait:   true,
		output: serializer.NewWriter(serializer.FormatYAML, &out),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "state: "+string(controller.StateUnobserved))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.NotEmpty(t, fc.deleted)
	assert.Equal(t, "namespace-node-affinity", fc.deleted[0], "MutatingWebhookConfiguration goes first")
}

func TestOperatorRender(t *testing.T) {
	op := newTestOperator(t, testConfig(), nil)

	objs, err := op.render(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, objs, 7)

	objs, err = op.render(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, objs, 8)
}

func TestLoadTemplatesEmbedded(t *testing.T) {
	tmpl, err := loadTemplates(context.Background(), testConfig(), ociOptions{})
	require.NoError(t, err)
	assert.Equal(t, render.DefaultTemplateFiles, tmpl.Files())
}

func TestLoadTemplatesInvalidRef(t *testing.T) {
	cfg := testConfig()
	cfg.TemplatesRef = "::"
	_, err := loadTemplates(context.Background(), cfg, ociOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestHandleEvents(t *testing.T) {
	op := newTestOperator(t, testConfig(), nil)

	var (
		mu   sync.Mutex
		seen []controller.State
	)
	ctrl, err := controller.New(controller.Options{
		Leadership:   leader.Static(false),
		Certificates: op.certs,
		Store:        op.store,
		Settings:     settingsSource(op.cfg),
		Factory:      handlerFactory(nil),
		Reporters: []controller.StatusReporter{controller.ReporterFunc(func(_ context.Context, s controller.Status) error {
			mu.Lock()
			seen = append(seen, s.State)
			mu.Unlock()
			return nil
		})},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan controller.Event, eventQueueSize)
	done := make(chan error, 1)
	go func() { done <- handleEvents(ctx, ctrl, events) }()

	dispatch(ctx, events, controller.EventInstall)
	dispatch(ctx, events, controller.EventConfigChanged)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// dispatch after cancel must not block
	dispatch(ctx, make(chan controller.Event), controller.EventInstall)
}
