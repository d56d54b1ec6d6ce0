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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/namespace-node-affinity/pkg/cert"
	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/controller"
	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/apply"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/client"
	"github.com/NVIDIA/namespace-node-affinity/pkg/oci"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// ociOptions carries registry transport flags.
type ociOptions struct {
	plainHTTP   bool
	insecureTLS bool
}

// operator holds the collaborators built from one configuration.
type operator struct {
	cfg       *config.Config
	clients   *client.Clients
	store     store.Store
	certs     *cert.Manager
	templates *render.Templates
}

// managedLabels are set on every object the operator writes outside the
// rendered template set.
func managedLabels(cfg *config.Config) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       cfg.AppName,
		"app.kubernetes.io/managed-by": defaults.FieldManager,
	}
}

// newOperator builds clients, the certificate store and manager, and loads
// templates. clients is nil when the configuration needs no cluster access.
func newOperator(ctx context.Context, cfg *config.Config, clients *client.Clients, o ociOptions) (*operator, error) {
	st, err := newStore(cfg, clients)
	if err != nil {
		return nil, err
	}
	authority, err := newAuthority(cfg)
	if err != nil {
		return nil, err
	}
	templates, err := loadTemplates(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	return &operator{
		cfg:       cfg,
		clients:   clients,
		store:     st,
		certs:     cert.NewManager(authority, st, certRequest(cfg)),
		templates: templates,
	}, nil
}

// newStore returns the certificate store selected by StorageBackend.
func newStore(cfg *config.Config, clients *client.Clients) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendSecret:
		if clients == nil {
			return nil, apperrors.New(apperrors.ErrCodeConfiguration, "secret storage backend requires cluster access")
		}
		return store.NewSecret(clients.Typed, cfg.Namespace, cfg.CertificateSecretName(),
			cfg.FieldManager, managedLabels(cfg)), nil
	case config.StorageBackendFile:
		return store.NewFile(cfg.StateDir), nil
	case config.StorageBackendMemory:
		return store.NewMemory(store.Bundle{}), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("unknown storage backend %q", cfg.StorageBackend))
	}
}

// newAuthority returns the certificate authority selected by CertificateBackend.
func newAuthority(cfg *config.Config) (cert.Authority, error) {
	switch cfg.CertificateBackend {
	case config.CertificateBackendOpenSSL:
		return cert.NewOpenSSL(cfg.OpenSSLPath), nil
	case config.CertificateBackendInProcess:
		return cert.NewInProcess(), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("unknown certificate backend %q", cfg.CertificateBackend))
	}
}

// certRequest names the webhook Service the certificate is issued for. The
// Service shares the application name.
func certRequest(cfg *config.Config) cert.Request {
	return cert.Request{Namespace: cfg.Namespace, Service: cfg.AppName}
}

// loadTemplates returns the embedded templates, or pulls TemplatesRef into
// <stateDir>/templates/<tag> and reads from there.
func loadTemplates(ctx context.Context, cfg *config.Config, o ociOptions) (*render.Templates, error) {
	if cfg.TemplatesRef == "" {
		return render.Embedded(), nil
	}

	ref, err := oci.ParseReference(cfg.TemplatesRef)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "invalid templatesRef", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, defaults.OCIPullTimeout)
	defer cancel()

	target := filepath.Join(cfg.StateDir, "templates", ref.Tag)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "failed to prepare template directory", err)
	}
	res, err := oci.Pull(pullCtx, oci.PullOptions{
		Reference:   ref,
		TargetDir:   target,
		PlainHTTP:   o.plainHTTP,
		InsecureTLS: o.insecureTLS,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "failed to pull templates", err)
	}

	slog.Info("using pulled templates", "reference", ref.String(), "digest", res.Digest, "dir", res.Dir)
	return render.FromDir(res.Dir), nil
}

// settingsSource reads settings on every call so run picks up an edited
// settings file when the handler is rebuilt.
func settingsSource(cfg *config.Config) controller.SettingsSource {
	return func(context.Context) (controller.Settings, error) {
		s := controller.Settings{
			AppName:   cfg.AppName,
			Namespace: cfg.Namespace,
			Image:     cfg.Image,
		}
		yaml, err := cfg.ReadSettings()
		if err != nil {
			return s, err
		}
		s.SettingsYAML = yaml
		return s, nil
	}
}

// handlerFactory builds apply.Handlers over clients.
func handlerFactory(clients *client.Clients) controller.HandlerFactory {
	return func(p controller.HandlerParams) (controller.ResourceHandler, error) {
		if clients == nil {
			return nil, apperrors.New(apperrors.ErrCodeResourceApply, "cluster access is required to apply resources")
		}
		return apply.NewHandler(clients, apply.Options{
			Logger:       p.Logger,
			Context:      p.Context,
			FieldManager: p.FieldManager,
			Templates:    p.Templates,
		}), nil
	}
}

// newController wires the operator into a Controller. Status goes to the
// log and, with cluster access, to the <app>-status ConfigMap.
func (op *operator) newController(leadership controller.Leadership) (*controller.Controller, error) {
	reporters := []controller.StatusReporter{controller.LogReporter{}}
	if op.clients != nil {
		w := serializer.NewConfigMapWriter(op.clients.Typed, op.cfg.Namespace, op.cfg.StatusConfigMapName(),
			controller.StatusKey, op.cfg.FieldManager, serializer.FormatYAML).
			WithLabels(managedLabels(op.cfg))
		reporters = append(reporters, controller.NewConfigMapReporter(w))
	}

	return controller.New(controller.Options{
		Leadership:   leadership,
		Certificates: op.certs,
		Store:        op.store,
		Settings:     settingsSource(op.cfg),
		Factory:      handlerFactory(op.clients),
		FieldManager: op.cfg.FieldManager,
		Templates:    op.templates,
		Reporters:    reporters,
	})
}

// clusterClients returns the process-wide clients, or dedicated ones when
// --kubeconfig is given.
func clusterClients(cmd *cli.Command) (*client.Clients, error) {
	var (
		clients *client.Clients
		err     error
	)
	if kubeconfig := cmd.String(flagKubeconfig); kubeconfig != "" {
		clients, err = client.BuildClients(kubeconfig)
	} else {
		clients, err = client.GetClients()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes clients: %w", err)
	}
	return clients, nil
}

// clientsFor builds cluster clients only when cfg keeps certificates in a Secret.
func clientsFor(cmd *cli.Command, cfg *config.Config) (*client.Clients, error) {
	if cfg.StorageBackend != config.StorageBackendSecret {
		return nil, nil
	}
	return clusterClients(cmd)
}
