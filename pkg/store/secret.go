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

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"
)

// Secret persists the bundle in a Kubernetes Secret owned by the operator.
type Secret struct {
	client       kubernetes.Interface
	namespace    string
	name         string
	fieldManager string
	labels       map[string]string
}

// NewSecret returns a Secret store for namespace/name. Writes use server-side
// apply under fieldManager.
func NewSecret(client kubernetes.Interface, namespace, name, fieldManager string, labels map[string]string) *Secret {
	return &Secret{
		client:       client,
		namespace:    namespace,
		name:         name,
		fieldManager: fieldManager,
		labels:       labels,
	}
}

// Load implements Store. A missing Secret reads as an empty bundle.
func (s *Secret) Load(ctx context.Context) (Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sStoreTimeout)
	defer cancel()

	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return Bundle{}, nil
		}
		return Bundle{}, fmt.Errorf("failed to get Secret %s/%s: %w", s.namespace, s.name, err)
	}

	data := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		data[k] = string(v)
	}
	return bundleFromData(data), nil
}

// Save implements Store.
func (s *Secret) Save(ctx context.Context, b Bundle) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sStoreTimeout)
	defer cancel()

	data := make(map[string][]byte, 3)
	for k, v := range b.toData() {
		data[k] = []byte(v)
	}

	cfg := accorev1.Secret(s.name, s.namespace).
		WithLabels(s.labels).
		WithType(corev1.SecretTypeOpaque).
		WithData(data)

	slog.Debug("applying certificate Secret",
		"namespace", s.namespace,
		"name", s.name,
		"keys", len(data))

	_, err := s.client.CoreV1().Secrets(s.namespace).Apply(ctx, cfg, metav1.ApplyOptions{
		FieldManager: s.fieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply Secret %s/%s: %w", s.namespace, s.name, err)
	}
	return nil
}
