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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
)

// ConfigMapWriter writes serialized data to a Kubernetes ConfigMap with
// server-side apply. The ConfigMap holds:
//   - data.<key>.<ext>: the serialized content
//   - data.format: the format used
//   - data.timestamp: RFC 3339 time of the write
type ConfigMapWriter struct {
	clientset    kubernetes.Interface
	namespace    string
	name         string
	key          string
	fieldManager string
	format       Format
	labels       map[string]string
}

// NewConfigMapWriter creates a ConfigMapWriter for namespace/name. key names
// the content entry; format table is stored as text.
func NewConfigMapWriter(clientset kubernetes.Interface, namespace, name, key, fieldManager string, format Format) *ConfigMapWriter {
	return &ConfigMapWriter{
		clientset:    clientset,
		namespace:    namespace,
		name:         name,
		key:          key,
		fieldManager: fieldManager,
		format:       normalize(format),
	}
}

// WithLabels sets labels applied to the ConfigMap.
func (w *ConfigMapWriter) WithLabels(labels map[string]string) *ConfigMapWriter {
	w.labels = labels
	return w
}

// Serialize writes v to the ConfigMap.
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.K8sStatusTimeout)
	defer cancel()

	content, err := Marshal(w.format, v)
	if err != nil {
		return err
	}

	cm := accorev1.ConfigMap(w.name, w.namespace).
		WithData(map[string]string{
			w.key + "." + w.format.Extension(): string(content),
			"format":                           string(w.format),
			"timestamp":                        time.Now().UTC().Format(time.RFC3339),
		})
	if len(w.labels) > 0 {
		cm = cm.WithLabels(w.labels)
	}

	// Force takes ownership from a previous field manager.
	_, err = w.clientset.CoreV1().ConfigMaps(w.namespace).Apply(writeCtx, cm, metav1.ApplyOptions{
		FieldManager: w.fieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}

	slog.Debug("configmap written", "namespace", w.namespace, "name", w.name, "format", w.format)
	return nil
}

// ParseConfigMapURI parses cm://namespace/name.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}

	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])
	if namespace == "" || name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace and name are required, got %s", uri)
	}
	return namespace, name, nil
}
