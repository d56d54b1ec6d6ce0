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

package apply

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
)

// rolloutPollInterval is how often WaitForRollout re-reads the Deployment.
const rolloutPollInterval = 2 * time.Second

// WaitForRollout waits until the webhook Deployment reports the Available
// condition or timeout elapses.
func (h *Handler) WaitForRollout(ctx context.Context, timeout time.Duration) error {
	name, _ := h.context.Get(render.KeyAppName)
	namespace, _ := h.context.Get(render.KeyNamespace)

	var last string
	err := wait.PollUntilContextTimeout(ctx, rolloutPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		deploy, err := h.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			last = err.Error()
			return false, nil
		}
		for _, c := range deploy.Status.Conditions {
			if c.Type != appsv1.DeploymentAvailable {
				continue
			}
			if c.Status == corev1.ConditionTrue {
				return true, nil
			}
			last = c.Message
		}
		return false, nil
	})
	if err != nil {
		if last != "" {
			return fmt.Errorf("deployment %s/%s not available after %v: %s", namespace, name, timeout, last)
		}
		return fmt.Errorf("deployment %s/%s not available after %v: %w", namespace, name, timeout, err)
	}

	h.logger.Info("webhook deployment available", "name", name, "namespace", namespace)
	return nil
}
