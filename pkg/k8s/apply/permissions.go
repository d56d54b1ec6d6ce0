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
	"strings"

	authv1 "k8s.io/api/authorization/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
)

// PermissionCheck represents a single permission check result.
type PermissionCheck struct {
	Group     string
	Resource  string
	Name      string
	Verb      string
	Namespace string
	Allowed   bool
	Reason    string
}

// requiredVerbs are the verbs Apply and Delete issue per object.
var requiredVerbs = []string{"patch", "delete"}

// CheckPermissions verifies that the current identity may apply and delete
// every rendered object. It returns every check it made and an error listing
// the denied ones.
func (h *Handler) CheckPermissions(ctx context.Context) ([]PermissionCheck, error) {
	objs, err := h.Objects()
	if err != nil {
		return nil, err
	}

	var checks []PermissionCheck
	var missing []string

	for _, obj := range objs {
		attrs, err := h.resourceAttributes(obj)
		if err != nil {
			return checks, err
		}

		for _, verb := range requiredVerbs {
			a := *attrs
			a.Verb = verb

			allowed, reason, err := h.checkPermission(ctx, &a)
			if err != nil {
				return checks, fmt.Errorf("failed to check permission for %s %s: %w", verb, a.Resource, err)
			}

			checks = append(checks, PermissionCheck{
				Group:     a.Group,
				Resource:  a.Resource,
				Name:      a.Name,
				Verb:      verb,
				Namespace: a.Namespace,
				Allowed:   allowed,
				Reason:    reason,
			})

			if !allowed {
				scope := "cluster-scoped"
				if a.Namespace != "" {
					scope = fmt.Sprintf("namespace %q", a.Namespace)
				}
				missing = append(missing, fmt.Sprintf("%s %s/%s (%s)", verb, a.Resource, a.Name, scope))
			}
		}
	}

	if len(missing) > 0 {
		return checks, fmt.Errorf("missing required permissions:\n  - %s",
			strings.Join(missing, "\n  - "))
	}

	return checks, nil
}

func (h *Handler) resourceAttributes(obj *unstructured.Unstructured) (*authv1.ResourceAttributes, error) {
	gvk := obj.GroupVersionKind()
	mapping, err := h.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("no resource mapping for %s: %w", gvk, err)
	}

	attrs := &authv1.ResourceAttributes{
		Group:    mapping.Resource.Group,
		Version:  mapping.Resource.Version,
		Resource: mapping.Resource.Resource,
		Name:     obj.GetName(),
	}
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		attrs.Namespace = obj.GetNamespace()
		if attrs.Namespace == "" {
			attrs.Namespace, _ = h.context.Get(render.KeyNamespace)
		}
	}
	return attrs, nil
}

// checkPermission checks if the current user can perform the specified action.
func (h *Handler) checkPermission(ctx context.Context, attrs *authv1.ResourceAttributes) (bool, string, error) {
	review := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: attrs,
		},
	}

	result, err := h.clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, "", err
	}

	return result.Status.Allowed, result.Status.Reason, nil
}
