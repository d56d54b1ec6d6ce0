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
	"log/slog"
	"slices"

	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/client"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
)

// Options configures a Handler.
type Options struct {
	Logger       *slog.Logger
	Context      *render.Context
	FieldManager string
	Templates    *render.Templates
}

// Handler reconciles the rendered template set against the cluster. A
// Handler is bound to the context it was built with; a new context needs a
// new Handler.
type Handler struct {
	logger       *slog.Logger
	dynamic      dynamic.Interface
	mapper       meta.RESTMapper
	clientset    kubernetes.Interface
	templates    *render.Templates
	context      *render.Context
	fieldManager string
}

// NewHandler creates a Handler over clients.
func NewHandler(clients *client.Clients, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	templates := opts.Templates
	if templates == nil {
		templates = render.Embedded()
	}
	return &Handler{
		logger:       logger,
		dynamic:      clients.Dynamic,
		mapper:       clients.Mapper,
		clientset:    clients.Typed,
		templates:    templates,
		context:      opts.Context,
		fieldManager: opts.FieldManager,
	}
}

// Objects renders the template set into the objects Apply would send.
func (h *Handler) Objects() ([]*unstructured.Unstructured, error) {
	objs, err := h.templates.Render(h.context)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeResourceApply, "failed to render templates", err)
	}
	return objs, nil
}

// Apply server-side-applies every rendered object in template order. The
// first rejected object aborts the batch.
func (h *Handler) Apply(ctx context.Context) error {
	objs, err := h.Objects()
	if err != nil {
		return err
	}

	for _, obj := range objs {
		if err := h.applyObject(ctx, obj); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeResourceApply,
				"failed to apply rendered object", err, objectContext(obj))
		}
		h.logger.Debug("applied object",
			"kind", obj.GetKind(),
			"name", obj.GetName(),
			"namespace", obj.GetNamespace())
	}

	h.logger.Info("applied resources", "count", len(objs), "fieldManager", h.fieldManager)
	return nil
}

// Delete removes every rendered object in reverse template order. Objects
// that are already gone are skipped.
func (h *Handler) Delete(ctx context.Context) error {
	objs, err := h.Objects()
	if err != nil {
		return err
	}

	for _, obj := range slices.Backward(objs) {
		ri, err := h.resourceFor(obj)
		if err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeResourceApply,
				"failed to resolve rendered object", err, objectContext(obj))
		}
		if err := ignoreNotFound(ri.Delete(ctx, obj.GetName(), metav1.DeleteOptions{})); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeResourceApply,
				"failed to delete rendered object", err, objectContext(obj))
		}
	}

	h.logger.Info("deleted resources", "count", len(objs))
	return nil
}

func (h *Handler) applyObject(ctx context.Context, obj *unstructured.Unstructured) error {
	ri, err := h.resourceFor(obj)
	if err != nil {
		return err
	}
	_, err = ri.Apply(ctx, obj.GetName(), obj, metav1.ApplyOptions{
		FieldManager: h.fieldManager,
		Force:        true,
	})
	return err
}

// resourceFor maps obj to its dynamic resource, scoping namespaced kinds to
// the object's namespace or the context namespace when it has none.
func (h *Handler) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	mapping, err := h.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("no resource mapping for %s: %w", gvk, err)
	}

	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return h.dynamic.Resource(mapping.Resource), nil
	}

	ns := obj.GetNamespace()
	if ns == "" {
		ns, _ = h.context.Get(render.KeyNamespace)
		obj.SetNamespace(ns)
	}
	return h.dynamic.Resource(mapping.Resource).Namespace(ns), nil
}

func objectContext(obj *unstructured.Unstructured) map[string]any {
	return map[string]any{
		"kind":      obj.GetKind(),
		"name":      obj.GetName(),
		"namespace": obj.GetNamespace(),
	}
}

// ignoreNotFound returns nil if the error is "not found", otherwise returns the error.
func ignoreNotFound(err error) error {
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}
