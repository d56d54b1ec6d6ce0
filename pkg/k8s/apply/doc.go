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

// Package apply reconciles the rendered webhook manifests against a cluster.
//
// A Handler renders its template set once per call and sends each object
// through server-side apply with a fixed field manager and forced ownership:
//
//	h := apply.NewHandler(clients, apply.Options{
//	    Context:      ctx,
//	    FieldManager: "nna-operator",
//	})
//	if err := h.Apply(ctx); err != nil {
//	    // err carries RESOURCE_APPLY with kind/name/namespace context
//	}
//
// Delete walks the same objects in reverse so the webhook configuration is
// removed before the workload that serves it.
//
// CheckPermissions issues a SelfSubjectAccessReview per object and verb so
// missing RBAC surfaces before the first apply.
package apply
