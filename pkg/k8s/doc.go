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

// Package k8s groups the operator's Kubernetes integration.
//
// # Sub-packages
//
// client: typed, dynamic and discovery-backed clients built once per process
//
//	clients, err := client.GetClients()
//	if err != nil {
//	    return err
//	}
//
// apply: server-side apply and reverse-order delete of the rendered resource set
//
//	h := apply.NewHandler(clients, apply.Options{Context: rctx, FieldManager: "nna-operator"})
//	if err := h.Apply(ctx); err != nil {
//	    return err
//	}
//
// leader: Lease based leader election
//
//	elector, err := leader.NewElector(clients.Typed, leader.Config{
//	    Namespace: "kubeflow",
//	    LeaseName: "namespace-node-affinity-leader",
//	    OnElected: func(ctx context.Context) { ... },
//	})
//
// # Authentication
//
// Clients use the kubeconfig named by --kubeconfig, then KUBECONFIG, then
// ~/.kube/config, and fall back to the in-cluster service account.
package k8s
