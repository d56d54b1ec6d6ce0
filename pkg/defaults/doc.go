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

// Package defaults provides centralized configuration constants for the operator.
//
// # Categories
//
//   - Identity: application name, namespace, image and field manager
//   - Backends: certificate authority and durable store selection
//   - Server timeouts: for the health, status and metrics endpoint
//   - Kubernetes timeouts: for apply, store and status API calls
//   - Leader election: lease timings
//
// # Usage
//
//	import "github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.K8sApplyTimeout)
//	defer cancel()
//
// Certificate generation has no timeout. A hung openssl invocation blocks
// the controller until the process context is canceled.
package defaults
