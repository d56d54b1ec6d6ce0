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

// Package config loads the operator configuration.
//
// Values are layered: built-in defaults, then an optional YAML or JSON file,
// then NNA_* environment variables, then command-line flags applied by the
// CLI. Validate reports every problem at once as a CONFIGURATION error.
//
//	appName: namespace-node-affinity
//	namespace: kubeflow
//	image: ghcr.io/nvidia/namespace-node-affinity-webhook:v0.1.0
//	settingsFile: /etc/nna/settings.yaml
//	storageBackend: secret
//	leaderElection:
//	  enabled: true
//	  leaseDuration: 30s
//
// A server port of 0 disables the HTTP endpoint.
package config
