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

package defaults

import "time"

// Server timeouts for the health, status and metrics HTTP endpoint.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Kubernetes timeouts for K8s API operations.
const (
	// K8sApplyTimeout bounds a single server-side apply or delete request.
	// The batch as a whole is bounded only by the caller's context.
	K8sApplyTimeout = 30 * time.Second

	// K8sStoreTimeout is the timeout for reading or writing the certificate Secret.
	K8sStoreTimeout = 30 * time.Second

	// K8sStatusTimeout is the timeout for publishing the status ConfigMap.
	K8sStatusTimeout = 10 * time.Second

	// K8sPermissionCheckTimeout bounds the SelfSubjectAccessReview sweep.
	K8sPermissionCheckTimeout = 30 * time.Second
)

// Leader election timings, matching client-go recommendations.
const (
	// LeaseDuration is how long non-leaders wait before forcing acquisition.
	LeaseDuration = 30 * time.Second

	// RenewDeadline is how long the leader retries refreshing before giving up.
	RenewDeadline = 10 * time.Second

	// RetryPeriod is the wait between leader election actions.
	RetryPeriod = 5 * time.Second
)

// Watcher intervals.
const (
	// SettingsPollInterval is how often the settings file is checked for changes.
	SettingsPollInterval = 10 * time.Second
)

// OCI timeouts for template bundle transfers.
const (
	// OCIPullTimeout bounds pulling a template bundle at startup.
	OCIPullTimeout = 2 * time.Minute
)
