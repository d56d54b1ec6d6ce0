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

// Package cli implements the command-line interface for the Namespace Node
// Affinity operator, nna-operator.
//
// # Overview
//
// The operator keeps the Namespace Node Affinity admission webhook deployed:
// it generates the webhook serving certificate, renders the resource set
// from templates and server-side applies it. Lifecycle events drive every
// change and only the elected leader mutates the cluster.
//
// # Commands
//
// run - Long-running operator:
//
//	nna-operator run [--leader-election=true] [--port 8080]
//
// Dispatches install at start, leader-elected on Lease acquisition and
// config-changed when --settings-file content changes. Serves /health,
// /ready, /status and /metrics.
//
// event - One-shot lifecycle event:
//
//	nna-operator event install|config-changed|leader-elected|upgrade|remove [--leader] [--wait]
//
// Exits non-zero when the controller ends BlockedOnError.
//
// certs - Certificate lifecycle:
//
//	nna-operator certs ensure
//	nna-operator certs show --format json
//
// templates - Resource templates:
//
//	nna-operator templates render [--generate-certs]
//	nna-operator templates push --ref oci://registry/repo:tag [--dir DIR]
//	nna-operator templates pull --ref oci://registry/repo:tag --dir DIR
//
// status - Last published controller status:
//
//	nna-operator status [--format table|yaml|json]
//
// # Configuration
//
// Settings are layered: the --config file, then NNA_* environment variables,
// then explicitly set flags. Every flag has an NNA_* equivalent, for example
// --image and NNA_IMAGE.
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, blocked controller)
//	2  Context canceled or timeout
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/namespace-node-affinity/pkg/cli.version=1.0.0'"
package cli
