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

// Package store persists the webhook certificate bundle.
//
// A Bundle carries three optional PEM fields (cert, key, ca). Absent keys
// load as nil rather than as empty strings, so callers can tell "never
// generated" apart from "generated but empty". Every backend replaces the
// whole bundle on Save.
//
// Backends:
//   - Secret: a Kubernetes Secret written with server-side apply
//   - File: a YAML document in a local state directory
//   - Memory: in-process, for tests and dry runs
package store
