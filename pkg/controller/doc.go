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

// Package controller implements the webhook lifecycle state machine.
//
// The host delivers typed events (install, config-changed, leader-elected,
// upgrade, remove) to Controller.Handle. A replica that is not the leader
// only records WaitingForLeadership. The leader ensures certificates, builds
// the rendering context and applies resources through a cached
// ResourceHandler, ending Active or BlockedOnError:
//
//	Unobserved ──event──▶ Reconciling ──ok──▶ Active
//	     ▲                     │
//	     │ remove              └──error──▶ BlockedOnError
//
// The handler is built once by a HandlerFactory and reused. config-changed
// and upgrade drop it first so new settings and images reach the templates.
package controller
