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

package controller

import (
	"net/http"

	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

// StatusHandler serves the controller status as JSON. A BlockedOnError
// status is returned with 503 so probes and scripts can detect it.
func StatusHandler(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st := c.Status()
		code := http.StatusOK
		if st.State == StateBlockedOnError {
			code = http.StatusServiceUnavailable
		}
		serializer.RespondJSON(w, code, st)
	}
}
