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

package server

import (
	"net/http"
	"time"

	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

// ProbeResponse is the body of /health and /ready.
type ProbeResponse struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func probe(w http.ResponseWriter, code int, status, reason string) {
	serializer.RespondJSON(w, code, ProbeResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	})
}

// handleHealth reports liveness. The process is alive whenever it can answer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	probe(w, http.StatusOK, "healthy", "")
}

// handleReady reports not_ready until the server is serving, and whenever the
// configured readiness check fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.IsReady() {
		probe(w, http.StatusServiceUnavailable, "not_ready", "server is starting")
		return
	}
	if check := s.config.ReadinessCheck; check != nil {
		if err := check(); err != nil {
			probe(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	probe(w, http.StatusOK, "ready", "")
}
