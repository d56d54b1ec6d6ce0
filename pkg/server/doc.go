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

// Package server exposes the operator's HTTP endpoint.
//
// Routes:
//   - GET /health: liveness, always 200
//   - GET /ready: 200 once Start has been called, 503 otherwise
//   - GET /metrics: Prometheus exposition
//   - any route added with WithHandler, e.g. /v1/status
//
// Added routes run behind a middleware chain: request metrics, request IDs
// (X-Request-Id), panic recovery, a token-bucket rate limiter
// (golang.org/x/time/rate) and debug request logging.
//
//	srv := server.New(
//	    server.WithName("nna-operator"),
//	    server.WithVersion(version),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/status": controller.StatusHandler(ctrl),
//	    }),
//	)
//	err := srv.Start(ctx)
package server
