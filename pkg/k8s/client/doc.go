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

// Package client builds the Kubernetes API clients used by the operator.
//
// GetClients caches one set of clients per process. BuildClients bypasses
// the cache when an explicit kubeconfig path is given on the command line.
//
// Configuration is discovered in this order:
//   - the kubeconfig argument
//   - the KUBECONFIG environment variable
//   - ~/.kube/config, when it exists
//   - the in-cluster service account
//
// Tests construct Clients directly from client-go fakes:
//
//	c := &client.Clients{
//	    Typed:   fake.NewClientset(),
//	    Dynamic: dynamicfake.NewSimpleDynamicClient(scheme),
//	    Mapper:  meta.NewDefaultRESTMapper(nil),
//	}
package client
