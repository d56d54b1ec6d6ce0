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

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Interface is an alias for kubernetes.Interface so fakes can stand in for it.
type Interface = kubernetes.Interface

// Clients bundles the API handles the operator needs: the typed clientset for
// secrets, leases, config maps and access reviews, and the dynamic client plus
// REST mapper for applying rendered manifests of arbitrary kinds.
type Clients struct {
	Typed   Interface
	Dynamic dynamic.Interface
	Mapper  meta.RESTMapper
	Config  *rest.Config
}

var (
	clientsOnce   sync.Once
	cachedClients *Clients
	clientsErr    error
)

// GetClients returns process-wide clients built with kubeconfig discovery,
// creating them on first call.
func GetClients() (*Clients, error) {
	clientsOnce.Do(func() {
		cachedClients, clientsErr = BuildClients("")
	})
	return cachedClients, clientsErr
}

// BuildClients creates a fresh set of clients from kubeconfig, bypassing the
// cache. An empty path falls back to KUBECONFIG, then ~/.kube/config, then
// in-cluster configuration.
func BuildClients(kubeconfig string) (*Clients, error) {
	config, err := BuildRestConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return NewClients(config)
}

// NewClients creates the typed and dynamic clients for config. The REST
// mapper discovers API groups lazily and caches them in memory.
func NewClients(config *rest.Config) (*Clients, error) {
	typed, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(typed.Discovery()))

	return &Clients{
		Typed:   typed,
		Dynamic: dyn,
		Mapper:  mapper,
		Config:  config,
	}, nil
}

// BuildRestConfig resolves the rest configuration for kubeconfig.
func BuildRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")

		if kubeconfig == "" {
			kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
			if _, err := os.Stat(kubeconfig); os.IsNotExist(err) {
				kubeconfig = ""
			}
		}
	}

	// Use InClusterConfig directly when no kubeconfig is available
	// This avoids the warning: "Neither --kubeconfig nor --master was specified"
	if kubeconfig == "" {
		config, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
		return config, nil
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build kube config from %s: %w", kubeconfig, err)
	}
	return config, nil
}
