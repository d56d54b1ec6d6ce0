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

package leader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
)

// Static is a fixed leadership answer, used when election is disabled and
// by one-shot commands.
type Static bool

// IsLeader returns the fixed answer.
func (s Static) IsLeader() bool { return bool(s) }

// Config holds the lease settings for an Elector.
type Config struct {
	Namespace     string
	LeaseName     string
	Identity      string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration

	// OnElected runs each time this replica acquires the lease. ctx is
	// canceled when leadership is lost.
	OnElected func(ctx context.Context)
	// OnLost runs when this replica stops leading.
	OnLost func()
}

// Elector tracks leadership through a coordination.k8s.io Lease.
type Elector struct {
	clientset kubernetes.Interface
	cfg       Config
	leading   atomic.Bool
}

// NewElector validates cfg, filling in default durations and identity.
func NewElector(clientset kubernetes.Interface, cfg Config) (*Elector, error) {
	if cfg.Namespace == "" || cfg.LeaseName == "" {
		return nil, fmt.Errorf("lease namespace and name are required")
	}
	if cfg.Identity == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "nna-operator"
		}
		cfg.Identity = host + "_" + uuid.NewString()
	}
	if cfg.LeaseDuration == 0 {
		cfg.LeaseDuration = defaults.LeaseDuration
	}
	if cfg.RenewDeadline == 0 {
		cfg.RenewDeadline = defaults.RenewDeadline
	}
	if cfg.RetryPeriod == 0 {
		cfg.RetryPeriod = defaults.RetryPeriod
	}
	return &Elector{clientset: clientset, cfg: cfg}, nil
}

// Identity returns the holder identity written to the Lease.
func (e *Elector) Identity() string { return e.cfg.Identity }

// IsLeader reports whether this replica currently holds the lease.
func (e *Elector) IsLeader() bool { return e.leading.Load() }

// Run campaigns for the lease until ctx is canceled, re-campaigning after
// each loss. The lease is released on exit.
func (e *Elector) Run(ctx context.Context) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      e.cfg.LeaseName,
			Namespace: e.cfg.Namespace,
		},
		Client: e.clientset.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: e.cfg.Identity,
		},
	}

	le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   e.cfg.LeaseDuration,
		RenewDeadline:   e.cfg.RenewDeadline,
		RetryPeriod:     e.cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            e.cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				e.leading.Store(true)
				slog.Info("acquired leadership", "lease", e.cfg.LeaseName, "identity", e.cfg.Identity)
				if e.cfg.OnElected != nil {
					e.cfg.OnElected(ctx)
				}
			},
			OnStoppedLeading: func() {
				e.leading.Store(false)
				slog.Info("lost leadership", "lease", e.cfg.LeaseName, "identity", e.cfg.Identity)
				if e.cfg.OnLost != nil {
					e.cfg.OnLost()
				}
			},
			OnNewLeader: func(identity string) {
				if identity != e.cfg.Identity {
					slog.Debug("observed leader", "lease", e.cfg.LeaseName, "leader", identity)
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create leader elector: %w", err)
	}

	for ctx.Err() == nil {
		le.Run(ctx)
	}
	return nil
}
