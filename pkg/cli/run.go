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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/controller"
	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/leader"
	"github.com/NVIDIA/namespace-node-affinity/pkg/server"
)

// eventQueueSize bounds lifecycle events waiting for the controller.
const eventQueueSize = 16

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the operator until interrupted",
		Description: `Runs the operator as a long-lived process.

On start the operator dispatches install. With leader election enabled it
stays WaitingForLeadership until it acquires the Lease, then dispatches
leader-elected. When --settings-file is set the file is polled and
config-changed is dispatched whenever its content changes.

Health, readiness, status and metrics are served on --port (0 disables the
server). Under systemd READY=1 is sent once the loops are started.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagLeaderElection,
				Usage:   "Campaign for a Lease before mutating the cluster",
				Sources: cli.EnvVars(config.EnvLeaderElection),
				Value:   true,
			},
			&cli.IntFlag{
				Name:    flagPort,
				Usage:   "Port for health, status and metrics endpoints",
				Sources: cli.EnvVars(config.EnvPort),
				Value:   defaults.ServerPort,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			clients, err := clusterClients(cmd)
			if err != nil {
				return err
			}

			op, err := newOperator(ctx, cfg, clients, ociOptionsFrom(cmd))
			if err != nil {
				return err
			}
			return op.run(ctx)
		},
	}
}

func ociOptionsFrom(cmd *cli.Command) ociOptions {
	return ociOptions{
		plainHTTP:   cmd.Bool(flagPlainHTTP),
		insecureTLS: cmd.Bool(flagInsecureTLS),
	}
}

// run starts the server, the elector and the settings watcher, and feeds
// their events to the controller one at a time until ctx is canceled.
func (op *operator) run(ctx context.Context) error {
	events := make(chan controller.Event, eventQueueSize)

	var (
		leadership controller.Leadership = leader.Static(true)
		elector    *leader.Elector
		err        error
	)
	if op.cfg.LeaderElection.Enabled {
		elector, err = leader.NewElector(op.clients.Typed, leader.Config{
			Namespace:     op.cfg.Namespace,
			LeaseName:     op.cfg.LeaseName(),
			LeaseDuration: op.cfg.LeaderElection.LeaseDuration,
			RenewDeadline: op.cfg.LeaderElection.RenewDeadline,
			RetryPeriod:   op.cfg.LeaderElection.RetryPeriod,
			OnElected: func(ctx context.Context) {
				dispatch(ctx, events, controller.EventLeaderElected)
			},
		})
		if err != nil {
			return err
		}
		leadership = elector
	}

	ctrl, err := op.newController(leadership)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if op.cfg.Server.Port > 0 {
		srv := server.New(
			server.WithName(name),
			server.WithVersion(version),
			server.WithPort(op.cfg.Server.Port),
			server.WithHandler(map[string]http.HandlerFunc{
				"/v1/status": controller.StatusHandler(ctrl),
			}),
			server.WithReadinessCheck(readiness(ctrl)),
		)
		g.Go(func() error { return srv.Start(gctx) })
	}

	if elector != nil {
		slog.Info("leader election enabled", "lease", op.cfg.LeaseName(), "identity", elector.Identity())
		g.Go(func() error { return elector.Run(gctx) })
	}

	if op.cfg.SettingsFile != "" {
		g.Go(func() error {
			config.WatchFile(gctx, op.cfg.SettingsFile, defaults.SettingsPollInterval, func() {
				dispatch(gctx, events, controller.EventConfigChanged)
			})
			return nil
		})
	}

	g.Go(func() error { return handleEvents(gctx, ctrl, events) })

	dispatch(gctx, events, controller.EventInstall)
	sdNotify(daemon.SdNotifyReady)

	err = g.Wait()
	sdNotify(daemon.SdNotifyStopping)
	return err
}

// dispatch queues ev unless ctx is done first.
func dispatch(ctx context.Context, events chan<- controller.Event, ev controller.Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// handleEvents delivers queued events to the controller until ctx is done.
// A blocked controller is reported through its status; the loop keeps
// running so a later event can recover it.
func handleEvents(ctx context.Context, ctrl *controller.Controller, events <-chan controller.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := ctrl.Handle(ctx, ev); err != nil {
				slog.Error("lifecycle event failed", "event", ev, "error", err)
			}
		}
	}
}

func sdNotify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		slog.Debug("sd_notify sent", "state", state)
	}
}

// readiness fails while the controller is blocked on an error.
func readiness(ctrl *controller.Controller) func() error {
	return func() error {
		if st := ctrl.Status(); st.State == controller.StateBlockedOnError {
			return fmt.Errorf("controller blocked: %s", st.Message)
		}
		return nil
	}
}
