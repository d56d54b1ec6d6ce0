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
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/namespace-node-affinity/pkg/controller"
	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/apply"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/leader"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

const (
	flagLeader           = "leader"
	flagWait             = "wait"
	flagTimeout          = "timeout"
	flagCheckPermissions = "check-permissions"
)

// rolloutWaiter is implemented by apply.Handler.
type rolloutWaiter interface {
	WaitForRollout(ctx context.Context, timeout time.Duration) error
}

// permissionChecker is implemented by apply.Handler.
type permissionChecker interface {
	CheckPermissions(ctx context.Context) ([]apply.PermissionCheck, error)
}

func eventNames() []string {
	names := make([]string, 0, len(controller.Events))
	for _, e := range controller.Events {
		names = append(names, string(e))
	}
	return names
}

func eventCmd() *cli.Command {
	return &cli.Command{
		Name:      "event",
		Usage:     "Dispatch a single lifecycle event and print the resulting status",
		ArgsUsage: "<" + strings.Join(eventNames(), "|") + ">",
		Description: `Delivers one lifecycle event to a fresh controller and exits.

The exit code is non-zero when the controller ends BlockedOnError. The final
status is printed in the selected format.

# Examples

Install with inline settings:
  nna-operator event install --settings-yaml 'kubeflow: "{nodeSelectorTerms: []}"'

Remove the webhook resources, keeping certificates:
  nna-operator event remove`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagLeader,
				Usage: "Treat this invocation as the leader",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  flagCheckPermissions,
				Usage: "Verify patch and delete access for every rendered object first",
			},
			&cli.BoolFlag{
				Name:  flagWait,
				Usage: "Wait for the webhook Deployment to become available",
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "Timeout for --wait",
				Value: 2 * time.Minute,
			},
			formatFlag(),
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one event, one of: %s", strings.Join(eventNames(), ", "))
			}
			ev, err := controller.ParseEvent(cmd.Args().First())
			if err != nil {
				return err
			}
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

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

			return op.dispatchOnce(ctx, ev, dispatchOptions{
				leader:           cmd.Bool(flagLeader),
				checkPermissions: cmd.Bool(flagCheckPermissions),
				wait:             cmd.Bool(flagWait),
				timeout:          cmd.Duration(flagTimeout),
				output:           serializer.NewFileWriterOrStdout(outFormat, cmd.String(flagOutput)),
			})
		},
	}
}

type dispatchOptions struct {
	leader           bool
	checkPermissions bool
	wait             bool
	timeout          time.Duration
	output           serializer.Serializer
}

// dispatchOnce handles ev on a new controller and writes the final status.
// The returned error is the controller's when it blocked.
func (op *operator) dispatchOnce(ctx context.Context, ev controller.Event, o dispatchOptions) error {
	if closer, ok := o.output.(serializer.Closer); ok {
		defer closer.Close()
	}

	ctrl, err := op.newController(leader.Static(o.leader))
	if err != nil {
		return err
	}

	if o.checkPermissions && o.leader {
		if err := op.preflight(ctx, ctrl); err != nil {
			return err
		}
	}

	handleErr := ctrl.Handle(ctx, ev)

	if handleErr == nil && o.wait && o.leader && ev != controller.EventRemove {
		if err := waitForRollout(ctx, ctrl, o.timeout); err != nil {
			return err
		}
	}

	if err := o.output.Serialize(ctx, ctrl.Status()); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return handleErr
}

// preflight ensures certificates so the Secret is part of the rendered set,
// then checks access for every object the handler would touch.
func (op *operator) preflight(ctx context.Context, ctrl *controller.Controller) error {
	if err := op.certs.Ensure(ctx); err != nil {
		return err
	}
	rh, err := ctrl.ResourceHandler(ctx)
	if err != nil {
		return err
	}
	pc, ok := rh.(permissionChecker)
	if !ok {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaults.K8sPermissionCheckTimeout)
	defer cancel()

	checks, err := pc.CheckPermissions(checkCtx)
	if err != nil {
		return err
	}
	slog.Info("permission check passed", "checks", len(checks))
	return nil
}

func waitForRollout(ctx context.Context, ctrl *controller.Controller, timeout time.Duration) error {
	rh, err := ctrl.ResourceHandler(ctx)
	if err != nil {
		return err
	}
	w, ok := rh.(rolloutWaiter)
	if !ok {
		return nil
	}
	return w.WaitForRollout(ctx, timeout)
}
