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
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
)

// State is the controller's externally visible lifecycle state.
type State string

const (
	StateUnobserved           State = "Unobserved"
	StateWaitingForLeadership State = "WaitingForLeadership"
	StateReconciling          State = "Reconciling"
	StateActive               State = "Active"
	StateBlockedOnError       State = "BlockedOnError"
)

// States lists every state in display order.
var States = []State{
	StateUnobserved,
	StateWaitingForLeadership,
	StateReconciling,
	StateActive,
	StateBlockedOnError,
}

// Event is a lifecycle notification delivered by the host.
type Event string

const (
	EventInstall       Event = "install"
	EventConfigChanged Event = "config-changed"
	EventLeaderElected Event = "leader-elected"
	EventUpgrade       Event = "upgrade"
	EventRemove        Event = "remove"
)

// Events lists every lifecycle event.
var Events = []Event{
	EventInstall,
	EventConfigChanged,
	EventLeaderElected,
	EventUpgrade,
	EventRemove,
}

// ParseEvent converts a host-supplied name into an Event.
func ParseEvent(name string) (Event, error) {
	for _, e := range Events {
		if string(e) == name {
			return e, nil
		}
	}
	return "", apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown lifecycle event %q", name),
		map[string]any{"event": name})
}

// Status is the state plus the message shown to operators.
type Status struct {
	State     State     `json:"state" yaml:"state"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Event     Event     `json:"event,omitempty" yaml:"event,omitempty"`
	EventID   string    `json:"eventId,omitempty" yaml:"eventId,omitempty"`
	Code      string    `json:"code,omitempty" yaml:"code,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Leadership reports whether this unit may mutate the cluster.
type Leadership interface {
	IsLeader() bool
}

// StatusReporter publishes status transitions.
type StatusReporter interface {
	Report(ctx context.Context, status Status) error
}

// CertificateEnsurer makes sure a complete certificate bundle is stored.
type CertificateEnsurer interface {
	Ensure(ctx context.Context) error
}

// ResourceHandler reconciles the rendered resource set.
type ResourceHandler interface {
	Apply(ctx context.Context) error
	Delete(ctx context.Context) error
}

// HandlerParams is everything a HandlerFactory needs to build a handler.
type HandlerParams struct {
	Logger       *slog.Logger
	Context      *render.Context
	FieldManager string
	Templates    *render.Templates
}

// HandlerFactory builds a ResourceHandler.
type HandlerFactory func(HandlerParams) (ResourceHandler, error)

// Settings are the configuration inputs to the rendering context.
type Settings struct {
	AppName      string
	Namespace    string
	Image        string
	SettingsYAML string
}

// SettingsSource returns the current settings. It is called each time a
// handler is built so reloaded configuration is picked up. When reading
// SettingsYAML fails, a source should still fill in the identity fields.
type SettingsSource func(ctx context.Context) (Settings, error)

// StaticSettings returns a SettingsSource that always yields s.
func StaticSettings(s Settings) SettingsSource {
	return func(context.Context) (Settings, error) { return s, nil }
}
