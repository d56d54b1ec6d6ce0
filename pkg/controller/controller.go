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
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// Options wires a Controller to its collaborators.
type Options struct {
	Logger       *slog.Logger
	Leadership   Leadership
	Certificates CertificateEnsurer
	Store        store.Store
	Settings     SettingsSource
	Factory      HandlerFactory
	FieldManager string
	Templates    *render.Templates
	Reporters    []StatusReporter
}

// Controller turns lifecycle events into certificate, render and apply
// steps. Events are handled one at a time.
type Controller struct {
	logger       *slog.Logger
	leadership   Leadership
	certificates CertificateEnsurer
	store        store.Store
	settings     SettingsSource
	factory      HandlerFactory
	fieldManager string
	templates    *render.Templates
	reporters    []StatusReporter

	// mu serializes Handle.
	mu sync.Mutex

	handlerMu sync.Mutex
	handler   ResourceHandler

	statusMu sync.RWMutex
	status   Status
}

// New creates a Controller in the Unobserved state.
func New(opts Options) (*Controller, error) {
	if opts.Leadership == nil || opts.Certificates == nil || opts.Store == nil ||
		opts.Settings == nil || opts.Factory == nil {
		return nil, fmt.Errorf("controller requires leadership, certificates, store, settings and handler factory")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	templates := opts.Templates
	if templates == nil {
		templates = render.Embedded()
	}

	c := &Controller{
		logger:       logger,
		leadership:   opts.Leadership,
		certificates: opts.Certificates,
		store:        opts.Store,
		settings:     opts.Settings,
		factory:      opts.Factory,
		fieldManager: opts.FieldManager,
		templates:    templates,
		reporters:    opts.Reporters,
		status:       Status{State: StateUnobserved, UpdatedAt: time.Now().UTC()},
	}
	setStateGauge(StateUnobserved)
	return c, nil
}

// Status returns the most recent status.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Handle processes one lifecycle event. A non-leader only records that it
// is waiting. remove deletes the rendered resources and leaves certificates
// in place. Every other event ensures certificates and applies resources.
// The returned error is the one that left the controller BlockedOnError.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	if _, err := ParseEvent(string(ev)); err != nil {
		lifecycleEvents.WithLabelValues(string(ev), resultRejected).Inc()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	eventID := uuid.NewString()
	logger := c.logger.With("event", ev, "eventID", eventID)
	start := time.Now()

	if !c.leadership.IsLeader() {
		logger.Info("not the leader, skipping event")
		c.transition(ctx, logger, Status{
			State:   StateWaitingForLeadership,
			Message: "Waiting for leadership",
			Event:   ev,
			EventID: eventID,
		})
		lifecycleEvents.WithLabelValues(string(ev), resultWaiting).Inc()
		return nil
	}

	if ev == EventConfigChanged || ev == EventUpgrade {
		c.InvalidateResourceHandler()
	}

	var err error
	if ev == EventRemove {
		err = c.remove(ctx, logger, ev, eventID)
	} else {
		err = c.reconcile(ctx, logger, ev, eventID)
	}

	reconcileDuration.WithLabelValues(string(ev)).Observe(time.Since(start).Seconds())

	if err != nil {
		c.transition(ctx, logger, Status{
			State:   StateBlockedOnError,
			Message: err.Error(),
			Event:   ev,
			EventID: eventID,
			Code:    string(apperrors.CodeOf(err)),
		})
		lifecycleEvents.WithLabelValues(string(ev), resultBlocked).Inc()
		return err
	}

	lifecycleEvents.WithLabelValues(string(ev), resultSuccess).Inc()
	return nil
}

func (c *Controller) reconcile(ctx context.Context, logger *slog.Logger, ev Event, eventID string) error {
	c.transition(ctx, logger, Status{
		State:   StateReconciling,
		Message: "Reconciling",
		Event:   ev,
		EventID: eventID,
	})

	if err := c.certificates.Ensure(ctx); err != nil {
		return structured(apperrors.ErrCodeCertificateGeneration, "failed to ensure certificates", err)
	}

	handler, err := c.ResourceHandler(ctx)
	if err != nil {
		return err
	}

	if err := handler.Apply(ctx); err != nil {
		return structured(apperrors.ErrCodeResourceApply, "failed to apply resources", err)
	}

	c.transition(ctx, logger, Status{
		State:   StateActive,
		Message: "Active",
		Event:   ev,
		EventID: eventID,
	})
	return nil
}

func (c *Controller) remove(ctx context.Context, logger *slog.Logger, ev Event, eventID string) error {
	handler, err := c.teardownHandler(ctx, logger)
	if err != nil {
		return err
	}

	if err := handler.Delete(ctx); err != nil {
		return structured(apperrors.ErrCodeResourceApply, "failed to delete resources", err)
	}

	c.transition(ctx, logger, Status{
		State:   StateUnobserved,
		Message: "Removed",
		Event:   ev,
		EventID: eventID,
	})
	return nil
}

// teardownHandler builds an uncached handler that only needs object identity.
// settings_yaml is left out so malformed settings cannot block removal, and
// an unreadable settings source or store is tolerated as long as the source
// still reports the app name and namespace.
func (c *Controller) teardownHandler(ctx context.Context, logger *slog.Logger) (ResourceHandler, error) {
	settings, err := c.settings(ctx)
	if err != nil {
		if settings.AppName == "" || settings.Namespace == "" {
			return nil, structured(apperrors.ErrCodeConfiguration, "failed to read settings", err)
		}
		logger.Warn("settings unreadable, removing by identity", "error", err)
	}

	bundle, err := c.store.Load(ctx)
	if err != nil {
		logger.Warn("stored certificates unreadable, TLS secret is not removed", "error", err)
		bundle = store.Bundle{}
	}

	rctx, err := render.BuildContext(render.Input{
		Namespace: settings.Namespace,
		AppName:   settings.AppName,
		Image:     settings.Image,
		Bundle:    bundle,
	})
	if err != nil {
		return nil, err
	}

	handler, err := c.factory(HandlerParams{
		Logger:       c.logger,
		Context:      rctx,
		FieldManager: c.fieldManager,
		Templates:    c.templates,
	})
	if err != nil {
		return nil, structured(apperrors.ErrCodeResourceApply, "failed to build resource handler", err)
	}
	return handler, nil
}

// ResourceHandler returns the cached handler, building it on first use from
// the current settings and stored certificates. Later calls return the same
// instance until InvalidateResourceHandler is called.
func (c *Controller) ResourceHandler(ctx context.Context) (ResourceHandler, error) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	if c.handler != nil {
		return c.handler, nil
	}

	rctx, err := c.BuildContext(ctx)
	if err != nil {
		return nil, err
	}

	handler, err := c.factory(HandlerParams{
		Logger:       c.logger,
		Context:      rctx,
		FieldManager: c.fieldManager,
		Templates:    c.templates,
	})
	if err != nil {
		return nil, structured(apperrors.ErrCodeResourceApply, "failed to build resource handler", err)
	}

	c.handler = handler
	return handler, nil
}

// InvalidateResourceHandler drops the cached handler so the next call to
// ResourceHandler rebuilds the context.
func (c *Controller) InvalidateResourceHandler() {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handler = nil
}

// BuildContext derives a rendering context from the current settings and
// the stored certificate bundle.
func (c *Controller) BuildContext(ctx context.Context) (*render.Context, error) {
	settings, err := c.settings(ctx)
	if err != nil {
		return nil, structured(apperrors.ErrCodeConfiguration, "failed to read settings", err)
	}

	bundle, err := c.store.Load(ctx)
	if err != nil {
		return nil, structured(apperrors.ErrCodeCertificateGeneration, "failed to load stored certificates", err)
	}

	return render.BuildContext(render.Input{
		Namespace:    settings.Namespace,
		AppName:      settings.AppName,
		Image:        settings.Image,
		Bundle:       bundle,
		SettingsYAML: settings.SettingsYAML,
	})
}

func (c *Controller) transition(ctx context.Context, logger *slog.Logger, status Status) {
	status.UpdatedAt = time.Now().UTC()

	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()

	setStateGauge(status.State)
	logger.Debug("state transition", "state", status.State, "message", status.Message)

	for _, r := range c.reporters {
		if err := r.Report(ctx, status); err != nil {
			logger.Warn("status report failed", "state", status.State, "error", err)
		}
	}
}

// structured keeps an existing StructuredError and wraps anything else.
func structured(code apperrors.ErrorCode, msg string, err error) error {
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return apperrors.Wrap(code, msg, err)
}
