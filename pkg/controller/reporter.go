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
	"log/slog"

	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

// StatusKey is the ConfigMap entry the status reporter writes.
const StatusKey = "status"

// LogReporter logs each transition.
type LogReporter struct {
	Logger *slog.Logger
}

// Report implements StatusReporter.
func (r LogReporter) Report(ctx context.Context, s Status) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if s.State == StateBlockedOnError {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "controller status",
		"state", s.State,
		"message", s.Message,
		"event", s.Event,
		"eventID", s.EventID,
		"code", s.Code)
	return nil
}

// ConfigMapReporter mirrors status into a ConfigMap so it is visible with
// kubectl. Reconciling is skipped to keep API writes to settled states.
type ConfigMapReporter struct {
	writer serializer.Serializer
}

// NewConfigMapReporter reports through w, typically a serializer.ConfigMapWriter.
func NewConfigMapReporter(w serializer.Serializer) *ConfigMapReporter {
	return &ConfigMapReporter{writer: w}
}

// Report implements StatusReporter.
func (r *ConfigMapReporter) Report(ctx context.Context, s Status) error {
	if s.State == StateReconciling {
		return nil
	}
	return r.writer.Serialize(ctx, s)
}

// ReporterFunc adapts a function to StatusReporter.
type ReporterFunc func(ctx context.Context, s Status) error

// Report implements StatusReporter.
func (f ReporterFunc) Report(ctx context.Context, s Status) error { return f(ctx, s) }
