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

package cert

import (
	"context"
	"log/slog"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// Manager keeps the stored bundle complete.
type Manager struct {
	authority Authority
	store     store.Store
	request   Request
}

// NewManager returns a Manager that fills st using authority for req.
func NewManager(authority Authority, st store.Store, req Request) *Manager {
	return &Manager{
		authority: authority,
		store:     st,
		request:   req,
	}
}

// Ensure generates and stores a fresh bundle when the stored one is incomplete.
// A complete bundle is left alone and the authority is not called. On any
// failure the store is not written.
func (m *Manager) Ensure(ctx context.Context) error {
	current, err := m.store.Load(ctx)
	if err != nil {
		certificateGenerations.WithLabelValues(resultError).Inc()
		return apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to load stored certificates", err)
	}

	if current.Complete() {
		slog.Debug("stored certificates complete", "namespace", m.request.Namespace)
		certificateGenerations.WithLabelValues(resultSkipped).Inc()
		return nil
	}

	slog.Info("generating webhook certificates",
		"namespace", m.request.Namespace,
		"service", m.request.Service,
		"partial", !current.Empty())

	bundle, err := m.authority.Generate(ctx, m.request)
	if err != nil {
		certificateGenerations.WithLabelValues(resultError).Inc()
		if apperrors.IsCode(err, apperrors.ErrCodeCertificateGeneration) {
			return err
		}
		return apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "certificate generation failed", err)
	}
	if !bundle.Complete() {
		certificateGenerations.WithLabelValues(resultError).Inc()
		return apperrors.New(apperrors.ErrCodeCertificateGeneration, "authority returned an incomplete bundle")
	}

	if err := m.store.Save(ctx, bundle); err != nil {
		certificateGenerations.WithLabelValues(resultError).Inc()
		return apperrors.Wrap(apperrors.ErrCodeCertificateGeneration, "failed to store certificates", err)
	}

	certificateGenerations.WithLabelValues(resultGenerated).Inc()
	slog.Info("webhook certificates stored", "namespace", m.request.Namespace)
	return nil
}
