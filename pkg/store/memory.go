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

package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Contents are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	bundle Bundle
	saves  int
}

// NewMemory returns a Memory store seeded with b.
func NewMemory(b Bundle) *Memory {
	return &Memory{bundle: cloneBundle(b)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context) (Bundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneBundle(m.bundle), nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, b Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundle = cloneBundle(b)
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func cloneBundle(b Bundle) Bundle {
	return bundleFromData(b.toData())
}
