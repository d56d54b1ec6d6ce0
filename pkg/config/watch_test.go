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

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	h, err := FileHash(path)
	require.NoError(t, err)
	assert.Empty(t, h, "missing file hashes to empty")

	require.NoError(t, os.WriteFile(path, []byte("kubeflow: {}\n"), 0o600))
	first, err := FileHash(path)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte("someother: {}\n"), 0o600))
	changed, err := FileHash(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestWatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan struct{})
	go func() {
		WatchFile(ctx, path, 10*time.Millisecond, func() { changes.Add(1) })
		close(done)
	}()

	// unchanged content never fires
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), changes.Load())

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o600))
	require.Eventually(t, func() bool { return changes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchFile did not return after cancel")
	}
}
