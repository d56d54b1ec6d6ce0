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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// FileHash returns the hex SHA-256 of path's content. A missing file hashes
// to "" so that its later creation counts as a change.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WatchFile polls path every interval until ctx is done and calls onChange
// whenever its content hash differs from the previous poll. The first poll
// only records the baseline. Read errors are logged and the previous hash
// is kept.
func WatchFile(ctx context.Context, path string, interval time.Duration, onChange func()) {
	last, err := FileHash(path)
	if err != nil {
		slog.Warn("failed to read watched file", "path", path, "error", err)
	}

	wait.UntilWithContext(ctx, func(context.Context) {
		current, err := FileHash(path)
		if err != nil {
			slog.Warn("failed to read watched file", "path", path, "error", err)
			return
		}
		if current == last {
			return
		}
		slog.Info("watched file changed", "path", path)
		last = current
		onChange()
	}, interval)
}
