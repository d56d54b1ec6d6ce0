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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the state document inside the state directory.
const FileName = "certs.yaml"

// File persists the bundle as a YAML document on local disk.
type File struct {
	path string
}

// NewFile returns a File store rooted at dir.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, FileName)}
}

// Path returns the location of the state document.
func (f *File) Path() string {
	return f.path
}

// Load implements Store. A missing document reads as an empty bundle.
func (f *File) Load(_ context.Context) (Bundle, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Bundle{}, nil
		}
		return Bundle{}, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	data := map[string]string{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Bundle{}, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return bundleFromData(data), nil
}

// Save implements Store. The document is written to a temporary file and
// renamed so readers never observe a partial bundle.
func (f *File) Save(_ context.Context, b Bundle) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	raw, err := yaml.Marshal(b.toData())
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".certs-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
