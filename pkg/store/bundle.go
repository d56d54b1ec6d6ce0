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

	"k8s.io/utils/ptr"
)

// Data keys used by every backend.
const (
	KeyCert = "cert"
	KeyKey  = "key"
	KeyCA   = "ca"
)

// Bundle is the persisted certificate material for the webhook server.
// A nil field means the key is not present in the store.
type Bundle struct {
	Cert *string `json:"cert,omitempty" yaml:"cert,omitempty"`
	Key  *string `json:"key,omitempty" yaml:"key,omitempty"`
	CA   *string `json:"ca,omitempty" yaml:"ca,omitempty"`
}

// NewBundle returns a bundle with all three fields present.
func NewBundle(cert, key, ca string) Bundle {
	return Bundle{
		Cert: ptr.To(cert),
		Key:  ptr.To(key),
		CA:   ptr.To(ca),
	}
}

// Complete reports whether cert, key and ca are all present and non-empty.
// Any other combination is treated as incomplete.
func (b Bundle) Complete() bool {
	return ptr.Deref(b.Cert, "") != "" &&
		ptr.Deref(b.Key, "") != "" &&
		ptr.Deref(b.CA, "") != ""
}

// Empty reports whether none of the fields are present.
func (b Bundle) Empty() bool {
	return b.Cert == nil && b.Key == nil && b.CA == nil
}

// toData flattens the present fields into a key/value map.
func (b Bundle) toData() map[string]string {
	data := make(map[string]string, 3)
	if b.Cert != nil {
		data[KeyCert] = *b.Cert
	}
	if b.Key != nil {
		data[KeyKey] = *b.Key
	}
	if b.CA != nil {
		data[KeyCA] = *b.CA
	}
	return data
}

// bundleFromData is the inverse of toData; absent keys stay nil.
func bundleFromData(data map[string]string) Bundle {
	var b Bundle
	if v, ok := data[KeyCert]; ok {
		b.Cert = ptr.To(v)
	}
	if v, ok := data[KeyKey]; ok {
		b.Key = ptr.To(v)
	}
	if v, ok := data[KeyCA]; ok {
		b.CA = ptr.To(v)
	}
	return b
}

// Store persists a single Bundle for the lifetime of the deployed unit.
// Save always replaces the whole bundle.
type Store interface {
	Load(ctx context.Context) (Bundle, error)
	Save(ctx context.Context, b Bundle) error
}
