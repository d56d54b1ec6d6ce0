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

package render

import (
	"encoding/base64"

	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

// Context keys, in rendering order.
const (
	KeyAppName           = "app_name"
	KeyNamespace         = "namespace"
	KeyImage             = "image"
	KeyCABundle          = "ca_bundle"
	KeyCert              = "cert"
	KeyCertKey           = "cert_key"
	KeyConfigMapSettings = "configmap_settings"
)

// Input carries everything BuildContext reads.
type Input struct {
	Namespace    string
	AppName      string
	Image        string
	Bundle       store.Bundle
	SettingsYAML string
}

type entry struct {
	key   string
	value string
}

// Context is the ordered, read-only mapping templates are rendered against.
type Context struct {
	entries []entry
}

// BuildContext assembles the rendering context. It has no side effects and
// returns identical output for identical input.
//
// cert and cert_key are set only when the bundle holds them. configmap_settings
// is set alongside them, as the canonical YAML form of SettingsYAML or "" when
// no settings are given. Malformed settings are a configuration error.
func BuildContext(in Input) (*Context, error) {
	c := &Context{}
	c.add(KeyAppName, in.AppName)
	c.add(KeyNamespace, in.Namespace)
	c.add(KeyImage, in.Image)
	c.add(KeyCABundle, encode(ptr.Deref(in.Bundle.CA, "")))

	if in.Bundle.Cert == nil && in.Bundle.Key == nil {
		return c, nil
	}

	if in.Bundle.Cert != nil {
		c.add(KeyCert, encode(*in.Bundle.Cert))
	}
	if in.Bundle.Key != nil {
		c.add(KeyCertKey, encode(*in.Bundle.Key))
	}

	settings, err := CanonicalSettings(in.SettingsYAML)
	if err != nil {
		return nil, err
	}
	c.add(KeyConfigMapSettings, settings)

	return c, nil
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func (c *Context) add(key, value string) {
	c.entries = append(c.entries, entry{key: key, value: value})
}

// Get returns the value for key and whether it is present.
func (c *Context) Get(key string) (string, bool) {
	for _, e := range c.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Keys returns the present keys in rendering order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Map returns a copy of the context for template execution.
func (c *Context) Map() map[string]string {
	m := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		m[e.key] = e.value
	}
	return m
}

// MarshalYAML emits the context as a mapping in rendering order.
func (c *Context) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range c.entries {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.value},
		)
	}
	return node, nil
}
