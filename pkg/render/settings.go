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
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"

	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
)

// CanonicalSettings parses raw as YAML and dumps it again with two-space
// indentation and sorted mapping keys. Blank, comment-only and null documents
// yield "". The document must be a mapping whose keys are valid ConfigMap
// keys, since each entry becomes one key of the settings ConfigMap.
func CanonicalSettings(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeConfiguration, "settings_yaml is not valid YAML", err)
	}
	if len(node.Content) == 0 {
		return "", nil
	}

	root := node.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return "", nil
	}
	if err := validateSettings(root); err != nil {
		return "", err
	}

	var doc any
	if err := root.Decode(&doc); err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeConfiguration, "settings_yaml is not valid YAML", err)
	}

	out, err := dumpYAML(doc)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeConfiguration, "settings_yaml could not be serialized", err)
	}
	return out, nil
}

func validateSettings(root *yaml.Node) error {
	if root.Kind != yaml.MappingNode {
		return apperrors.NewWithContext(apperrors.ErrCodeConfiguration,
			"settings_yaml must be a mapping of ConfigMap keys",
			map[string]any{"line": root.Line, "tag": root.ShortTag()})
	}

	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i]
		if key.Kind != yaml.ScalarNode {
			return apperrors.NewWithContext(apperrors.ErrCodeConfiguration,
				"settings_yaml keys must be scalars", map[string]any{"line": key.Line})
		}
		if errs := validation.IsConfigMapKey(key.Value); len(errs) > 0 {
			return apperrors.NewWithContext(apperrors.ErrCodeConfiguration,
				fmt.Sprintf("settings_yaml key %q is not a valid ConfigMap key: %s", key.Value, strings.Join(errs, "; ")),
				map[string]any{"line": key.Line})
		}
	}
	return nil
}

// configMapData turns canonical settings into ConfigMap data. String values
// are kept verbatim, other scalars keep their literal text, and nested
// mappings or sequences are stored as YAML documents.
func configMapData(settings string) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(settings), &node); err != nil {
		return "", fmt.Errorf("failed to parse settings: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return "", fmt.Errorf("settings are not a mapping")
	}

	root := node.Content[0]
	data := make(map[string]string, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch {
		case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null":
			data[key.Value] = ""
		case value.Kind == yaml.ScalarNode:
			data[key.Value] = value.Value
		default:
			text, err := dumpYAML(value)
			if err != nil {
				return "", fmt.Errorf("failed to serialize settings key %s: %w", key.Value, err)
			}
			data[key.Value] = text
		}
	}
	return dumpYAML(data)
}

func dumpYAML(v any) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
