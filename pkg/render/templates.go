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
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

//go:embed templates/*.yaml.tmpl
var embedded embed.FS

// DefaultTemplateFiles is the fixed apply order. Delete runs it in reverse.
var DefaultTemplateFiles = []string{
	"serviceaccount.yaml.tmpl",
	"rbac.yaml.tmpl",
	"configmap.yaml.tmpl",
	"secret.yaml.tmpl",
	"deployment.yaml.tmpl",
	"service.yaml.tmpl",
	"mutatingwebhookconfiguration.yaml.tmpl",
}

var funcs = template.FuncMap{
	"indent":        indent,
	"configMapData": configMapData,
}

// Templates is an ordered list of manifest templates read from a file system.
type Templates struct {
	fsys  fs.FS
	files []string
}

// NewTemplates returns a template set reading files from fsys in order.
func NewTemplates(fsys fs.FS, files []string) *Templates {
	return &Templates{fsys: fsys, files: append([]string(nil), files...)}
}

// Embedded returns the templates compiled into the binary.
func Embedded() *Templates {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Sprintf("embedded templates: %v", err))
	}
	return NewTemplates(sub, DefaultTemplateFiles)
}

// FromDir returns the default template list read from dir.
func FromDir(dir string) *Templates {
	return NewTemplates(os.DirFS(dir), DefaultTemplateFiles)
}

// Files returns the template file names in apply order.
func (t *Templates) Files() []string {
	return append([]string(nil), t.files...)
}

// CopyTo writes every template file into dir, creating it if needed.
func (t *Templates) CopyTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, name := range t.files {
		raw, err := fs.ReadFile(t.fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			return fmt.Errorf("failed to write template %s: %w", name, err)
		}
	}
	return nil
}

// Render renders every template against c and returns the decoded objects
// in apply order. Templates that render to nothing contribute no objects.
func (t *Templates) Render(c *Context) ([]*unstructured.Unstructured, error) {
	var objs []*unstructured.Unstructured
	for _, name := range t.files {
		rendered, err := t.RenderFile(name, c)
		if err != nil {
			return nil, err
		}
		objs = append(objs, rendered...)
	}
	return objs, nil
}

// RenderFile renders a single template file.
func (t *Templates) RenderFile(name string, c *Context) ([]*unstructured.Unstructured, error) {
	raw, err := fs.ReadFile(t.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(funcs).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, c.Map()); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	objs, err := decodeObjects(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return objs, nil
}

// decodeObjects splits a multi-document YAML stream into objects, skipping
// empty documents.
func decodeObjects(data []byte) ([]*unstructured.Unstructured, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))

	var objs []*unstructured.Unstructured
	for {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to split documents: %w", err)
		}

		js, err := utilyaml.ToJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert document: %w", err)
		}
		if s := strings.TrimSpace(string(js)); s == "" || s == "null" {
			continue
		}

		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(js); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// indent prefixes every non-empty line of s with n spaces and drops the
// trailing newline.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
