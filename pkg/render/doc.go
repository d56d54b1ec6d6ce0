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

// Package render builds the template rendering context and renders the
// webhook manifests.
//
// BuildContext is a pure function of its Input. The context always carries
// app_name, namespace, image and ca_bundle. Once certificate material exists
// it also carries cert and cert_key (base64) and configmap_settings, the
// user's settings_yaml round-tripped through a YAML parse and dump:
//
//	ctx, err := render.BuildContext(render.Input{
//	    Namespace:    "kubeflow",
//	    AppName:      "namespace-node-affinity",
//	    Image:        image,
//	    Bundle:       bundle,
//	    SettingsYAML: "abc: 123",
//	})
//	// ctx.Get("configmap_settings") == "abc: 123\n"
//
// Templates are Go text/template files keyed by context names
// ({{ .app_name }}). The default set is embedded and applied in the order of
// DefaultTemplateFiles.
package render
