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

// Package serializer writes and reads JSON, YAML and table output.
//
// Writers target stdout, a file, or a ConfigMap:
//
//	w := serializer.NewStdoutWriter(serializer.FormatYAML)
//	if err := w.Serialize(ctx, bundleSummary); err != nil {
//		return err
//	}
//
// ConfigMapWriter stores content under data.<key>.<ext> with server-side
// apply, and FromConfigMap reads it back. The controller's status reporter
// and the status command use this pair.
//
// For HTTP responses:
//
//	serializer.RespondJSON(w, http.StatusOK, status)
package serializer
