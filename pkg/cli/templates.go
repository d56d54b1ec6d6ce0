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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/k8s/leader"
	"github.com/NVIDIA/namespace-node-affinity/pkg/oci"
	"github.com/NVIDIA/namespace-node-affinity/pkg/render"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

const (
	flagFromStore     = "from-store"
	flagGenerateCerts = "generate-certs"
	flagRef           = "ref"
	flagDir           = "dir"
	flagTimestamp     = "timestamp"
)

func templatesCmd() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "Render, publish or fetch the webhook resource templates",
		Commands: []*cli.Command{
			templatesRenderCmd(),
			templatesPushCmd(),
			templatesPullCmd(),
		},
	}
}

func templatesRenderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Print the rendered manifests without touching the cluster",
		Description: `Renders the resource set the operator would apply.

By default certificates come from an empty in-memory store, so the Secret is
omitted and caBundle is empty. Use --generate-certs to render a complete set
with throwaway certificates, or --from-store to read the configured store.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagFromStore,
				Usage: "Read certificates from the configured store",
			},
			&cli.BoolFlag{
				Name:  flagGenerateCerts,
				Usage: "Ensure certificates in the store before rendering",
			},
			formatFlag(),
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Bool(flagFromStore) {
				cfg.StorageBackend = config.StorageBackendMemory
			}
			clients, err := clientsFor(cmd, cfg)
			if err != nil {
				return err
			}
			op, err := newOperator(ctx, cfg, clients, ociOptionsFrom(cmd))
			if err != nil {
				return err
			}

			objs, err := op.render(ctx, cmd.Bool(flagGenerateCerts))
			if err != nil {
				return err
			}

			w, closeFn, err := openOutput(cmd.String(flagOutput))
			if err != nil {
				return err
			}
			defer closeFn()
			return writeManifests(w, outFormat, objs)
		},
	}
}

// render builds the context the controller would use and renders it.
func (op *operator) render(ctx context.Context, generateCerts bool) ([]*unstructured.Unstructured, error) {
	if generateCerts {
		if err := op.certs.Ensure(ctx); err != nil {
			return nil, err
		}
	}
	ctrl, err := op.newController(leader.Static(false))
	if err != nil {
		return nil, err
	}
	rc, err := ctrl.BuildContext(ctx)
	if err != nil {
		return nil, err
	}
	return op.templates.Render(rc)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// writeManifests writes objs as a multi-document YAML stream, a JSON v1
// List, or a kind/name table.
func writeManifests(w io.Writer, format serializer.Format, objs []*unstructured.Unstructured) error {
	switch format {
	case serializer.FormatJSON:
		items := make([]any, 0, len(objs))
		for _, o := range objs {
			items = append(items, o.Object)
		}
		data, err := serializer.Marshal(serializer.FormatJSON, map[string]any{
			"apiVersion": "v1",
			"kind":       "List",
			"items":      items,
		})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case serializer.FormatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tNAME\tNAMESPACE")
		for _, o := range objs {
			ns := o.GetNamespace()
			if ns == "" {
				ns = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", o.GetKind(), o.GetName(), ns)
		}
		return tw.Flush()

	default:
		for _, o := range objs {
			data, err := serializer.Marshal(serializer.FormatYAML, o.Object)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "---\n%s", data); err != nil {
				return err
			}
		}
		return nil
	}
}

func refFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:     flagRef,
		Usage:    usage,
		Required: true,
	}
}

func templatesPushCmd() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Publish a template directory as an OCI artifact",
		Description: `Packs a template directory into an OCI artifact and pushes it.

Without --dir the embedded templates are published, which is a convenient
starting point for a customized bundle.

  nna-operator templates push --ref oci://ghcr.io/example/nna-templates:v1 --dir ./templates`,
		Flags: []cli.Flag{
			refFlag("Destination reference (oci://registry/repository:tag)"),
			&cli.StringFlag{
				Name:  flagDir,
				Usage: "Template directory (default: embedded templates)",
			},
			&cli.StringFlag{
				Name:  flagTimestamp,
				Usage: "Fixed org.opencontainers.image.created value for reproducible pushes",
			},
			formatFlag(),
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			ref, err := oci.ParseReference(cmd.String(flagRef))
			if err != nil {
				return err
			}

			dir := cmd.String(flagDir)
			if dir == "" {
				tmp, tmpErr := os.MkdirTemp("", "nna-templates-*")
				if tmpErr != nil {
					return fmt.Errorf("failed to create temp directory: %w", tmpErr)
				}
				defer os.RemoveAll(tmp)
				if err := render.Embedded().CopyTo(tmp); err != nil {
					return err
				}
				dir = tmp
			}

			o := ociOptionsFrom(cmd)
			res, err := oci.Push(ctx, oci.PushOptions{
				SourceDir:             dir,
				Reference:             ref,
				PlainHTTP:             o.plainHTTP,
				InsecureTLS:           o.insecureTLS,
				ReproducibleTimestamp: cmd.String(flagTimestamp),
			})
			if err != nil {
				return err
			}
			return writeResult(ctx, outFormat, cmd.String(flagOutput), res)
		},
	}
}

func templatesPullCmd() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Fetch a template bundle into a local directory",
		Flags: []cli.Flag{
			refFlag("Source reference (oci://registry/repository:tag)"),
			&cli.StringFlag{
				Name:     flagDir,
				Usage:    "Target directory; templates land in <dir>/" + oci.LayerTitle,
				Required: true,
			},
			formatFlag(),
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			ref, err := oci.ParseReference(cmd.String(flagRef))
			if err != nil {
				return err
			}

			o := ociOptionsFrom(cmd)
			res, err := oci.Pull(ctx, oci.PullOptions{
				Reference:   ref,
				TargetDir:   cmd.String(flagDir),
				PlainHTTP:   o.plainHTTP,
				InsecureTLS: o.insecureTLS,
			})
			if err != nil {
				return err
			}
			return writeResult(ctx, outFormat, cmd.String(flagOutput), res)
		},
	}
}

func writeResult(ctx context.Context, format serializer.Format, path string, v any) error {
	out := serializer.NewFileWriterOrStdout(format, path)
	if closer, ok := out.(serializer.Closer); ok {
		defer closer.Close()
	}
	return out.Serialize(ctx, v)
}
