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
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
	"github.com/NVIDIA/namespace-node-affinity/pkg/store"
)

func certsCmd() *cli.Command {
	return &cli.Command{
		Name:  "certs",
		Usage: "Inspect or generate the webhook serving certificates",
		Commands: []*cli.Command{
			{
				Name:  "ensure",
				Usage: "Generate and store certificates unless a complete bundle is stored",
				Flags: []cli.Flag{formatFlag(), outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withCertStore(ctx, cmd, func(ctx context.Context, op *operator) error {
						return op.certs.Ensure(ctx)
					})
				},
			},
			{
				Name:  "show",
				Usage: "Print a summary of the stored certificate bundle",
				Flags: []cli.Flag{formatFlag(), outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withCertStore(ctx, cmd, nil)
				},
			},
		},
	}
}

// withCertStore builds the configured store, runs fn, then prints the
// stored bundle summary.
func withCertStore(ctx context.Context, cmd *cli.Command, fn func(context.Context, *operator) error) error {
	outFormat, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// certificate commands never render
	cfg.TemplatesRef = ""

	clients, err := clientsFor(cmd, cfg)
	if err != nil {
		return err
	}
	op, err := newOperator(ctx, cfg, clients, ociOptionsFrom(cmd))
	if err != nil {
		return err
	}

	if fn != nil {
		if err := fn(ctx, op); err != nil {
			return err
		}
	}

	b, err := op.store.Load(ctx)
	if err != nil {
		return err
	}

	out := serializer.NewFileWriterOrStdout(outFormat, cmd.String(flagOutput))
	if closer, ok := out.(serializer.Closer); ok {
		defer closer.Close()
	}
	return out.Serialize(ctx, summarizeBundle(storeLocation(cfg), b))
}

// certSummary describes a stored bundle without exposing key material.
type certSummary struct {
	Store    string      `json:"store" yaml:"store"`
	Complete bool        `json:"complete" yaml:"complete"`
	Cert     certDetails `json:"cert" yaml:"cert"`
	Key      keyDetails  `json:"key" yaml:"key"`
	CA       certDetails `json:"ca" yaml:"ca"`
}

type certDetails struct {
	Present   bool       `json:"present" yaml:"present"`
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	DNSNames  []string   `json:"dnsNames,omitempty" yaml:"dnsNames,omitempty"`
	NotBefore *time.Time `json:"notBefore,omitempty" yaml:"notBefore,omitempty"`
	NotAfter  *time.Time `json:"notAfter,omitempty" yaml:"notAfter,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
}

type keyDetails struct {
	Present bool `json:"present" yaml:"present"`
}

func summarizeBundle(location string, b store.Bundle) certSummary {
	return certSummary{
		Store:    location,
		Complete: b.Complete(),
		Cert:     describeCert(b.Cert),
		Key:      keyDetails{Present: b.Key != nil},
		CA:       describeCert(b.CA),
	}
}

func describeCert(data *string) certDetails {
	if data == nil {
		return certDetails{}
	}
	d := certDetails{Present: true}

	block, _ := pem.Decode([]byte(*data))
	if block == nil {
		d.Error = "no PEM block found"
		return d
	}
	c, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		d.Error = err.Error()
		return d
	}

	d.Subject = c.Subject.String()
	d.Issuer = c.Issuer.String()
	d.DNSNames = c.DNSNames
	d.NotBefore = ptr.To(c.NotBefore.UTC())
	d.NotAfter = ptr.To(c.NotAfter.UTC())
	return d
}

func storeLocation(cfg *config.Config) string {
	switch cfg.StorageBackend {
	case config.StorageBackendSecret:
		return fmt.Sprintf("secret %s/%s", cfg.Namespace, cfg.CertificateSecretName())
	case config.StorageBackendFile:
		return "file " + store.NewFile(cfg.StateDir).Path()
	default:
		return cfg.StorageBackend
	}
}
