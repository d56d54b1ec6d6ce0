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
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/namespace-node-affinity/pkg/config"
	"github.com/NVIDIA/namespace-node-affinity/pkg/logging"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

// Flag names shared across commands.
const (
	flagConfig             = "config"
	flagLogLevel           = "log-level"
	flagKubeconfig         = "kubeconfig"
	flagAppName            = "app-name"
	flagNamespace          = "namespace"
	flagImage              = "image"
	flagSettingsYAML       = "settings-yaml"
	flagSettingsFile       = "settings-file"
	flagFieldManager       = "field-manager"
	flagCertificateBackend = "certificate-backend"
	flagOpenSSLPath        = "openssl-path"
	flagStorageBackend     = "storage-backend"
	flagStateDir           = "state-dir"
	flagTemplatesRef       = "templates-ref"
	flagLeaderElection     = "leader-election"
	flagPort               = "port"
	flagPlainHTTP          = "plain-http"
	flagInsecureTLS        = "insecure-tls"
	flagFormat             = "format"
	flagOutput             = "output"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "Path to a YAML or JSON configuration file",
			Sources: cli.EnvVars("NNA_CONFIG"),
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars(logging.EnvVarLogLevel),
			Value:   "info",
		},
		kubeconfigFlag(),
		&cli.StringFlag{
			Name:    flagAppName,
			Usage:   "Name used for every rendered object",
			Sources: cli.EnvVars(config.EnvAppName),
		},
		&cli.StringFlag{
			Name:    flagNamespace,
			Aliases: []string{"n"},
			Usage:   "Namespace the webhook is deployed into",
			Sources: cli.EnvVars(config.EnvNamespace),
		},
		&cli.StringFlag{
			Name:    flagImage,
			Usage:   "Webhook container image",
			Sources: cli.EnvVars(config.EnvImage),
		},
		&cli.StringFlag{
			Name:    flagSettingsYAML,
			Usage:   "Webhook settings as inline YAML",
			Sources: cli.EnvVars(config.EnvSettingsYAML),
		},
		&cli.StringFlag{
			Name:    flagSettingsFile,
			Usage:   "File holding the webhook settings YAML, reloaded by run",
			Sources: cli.EnvVars(config.EnvSettingsFile),
		},
		&cli.StringFlag{
			Name:    flagFieldManager,
			Usage:   "Server-side apply field manager",
			Sources: cli.EnvVars(config.EnvFieldManager),
		},
		&cli.StringFlag{
			Name:    flagCertificateBackend,
			Usage:   fmt.Sprintf("Certificate backend (%s, %s)", config.CertificateBackendOpenSSL, config.CertificateBackendInProcess),
			Sources: cli.EnvVars(config.EnvCertificateBackend),
		},
		&cli.StringFlag{
			Name:    flagOpenSSLPath,
			Usage:   "openssl binary used by the openssl backend",
			Sources: cli.EnvVars(config.EnvOpenSSLPath),
		},
		&cli.StringFlag{
			Name: flagStorageBackend,
			Usage: fmt.Sprintf("Certificate store (%s, %s, %s)",
				config.StorageBackendSecret, config.StorageBackendFile, config.StorageBackendMemory),
			Sources: cli.EnvVars(config.EnvStorageBackend),
		},
		&cli.StringFlag{
			Name:    flagStateDir,
			Usage:   "Directory for the file store and pulled templates",
			Sources: cli.EnvVars(config.EnvStateDir),
		},
		&cli.StringFlag{
			Name:    flagTemplatesRef,
			Usage:   "OCI reference of a template bundle to use instead of the embedded templates",
			Sources: cli.EnvVars(config.EnvTemplatesRef),
		},
		&cli.BoolFlag{
			Name:    flagPlainHTTP,
			Usage:   "Use HTTP instead of HTTPS for OCI registries",
			Sources: cli.EnvVars("NNA_PLAIN_HTTP"),
		},
		&cli.BoolFlag{
			Name:    flagInsecureTLS,
			Usage:   "Skip TLS verification for OCI registries",
			Sources: cli.EnvVars("NNA_INSECURE_TLS"),
		},
	}
}

func kubeconfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagKubeconfig,
		Aliases: []string{"k"},
		Usage:   "Path to kubeconfig file (overrides KUBECONFIG env var)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"t"},
		Usage:   fmt.Sprintf("Output format (%s)", strings.Join(serializer.SupportedFormats(), ", ")),
		Value:   string(serializer.FormatYAML),
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
}

// parseOutputFormat returns the --format value or an error for unknown formats.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String(flagFormat))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q (supported: %s)",
			f, strings.Join(serializer.SupportedFormats(), ", "))
	}
	return f, nil
}

// loadConfig builds the configuration from the config file, NNA_* variables
// and finally explicitly set flags, then validates it.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String(flagConfig))
	if err != nil {
		return nil, err
	}

	strs := map[string]*string{
		flagAppName:            &cfg.AppName,
		flagNamespace:          &cfg.Namespace,
		flagImage:              &cfg.Image,
		flagSettingsYAML:       &cfg.SettingsYAML,
		flagSettingsFile:       &cfg.SettingsFile,
		flagFieldManager:       &cfg.FieldManager,
		flagCertificateBackend: &cfg.CertificateBackend,
		flagOpenSSLPath:        &cfg.OpenSSLPath,
		flagStorageBackend:     &cfg.StorageBackend,
		flagStateDir:           &cfg.StateDir,
		flagTemplatesRef:       &cfg.TemplatesRef,
	}
	for flag, field := range strs {
		if cmd.IsSet(flag) {
			*field = cmd.String(flag)
		}
	}
	if cmd.IsSet(flagLeaderElection) {
		cfg.LeaderElection.Enabled = cmd.Bool(flagLeaderElection)
	}
	if cmd.IsSet(flagPort) {
		cfg.Server.Port = cmd.Int(flagPort)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
