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

package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/distribution/reference"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
	apperrors "github.com/NVIDIA/namespace-node-affinity/pkg/errors"
	"github.com/NVIDIA/namespace-node-affinity/pkg/oci"
	"github.com/NVIDIA/namespace-node-affinity/pkg/serializer"
)

// Certificate backends.
const (
	CertificateBackendOpenSSL   = "openssl"
	CertificateBackendInProcess = "inprocess"
)

// Storage backends.
const (
	StorageBackendSecret = "secret"
	StorageBackendFile   = "file"
	StorageBackendMemory = "memory"
)

// Environment variables read by ApplyEnv.
const (
	EnvAppName            = "NNA_APP_NAME"
	EnvNamespace          = "NNA_NAMESPACE"
	EnvPodNamespace       = "POD_NAMESPACE"
	EnvImage              = "NNA_IMAGE"
	EnvSettingsYAML       = "NNA_SETTINGS_YAML"
	EnvSettingsFile       = "NNA_SETTINGS_FILE"
	EnvFieldManager       = "NNA_FIELD_MANAGER"
	EnvCertificateBackend = "NNA_CERTIFICATE_BACKEND"
	EnvOpenSSLPath        = "NNA_OPENSSL_PATH"
	EnvStorageBackend     = "NNA_STORAGE_BACKEND"
	EnvStateDir           = "NNA_STATE_DIR"
	EnvTemplatesRef       = "NNA_TEMPLATES_REF"
	EnvLeaderElection     = "NNA_LEADER_ELECTION"
	EnvPort               = "PORT"
)

// Config is the operator configuration.
type Config struct {
	AppName            string         `json:"appName" yaml:"appName"`
	Namespace          string         `json:"namespace" yaml:"namespace"`
	Image              string         `json:"image" yaml:"image"`
	SettingsYAML       string         `json:"settingsYAML,omitempty" yaml:"settingsYAML,omitempty"`
	SettingsFile       string         `json:"settingsFile,omitempty" yaml:"settingsFile,omitempty"`
	FieldManager       string         `json:"fieldManager" yaml:"fieldManager"`
	CertificateBackend string         `json:"certificateBackend" yaml:"certificateBackend"`
	OpenSSLPath        string         `json:"opensslPath" yaml:"opensslPath"`
	StorageBackend     string         `json:"storageBackend" yaml:"storageBackend"`
	StateDir           string         `json:"stateDir" yaml:"stateDir"`
	TemplatesRef       string         `json:"templatesRef,omitempty" yaml:"templatesRef,omitempty"`
	LeaderElection     LeaderElection `json:"leaderElection" yaml:"leaderElection"`
	Server             Server         `json:"server" yaml:"server"`
}

// LeaderElection configures the Lease used to pick the active replica.
type LeaderElection struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	LeaseName     string        `json:"leaseName,omitempty" yaml:"leaseName,omitempty"`
	LeaseDuration time.Duration `json:"leaseDuration" yaml:"leaseDuration"`
	RenewDeadline time.Duration `json:"renewDeadline" yaml:"renewDeadline"`
	RetryPeriod   time.Duration `json:"retryPeriod" yaml:"retryPeriod"`
}

// Server configures the health, status and metrics endpoint.
type Server struct {
	Port int `json:"port" yaml:"port"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	ns := os.Getenv(EnvPodNamespace)
	if ns == "" {
		ns = defaults.Namespace
	}
	return &Config{
		AppName:            defaults.AppName,
		Namespace:          ns,
		Image:              defaults.Image,
		FieldManager:       defaults.FieldManager,
		CertificateBackend: defaults.CertificateBackend,
		OpenSSLPath:        defaults.OpenSSLPath,
		StorageBackend:     defaults.StorageBackend,
		StateDir:           defaults.StateDir,
		LeaderElection: LeaderElection{
			Enabled:       true,
			LeaseDuration: defaults.LeaseDuration,
			RenewDeadline: defaults.RenewDeadline,
			RetryPeriod:   defaults.RetryPeriod,
		},
		Server: Server{Port: defaults.ServerPort},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		r, err := serializer.NewFileReader(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "failed to open config file", err)
		}
		defer r.Close()
		if err := r.Deserialize(cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "failed to parse config file", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NNA_* variables that are set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		EnvAppName:            &c.AppName,
		EnvNamespace:          &c.Namespace,
		EnvImage:              &c.Image,
		EnvSettingsYAML:       &c.SettingsYAML,
		EnvSettingsFile:       &c.SettingsFile,
		EnvFieldManager:       &c.FieldManager,
		EnvCertificateBackend: &c.CertificateBackend,
		EnvOpenSSLPath:        &c.OpenSSLPath,
		EnvStorageBackend:     &c.StorageBackend,
		EnvStateDir:           &c.StateDir,
		EnvTemplatesRef:       &c.TemplatesRef,
	}
	for env, field := range strs {
		if v, ok := os.LookupEnv(env); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv(EnvLeaderElection); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, EnvLeaderElection+" must be a boolean", err)
		}
		c.LeaderElection.Enabled = enabled
	}

	if v, ok := os.LookupEnv(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, EnvPort+" must be an integer", err)
		}
		c.Server.Port = port
	}
	return nil
}

// LeaseName returns the configured lease name or <appName>-leader.
func (c *Config) LeaseName() string {
	if c.LeaderElection.LeaseName != "" {
		return c.LeaderElection.LeaseName
	}
	return c.AppName + "-leader"
}

// CertificateSecretName is the Secret holding the stored bundle.
func (c *Config) CertificateSecretName() string { return c.AppName + "-certs" }

// StatusConfigMapName is the ConfigMap the status reporter writes.
func (c *Config) StatusConfigMapName() string { return c.AppName + "-status" }

// Validate checks the configuration. Every failure is a CONFIGURATION error
// naming the offending field.
func (c *Config) Validate() error {
	var problems []string

	if errs := validation.IsDNS1123Label(c.AppName); len(errs) > 0 {
		problems = append(problems, fmt.Sprintf("appName %q: %s", c.AppName, strings.Join(errs, "; ")))
	}
	if errs := validation.IsDNS1123Label(c.Namespace); len(errs) > 0 {
		problems = append(problems, fmt.Sprintf("namespace %q: %s", c.Namespace, strings.Join(errs, "; ")))
	}
	if _, err := reference.ParseNormalizedNamed(c.Image); err != nil {
		problems = append(problems, fmt.Sprintf("image %q: %v", c.Image, err))
	}
	if c.TemplatesRef != "" {
		if _, err := oci.ParseReference(c.TemplatesRef); err != nil {
			problems = append(problems, fmt.Sprintf("templatesRef %q: %v", c.TemplatesRef, err))
		}
	}
	if c.SettingsYAML != "" && c.SettingsFile != "" {
		problems = append(problems, "settingsYAML and settingsFile are mutually exclusive")
	}
	if c.FieldManager == "" {
		problems = append(problems, "fieldManager is required")
	}
	if !slices.Contains([]string{CertificateBackendOpenSSL, CertificateBackendInProcess}, c.CertificateBackend) {
		problems = append(problems, fmt.Sprintf("certificateBackend %q: must be %s or %s",
			c.CertificateBackend, CertificateBackendOpenSSL, CertificateBackendInProcess))
	}
	if !slices.Contains([]string{StorageBackendSecret, StorageBackendFile, StorageBackendMemory}, c.StorageBackend) {
		problems = append(problems, fmt.Sprintf("storageBackend %q: must be %s, %s or %s",
			c.StorageBackend, StorageBackendSecret, StorageBackendFile, StorageBackendMemory))
	}
	if c.StorageBackend == StorageBackendFile && c.StateDir == "" {
		problems = append(problems, "stateDir is required for the file storage backend")
	}
	if le := c.LeaderElection; le.Enabled {
		if le.LeaseDuration <= le.RenewDeadline || le.RenewDeadline <= le.RetryPeriod || le.RetryPeriod <= 0 {
			problems = append(problems, "leaderElection requires leaseDuration > renewDeadline > retryPeriod > 0")
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}

	if len(problems) > 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeConfiguration,
			"invalid configuration: "+strings.Join(problems, ", "),
			map[string]any{"problems": problems})
	}
	return nil
}

// ReadSettings returns the settings YAML, reading SettingsFile when set.
func (c *Config) ReadSettings() (string, error) {
	if c.SettingsFile == "" {
		return c.SettingsYAML, nil
	}
	data, err := os.ReadFile(c.SettingsFile)
	if err != nil {
		return "", apperrors.WrapWithContext(apperrors.ErrCodeConfiguration, "failed to read settings file", err,
			map[string]any{"path": c.SettingsFile})
	}
	return string(data), nil
}
