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

package server

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/namespace-node-affinity/pkg/defaults"
)

// Config holds server configuration
type Config struct {
	// Server identity
	Name    string
	Version string

	// Handlers are additional routes, served behind the middleware chain.
	Handlers map[string]http.HandlerFunc

	// ReadinessCheck, when set, must return nil for /ready to succeed.
	ReadinessCheck func() error

	Address string
	Port    int

	RateLimit      rate.Limit // requests per second
	RateLimitBurst int        // burst size

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// Option customizes a Config.
type Option func(*Config)

// WithName sets the server name reported on the index route.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithVersion sets the version reported on the index route.
func WithVersion(version string) Option {
	return func(c *Config) { c.Version = version }
}

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(c *Config) { c.Port = port }
}

// WithHandler adds routes. Later calls add to earlier ones.
func WithHandler(handlers map[string]http.HandlerFunc) Option {
	return func(c *Config) {
		if c.Handlers == nil {
			c.Handlers = map[string]http.HandlerFunc{}
		}
		for path, h := range handlers {
			c.Handlers[path] = h
		}
	}
}

// WithReadinessCheck gates /ready on check.
func WithReadinessCheck(check func() error) Option {
	return func(c *Config) { c.ReadinessCheck = check }
}

// WithRateLimit sets the token bucket used for API routes.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Config) {
		c.RateLimit = limit
		c.RateLimitBurst = burst
	}
}

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:              "nna-operator",
		Version:           "dev",
		Port:              defaults.ServerPort,
		RateLimit:         defaults.ServerRateLimit,
		RateLimitBurst:    defaults.ServerRateLimitBurst,
		ReadTimeout:       defaults.ServerReadTimeout,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      defaults.ServerWriteTimeout,
		IdleTimeout:       defaults.ServerIdleTimeout,
		ShutdownTimeout:   defaults.ServerShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
