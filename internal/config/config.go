// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the process wide settings of cigen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kptdev/cigen/internal/errors"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/spf13/pflag"
)

const (
	EnvWorkspaceDir  = "CIGEN_WORKSPACE_DIR"
	EnvDefaultBranch = "CIGEN_DEFAULT_BRANCH"
	EnvGitTimeout    = "CIGEN_GIT_TIMEOUT"
	EnvAddress       = "CIGEN_ADDRESS"
	EnvAuthorName    = "CIGEN_GIT_AUTHOR_NAME"
	EnvAuthorEmail   = "CIGEN_GIT_AUTHOR_EMAIL"

	DefaultAddress     = ":8080"
	DefaultAuthorName  = "cigen"
	DefaultAuthorEmail = "cigen@users.noreply.localhost"
)

// Config holds the application configuration.
type Config struct {
	// WorkspaceRoot is the directory per request workspaces are created in.
	WorkspaceRoot string

	// DefaultBranch is used when a request does not name a branch.
	DefaultBranch string

	// GitTimeout bounds each git command. Zero disables the bound.
	GitTimeout time.Duration

	// Address is the listen address of the HTTP server.
	Address string

	// AuthorName and AuthorEmail identify the commits cigen creates.
	AuthorName  string
	AuthorEmail string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		WorkspaceRoot: filepath.Join(os.TempDir(), "cigen", "workspaces"),
		DefaultBranch: v1.DefaultBranches[0],
		Address:       DefaultAddress,
		AuthorName:    DefaultAuthorName,
		AuthorEmail:   DefaultAuthorEmail,
	}
}

// LoadFromEnv loads configuration from environment variables on top of the
// defaults.
func LoadFromEnv() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	const op errors.Op = "config.LoadFromEnv"
	cfg := Default()

	if v, ok := lookup(EnvWorkspaceDir); ok && v != "" {
		cfg.WorkspaceRoot = v
	}
	if v, ok := lookup(EnvDefaultBranch); ok && v != "" {
		cfg.DefaultBranch = v
	}
	if v, ok := lookup(EnvAddress); ok && v != "" {
		cfg.Address = v
	}
	if v, ok := lookup(EnvAuthorName); ok && v != "" {
		cfg.AuthorName = v
	}
	if v, ok := lookup(EnvAuthorEmail); ok && v != "" {
		cfg.AuthorEmail = v
	}
	if v, ok := lookup(EnvGitTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.E(op, errors.InvalidParam,
				fmt.Errorf("%s must be a duration such as 90s: %w", EnvGitTimeout, err))
		}
		if d < 0 {
			return nil, errors.E(op, errors.InvalidParam,
				fmt.Errorf("%s must not be negative", EnvGitTimeout))
		}
		cfg.GitTimeout = d
	}
	return cfg, nil
}

// AddFlags binds the workspace and git settings to fs. Values already in c
// become the flag defaults, so flags override the environment.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.WorkspaceRoot, "workspace-dir", c.WorkspaceRoot,
		"directory in which per request workspaces are created")
	fs.StringVar(&c.DefaultBranch, "default-branch", c.DefaultBranch,
		"branch used when none is given")
	fs.DurationVar(&c.GitTimeout, "git-timeout", c.GitTimeout,
		"timeout for each git command, 0 disables it")
	fs.StringVar(&c.AuthorName, "author-name", c.AuthorName, "author name of generated commits")
	fs.StringVar(&c.AuthorEmail, "author-email", c.AuthorEmail, "author email of generated commits")
}

// AddServerFlags binds the HTTP server settings to fs.
func (c *Config) AddServerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Address, "address", c.Address, "address the HTTP server listens on")
}
