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

// Package cmdserve contains the serve command.
package cmdserve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/generator"
	"github.com/kptdev/cigen/internal/server"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const command = "cmdserve"

func NewCommand(ctx context.Context, cfg *config.Config) *cobra.Command {
	return newRunner(ctx, cfg).Command
}

func newRunner(ctx context.Context, cfg *config.Config) *runner {
	r := &runner{ctx: ctx, cfg: cfg}
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serves generate, validate and check over HTTP.",
		Long: `
cigen serve [--address ADDR]

Starts an HTTP server exposing:

  POST /pipelines/generate
  POST /pipelines/validate
  POST /pipelines/check
  GET  /pipelines/example
  GET  /healthz
  GET  /metrics

The server stops on SIGINT or SIGTERM.
`,
		Example: "  $ CIGEN_WORKSPACE_DIR=/var/lib/cigen cigen serve --address :8080",
		Args:    cobra.NoArgs,
		RunE:    r.runE,
	}
	cfg.AddServerFlags(c.Flags())
	c.Flags().BoolVar(&r.keepWorkspaces, "keep-workspace", false,
		"leave workspaces on disk after each request")
	r.Command = c
	return r
}

type runner struct {
	ctx     context.Context
	cfg     *config.Config
	Command *cobra.Command

	// Flags
	keepWorkspaces bool
}

func (r *runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"

	ctx, stop := signal.NotifyContext(r.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := generator.NewFromConfig(r.cfg)
	g.KeepWorkspaces = r.keepWorkspaces

	klog.Infof("workspaces are created in %s", r.cfg.WorkspaceRoot)
	if err := server.New(g).Run(ctx, r.cfg.Address); err != nil {
		return errors.E(op, err)
	}
	return nil
}
