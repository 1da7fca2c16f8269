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

// Package cmdcheck contains the check command.
package cmdcheck

import (
	"context"
	"strings"

	"github.com/kptdev/cigen/internal/cmdexport/orchestrators"
	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/generator"
	"github.com/kptdev/cigen/internal/printer"
	"github.com/spf13/cobra"
)

const (
	command = "cmdcheck"
	longMsg = `
cigen check REPO_URL --dialect DIALECT

Reports whether the repository already holds the configuration file of a
CI/CD platform, so that generate can be run with or without --override.

Flags:

--dialect
  Target platform; one of github, gitlab, jenkins.

--branch
  Branch to inspect.
`
)

func NewCommand(ctx context.Context, cfg *config.Config) *cobra.Command {
	return newRunner(ctx, cfg).Command
}

func newRunner(ctx context.Context, cfg *config.Config) *runner {
	r := &runner{
		ctx: ctx,
		cfg: cfg,
	}
	c := &cobra.Command{
		Use:     "check REPO_URL",
		Short:   "Checks whether a repository already has a CI/CD configuration.",
		Long:    longMsg,
		Example: "  $ cigen check https://github.com/org/app.git --dialect github",
		Args:    cobra.ExactArgs(1),
		RunE:    r.runE,
	}
	r.Command = c

	c.Flags().StringVar(&r.dialect, "dialect", "",
		"target platform; one of: "+strings.Join(orchestrators.Dialects(), ", "))
	c.Flags().StringVar(&r.branch, "branch", "", "branch to inspect")
	_ = c.MarkFlagRequired("dialect")
	return r
}

type runner struct {
	ctx     context.Context
	cfg     *config.Config
	Command *cobra.Command

	// Flags
	dialect string
	branch  string
}

func (r *runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)

	res, err := generator.NewFromConfig(r.cfg).Check(r.ctx, generator.CheckRequest{
		RepositoryURL: args[0],
		Dialect:       r.dialect,
		Branch:        r.branch,
	})
	if err != nil {
		return errors.E(op, err)
	}

	if res.Exists {
		pr.Printf("%s already exists. Use --override to replace it.\n", res.Path)
		return nil
	}
	pr.Printf("%s not found. Safe to generate a new one.\n", res.Path)
	return nil
}
