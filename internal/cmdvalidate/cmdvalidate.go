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

// Package cmdvalidate contains the validate command.
package cmdvalidate

import (
	"context"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/generator"
	"github.com/kptdev/cigen/internal/printer"
	"github.com/kptdev/cigen/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdvalidate"

func NewCommand(ctx context.Context) *cobra.Command {
	return newRunner(ctx).Command
}

func newRunner(ctx context.Context) *runner {
	r := &runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "validate FILE",
		Short: "Checks a pipeline file without touching any repository.",
		Long: `
cigen validate FILE

Validates the structure of a pipeline in YAML or JSON. Use - to read it from
stdin. The command exits non-zero and lists every problem when the pipeline
is invalid.
`,
		Example: "  $ cigen validate pipeline.yaml",
		Args:    cobra.ExactArgs(1),
		RunE:    r.runE,
	}
	r.Command = c
	return r
}

type runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *runner) runE(cmd *cobra.Command, args []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)

	p, err := cmdutil.ReadPipeline(args[0], cmd.InOrStdin())
	if err != nil {
		return errors.E(op, err)
	}

	g := generator.New(nil, nil, nil, nil)
	res := g.Validate(p)
	if !res.Valid {
		for _, e := range res.Errors {
			pr.OptPrintf(printer.NewOpt().Stderr(), "%s\n", e)
		}
		violations := make(errors.Violations, 0, len(res.Errors))
		for _, e := range res.Errors {
			violations = append(violations, errors.Violation{Field: "pipeline", Type: errors.Invalid, Reason: e})
		}
		return errors.E(op, errors.Validation, &errors.ValidationError{Violations: violations})
	}
	pr.Printf("Pipeline configuration is valid (%d stages)\n", res.StagesCount)
	return nil
}
