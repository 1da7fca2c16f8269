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

// Package cmdexport contains the export command.
package cmdexport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kptdev/cigen/internal/cmdexport/orchestrators"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/util/cmdutil"
	"github.com/kptdev/cigen/internal/util/pathutil"
	"github.com/kptdev/cigen/internal/validate"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/spf13/cobra"
)

const command = "cmdexport"

// ExportCommand returns the `cigen export` command.
func ExportCommand() *cobra.Command {
	return GetExportRunner().Command
}

// GetExportRunner creates a ExportRunner instance and wires it to the corresponding Command.
func GetExportRunner() *ExportRunner {
	r := &ExportRunner{}
	c := &cobra.Command{
		Use:   "export DIALECT FILE",
		Short: "Compiles a pipeline file without touching any repository.",
		Long: fmt.Sprintf(`
cigen export DIALECT FILE [--output PATH]

Compiles the pipeline in FILE into the configuration of a CI system and
writes it to stdout or to PATH. Use - as FILE to read stdin.

DIALECT is one of %s.
`, strings.Join(orchestrators.Dialects(), ", ")),
		Example: "  $ cigen export gitlab pipeline.yaml --output .gitlab-ci.yml",
		// Validate and parse args.
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("accepts %d args, received %d", 2, len(args))
			}
			d, err := orchestrators.LookupDialect(args[0])
			if err != nil {
				return err
			}
			r.Dialect, r.File = d, args[1]
			return nil
		},
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}

	c.Flags().StringVar(
		&r.OutputFilePath, "output", "",
		"specify the filename of the generated configuration. If omitted, the default output is stdout")

	r.Command = c
	return r
}

// The ExportRunner wraps the user's input and runs the command.
type ExportRunner struct {
	Dialect        orchestrators.Dialect
	File           string
	OutputFilePath string
	Command        *cobra.Command

	pipeline *v1.Pipeline
}

func (r *ExportRunner) preRunE(c *cobra.Command, _ []string) error {
	const op errors.Op = command + ".preRunE"
	p, err := cmdutil.ReadPipeline(r.File, c.InOrStdin())
	if err != nil {
		return errors.E(op, err)
	}
	if err := validate.Error(p); err != nil {
		return errors.E(op, err)
	}
	r.pipeline = p

	if r.OutputFilePath != "" {
		abs, rel, err := pathutil.ResolveAbsAndRelPaths(r.OutputFilePath)
		if err != nil {
			return errors.E(op, errors.IO, err)
		}
		if !pathutil.Exists(filepath.Dir(abs)) {
			return errors.E(op, errors.InvalidParam,
				fmt.Errorf("the directory of output file %s does not exist", rel))
		}
		r.OutputFilePath = abs
	}
	return nil
}

// runE compiles the pipeline and writes it into a file or stdout.
func (r *ExportRunner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	a, err := orchestrators.Compile(r.pipeline, r.Dialect.Name)
	if err != nil {
		return errors.E(op, err)
	}

	if r.OutputFilePath != "" {
		if err := os.WriteFile(r.OutputFilePath, a.Content, 0644); err != nil {
			return errors.E(op, errors.IO, err)
		}
		return nil
	}

	_, err = c.OutOrStdout().Write(a.Content)
	return err
}
