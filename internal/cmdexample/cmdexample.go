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

// Package cmdexample contains the example command.
package cmdexample

import (
	"context"
	"fmt"
	"sort"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/generator"
	"github.com/kptdev/cigen/internal/printer"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
	"sigs.k8s.io/yaml"
)

const command = "cmdexample"

func NewCommand(ctx context.Context) *cobra.Command {
	return newRunner(ctx).Command
}

func newRunner(ctx context.Context) *runner {
	r := &runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "example",
		Short: "Prints a sample pipeline.",
		Long: `
cigen example [--tree]

Prints a sample pipeline that can be used as a starting point for generate.
With --tree the stages, projects and steps are printed as a tree.
`,
		Example: "  $ cigen example > pipeline.yaml",
		Args:    cobra.NoArgs,
		RunE:    r.runE,
	}
	c.Flags().BoolVar(&r.tree, "tree", false, "print the pipeline as a tree")
	r.Command = c
	return r
}

type runner struct {
	ctx     context.Context
	Command *cobra.Command

	// Flags
	tree bool
}

func (r *runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)

	p := generator.Example()
	if r.tree {
		pr.Printf("%s", Tree(p))
		return nil
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	pr.Printf("%s", b)
	return nil
}

// Tree renders the stages of p with their projects and steps.
func Tree(p *v1.Pipeline) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("Pipeline (branches: %v)", p.Branches()))

	if len(p.Variables) > 0 {
		vars := tree.AddBranch("variables")
		keys := make([]string, 0, len(p.Variables))
		for k := range p.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			vars.AddNode(fmt.Sprintf("%s=%s", k, p.Variables[k]))
		}
	}

	for _, s := range p.Stages {
		label := fmt.Sprintf("Stage %q (%s)", s.Name, s.ID)
		if s.Parallel {
			label += " parallel"
		}
		stage := tree.AddBranch(label)
		for _, proj := range s.Projects {
			branch := stage.AddMetaBranch(proj.Image, fmt.Sprintf("%s (%s)", proj.Name, v1.UnitID(s.ID, proj.Name)))
			for _, step := range proj.Steps {
				branch.AddNode(step.Command)
			}
		}
		for _, step := range s.Steps {
			stage.AddNode(step.Command)
		}
	}
	return tree.String()
}
