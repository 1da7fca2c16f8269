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

package orchestrators

import (
	"fmt"
	"strings"

	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

const (
	GitHubActionsWorkflowName = "CI/CD Pipeline"
	GitHubActionsRunner       = "ubuntu-latest"
)

// GitHubActions represents a GitHub Actions workflow.
// @see https://docs.github.com/en/actions/reference/workflow-syntax-for-github-actions
type GitHubActions struct {
	Name     string
	Branches []string
	Env      []variable
	Jobs     []GitHubActionsNamedJob
}

type GitHubActionsNamedJob struct {
	ID  string
	Job GitHubActionsJob
}

type GitHubActionsTrigger struct {
	Branches []string `yaml:"branches"`
}

type GitHubActionsJob struct {
	Name      string                 `yaml:"name,omitempty"`
	RunsOn    string                 `yaml:"runs-on"`
	Needs     []string               `yaml:"needs,omitempty"`
	Container GitHubActionsContainer `yaml:"container"`
	Steps     []GitHubActionsStep    `yaml:"steps"`
}

type GitHubActionsContainer struct {
	Image string `yaml:"image"`
}

type GitHubActionsStep struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	If   string            `yaml:"if,omitempty"`
}

func (p *GitHubActions) Init(pipeline *v1.Pipeline) Pipeline {
	p.Name = GitHubActionsWorkflowName
	p.Branches = pipeline.Branches()
	p.Env = sortedVariables(pipeline)
	p.Jobs = nil

	var previous []string
	for _, stage := range plan(pipeline) {
		for _, u := range stage.Units {
			p.Jobs = append(p.Jobs, GitHubActionsNamedJob{
				ID:  u.ID,
				Job: newGitHubActionsJob(u, previous),
			})
		}
		// Jobs only wait for the stage before them, so the units of one
		// stage run concurrently.
		previous = stage.unitIDs()
	}

	return p
}

func newGitHubActionsJob(u unit, needs []string) GitHubActionsJob {
	steps := []GitHubActionsStep{{
		Name: "Checkout code",
		Uses: "actions/checkout@v4",
	}}
	if strings.Contains(u.Image, "node") {
		steps = append(steps, GitHubActionsStep{
			Name: "Setup Node.js",
			Uses: "actions/setup-node@v4",
			With: map[string]string{"node-version": "18"},
		})
	}
	if strings.Contains(u.Image, "maven") {
		steps = append(steps, GitHubActionsStep{
			Name: "Setup Java",
			Uses: "actions/setup-java@v4",
			With: map[string]string{
				"distribution": "temurin",
				"java-version": "11",
			},
		})
	}
	for i, command := range u.Commands {
		steps = append(steps, GitHubActionsStep{
			Name: fmt.Sprintf("%s - Step %d", u.Name, i+1),
			Run:  command,
		})
	}
	steps = append(steps, GitHubActionsStep{
		Name: "Archive artifacts",
		Uses: "actions/upload-artifact@v4",
		With: map[string]string{
			"name": u.ID + "-artifacts",
			"path": strings.Join(ArtifactPaths, "\n") + "\n",
		},
		If: "success()",
	})

	return GitHubActionsJob{
		Name:      u.Name,
		RunsOn:    GitHubActionsRunner,
		Needs:     append([]string(nil), needs...),
		Container: GitHubActionsContainer{Image: u.Image},
		Steps:     steps,
	}
}

func (p *GitHubActions) Generate() (out []byte, err error) {
	trigger := GitHubActionsTrigger{Branches: p.Branches}
	on := orderedMap{}
	on.Set("push", trigger)
	on.Set("pull_request", trigger)

	jobs := orderedMap{}
	for _, j := range p.Jobs {
		jobs.Set(j.ID, j.Job)
	}

	doc := orderedMap{}
	doc.Set("name", p.Name)
	doc.Set("on", on)
	if len(p.Env) > 0 {
		doc.Set("env", variablesMap(p.Env))
	}
	doc.Set("jobs", jobs)

	return marshal(doc)
}
