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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// workflow is the subset of a GitHub Actions workflow the tests inspect.
type workflow struct {
	Name string `yaml:"name"`
	On   map[string]struct {
		Branches []string `yaml:"branches"`
	} `yaml:"on"`
	Env  map[string]string           `yaml:"env"`
	Jobs map[string]GitHubActionsJob `yaml:"jobs"`
}

func decodeWorkflow(t *testing.T, p *v1.Pipeline) (workflow, string) {
	t.Helper()
	artifact, err := Compile(p, "github")
	require.NoError(t, err)

	var wf workflow
	require.NoError(t, yaml.Unmarshal(artifact.Content, &wf))
	return wf, string(artifact.Content)
}

func TestGitHubActionsWorkflow(t *testing.T) {
	wf, content := decodeWorkflow(t, samplePipeline())

	require.Equal(t, "CI/CD Pipeline", wf.Name)
	require.Equal(t, []string{"main"}, wf.On["push"].Branches)
	require.Equal(t, []string{"main"}, wf.On["pull_request"].Branches)
	require.Empty(t, wf.Env)
	require.Len(t, wf.Jobs, 3)

	// Jobs appear in declared order.
	require.Less(t, strings.Index(content, "build-api:"), strings.Index(content, "build-web:"))
	require.Less(t, strings.Index(content, "build-web:"), strings.Index(content, "deploy:"))
	require.True(t, strings.HasPrefix(content, "name: CI/CD Pipeline\n"), content)
	require.Less(t, strings.Index(content, "pull_request:"), strings.Index(content, "jobs:"))
}

func TestGitHubActionsNeeds(t *testing.T) {
	wf, _ := decodeWorkflow(t, samplePipeline())

	require.Empty(t, wf.Jobs["build-api"].Needs)
	require.Empty(t, wf.Jobs["build-web"].Needs)
	require.Equal(t, []string{"build-api", "build-web"}, wf.Jobs["deploy"].Needs)
}

func TestGitHubActionsJob(t *testing.T) {
	wf, _ := decodeWorkflow(t, samplePipeline())

	expected := GitHubActionsJob{
		Name:      "Api",
		RunsOn:    "ubuntu-latest",
		Container: GitHubActionsContainer{Image: "node:18"},
		Steps: []GitHubActionsStep{
			{Name: "Checkout code", Uses: "actions/checkout@v4"},
			{Name: "Setup Node.js", Uses: "actions/setup-node@v4", With: map[string]string{"node-version": "18"}},
			{Name: "Api - Step 1", Run: "npm run build"},
			{
				Name: "Archive artifacts",
				Uses: "actions/upload-artifact@v4",
				With: map[string]string{
					"name": "build-api-artifacts",
					"path": "**/dist/\n**/build/\n**/target/\n",
				},
				If: "success()",
			},
		},
	}
	if diff := cmp.Diff(expected, wf.Jobs["build-api"]); diff != "" {
		t.Errorf("unexpected job (-want +got):\n%s", diff)
	}

	web := wf.Jobs["build-web"]
	require.Equal(t, "actions/setup-java@v4", web.Steps[1].Uses)
	require.Equal(t, map[string]string{"distribution": "temurin", "java-version": "11"}, web.Steps[1].With)
}

func TestGitHubActionsStepsOnlyStage(t *testing.T) {
	wf, _ := decodeWorkflow(t, samplePipeline())

	deploy := wf.Jobs["deploy"]
	require.Equal(t, "Deploy", deploy.Name)
	require.Equal(t, "node:18", deploy.Container.Image)
	require.Equal(t, "Deploy - Step 1", deploy.Steps[2].Name)
	require.Equal(t, "make deploy", deploy.Steps[2].Run)
}

func TestGitHubActionsDefaultsAndEnv(t *testing.T) {
	p := &v1.Pipeline{
		Variables: map[string]string{"NODE_ENV": "production"},
		Stages: []v1.Stage{{
			ID:    "lint",
			Name:  "Lint",
			Steps: []v1.Step{{Command: "make lint"}},
		}},
	}
	wf, content := decodeWorkflow(t, p)

	require.Equal(t, []string{"main", "develop"}, wf.On["push"].Branches)
	require.Equal(t, map[string]string{"NODE_ENV": "production"}, wf.Env)
	require.Equal(t, "ubuntu:latest", wf.Jobs["lint"].Container.Image)
	require.Less(t, strings.Index(content, "env:"), strings.Index(content, "jobs:"))
}
