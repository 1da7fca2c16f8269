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

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/validate"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

const (
	GitLabCIArtifactsExpiry = "1 week"
	GitLabCIMergeRequests   = "merge_requests"
)

// GitLabCI represents a GitLab CI pipeline.
// @see https://docs.gitlab.com/ee/ci/yaml/
type GitLabCI struct {
	Image     string
	Variables []variable
	Stages    []string
	Jobs      []GitLabCINamedJob
}

type GitLabCINamedJob struct {
	ID  string
	Job GitLabCIJob
}

type GitLabCIJob struct {
	Stage     string            `yaml:"stage"`
	Image     string            `yaml:"image"`
	Needs     []string          `yaml:"needs,omitempty"`
	Script    []string          `yaml:"script"`
	Artifacts GitLabCIArtifacts `yaml:"artifacts"`
	Only      GitLabCIOnly      `yaml:"only"`
}

type GitLabCIArtifacts struct {
	Paths    []string `yaml:"paths"`
	ExpireIn string   `yaml:"expire_in"`
}

type GitLabCIOnly struct {
	Refs []string `yaml:"refs"`
}

func (p *GitLabCI) Init(pipeline *v1.Pipeline) Pipeline {
	p.Image = v1.DefaultImage
	p.Variables = sortedVariables(pipeline)
	p.Stages = nil
	p.Jobs = nil

	refs := append(pipeline.Branches(), GitLabCIMergeRequests)
	for _, stage := range plan(pipeline) {
		p.Stages = append(p.Stages, stage.ID)
		for i, u := range stage.Units {
			job := GitLabCIJob{
				Stage:  stage.ID,
				Image:  u.Image,
				Script: u.Commands,
				Artifacts: GitLabCIArtifacts{
					Paths:    append([]string(nil), ArtifactPaths...),
					ExpireIn: GitLabCIArtifactsExpiry,
				},
				Only: GitLabCIOnly{Refs: append([]string(nil), refs...)},
			}
			if len(job.Script) == 0 {
				// GitLab rejects jobs without a script.
				job.Script = []string{fmt.Sprintf("echo %q", "No steps defined for "+u.ID)}
			}
			if !stage.Parallel && i > 0 {
				job.Needs = []string{stage.Units[i-1].ID}
			}
			p.Jobs = append(p.Jobs, GitLabCINamedJob{ID: u.ID, Job: job})
		}
	}

	return p
}

func (p *GitLabCI) Generate() (out []byte, err error) {
	const op errors.Op = "orchestrators.GitLabCI.Generate"

	doc := orderedMap{}
	doc.Set("image", p.Image)
	if len(p.Variables) > 0 {
		doc.Set("variables", variablesMap(p.Variables))
	}
	doc.Set("stages", p.Stages)
	for _, j := range p.Jobs {
		if validate.ReservedUnitID(j.ID) {
			return nil, errors.E(op, errors.Validation, &errors.ValidationError{
				Violations: errors.Violations{{
					Field:  "stages",
					Value:  j.ID,
					Type:   errors.Invalid,
					Reason: fmt.Sprintf("Unit id %q is a reserved GitLab CI keyword", j.ID),
				}},
			})
		}
		doc.Set(j.ID, j.Job)
	}

	return marshal(doc)
}
