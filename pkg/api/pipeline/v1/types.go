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

// Package v1 defines the vendor neutral pipeline model that cigen compiles
// into CI configuration files.
package v1

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultImage is the execution environment used by stages that have
	// steps but no projects, when no project in the pipeline names an image.
	DefaultImage = "ubuntu:latest"
)

// DefaultBranches are the branches a pipeline activates on when its trigger
// does not name one. The first entry is the primary branch.
var DefaultBranches = []string{"main", "develop"}

// Pipeline is the root of a pipeline specification. It is immutable for the
// duration of one compile request.
type Pipeline struct {
	Trigger *Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty"`

	// Stages run in declared order.
	Stages []Stage `json:"stages,omitempty" yaml:"stages"`

	// Variables are pipeline wide environment variables.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Trigger scopes pipeline activation.
type Trigger struct {
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// Stage is an ordered phase of a pipeline.
type Stage struct {
	// ID identifies the stage and prefixes the identifiers of its units.
	ID   string `json:"id,omitempty" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name"`

	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	Projects []Project `json:"projects,omitempty" yaml:"projects,omitempty"`

	// Steps are used when the stage has no per-project breakdown.
	Steps []Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Project is a named unit of work within a Stage.
type Project struct {
	Name  string `json:"name,omitempty" yaml:"name"`
	Image string `json:"image,omitempty" yaml:"image"`
	Steps []Step `json:"steps,omitempty" yaml:"steps"`
}

// Step is a single shell invocation.
type Step struct {
	Command string `json:"command,omitempty" yaml:"command"`
}

// Branches returns the branches the pipeline activates on.
func (p *Pipeline) Branches() []string {
	if p.Trigger != nil && p.Trigger.Branch != "" {
		return []string{p.Trigger.Branch}
	}
	return append([]string(nil), DefaultBranches...)
}

// FirstImage returns the image of the first project in declared order, or
// DefaultImage.
func (p *Pipeline) FirstImage() string {
	for _, s := range p.Stages {
		for _, proj := range s.Projects {
			if proj.Image != "" {
				return proj.Image
			}
		}
	}
	return DefaultImage
}

// UnitID returns the identifier of the unit generated for a project of a
// stage. Identifiers are unique as long as stage ids are unique and project
// names are unique within their stage, ignoring case.
func UnitID(stageID, projectName string) string {
	return stageID + "-" + cases.Lower(language.Und).String(projectName)
}

// StageSummary is the per stage report returned to callers after a
// successful generate.
type StageSummary struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Parallel      bool   `json:"parallel" yaml:"parallel"`
	ProjectsCount int    `json:"projectsCount" yaml:"projectsCount"`
}

// Summaries returns one StageSummary per stage in declared order.
func (p *Pipeline) Summaries() []StageSummary {
	summaries := make([]StageSummary, 0, len(p.Stages))
	for _, s := range p.Stages {
		summaries = append(summaries, StageSummary{
			ID:            s.ID,
			Name:          s.Name,
			Parallel:      s.Parallel,
			ProjectsCount: len(s.Projects),
		})
	}
	return summaries
}

// Parse decodes a pipeline from YAML or JSON.
func Parse(data []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("unable to parse pipeline: %w", err)
	}
	return p, nil
}
