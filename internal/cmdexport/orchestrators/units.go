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
	"sort"

	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

// ArtifactPaths are the build output directories every unit retains.
var ArtifactPaths = []string{"**/dist/", "**/build/", "**/target/"}

// unit is an independently scheduled piece of work. Every dialect maps one
// unit onto one job or stage.
type unit struct {
	ID       string
	Name     string
	Image    string
	Commands []string
}

// plannedStage is a pipeline stage with its units resolved.
type plannedStage struct {
	v1.Stage
	Units []unit
}

// unitIDs returns the ids of the stage's units in declared order.
func (s plannedStage) unitIDs() []string {
	ids := make([]string, 0, len(s.Units))
	for _, u := range s.Units {
		ids = append(ids, u.ID)
	}
	return ids
}

// plan resolves the units of every stage of p.
func plan(p *v1.Pipeline) []plannedStage {
	fallbackImage := p.FirstImage()

	stages := make([]plannedStage, 0, len(p.Stages))
	for _, s := range p.Stages {
		ps := plannedStage{Stage: s}
		switch {
		case len(s.Projects) > 0:
			for _, proj := range s.Projects {
				ps.Units = append(ps.Units, unit{
					ID:       v1.UnitID(s.ID, proj.Name),
					Name:     proj.Name,
					Image:    proj.Image,
					Commands: commands(proj.Steps),
				})
			}
		default:
			// A stage with steps but no projects runs as a single unit. A
			// stage with neither still gets a unit so that ordering holds.
			ps.Units = []unit{{
				ID:       s.ID,
				Name:     s.Name,
				Image:    fallbackImage,
				Commands: commands(s.Steps),
			}}
		}
		stages = append(stages, ps)
	}
	return stages
}

func commands(steps []v1.Step) []string {
	var out []string
	for _, s := range steps {
		out = append(out, s.Command)
	}
	return out
}

// variable is a single pipeline environment variable.
type variable struct {
	Key   string
	Value string
}

// sortedVariables returns the variables of p ordered by key.
func sortedVariables(p *v1.Pipeline) []variable {
	vars := make([]variable, 0, len(p.Variables))
	for k, v := range p.Variables {
		vars = append(vars, variable{Key: k, Value: v})
	}
	sort.Slice(vars, func(i, j int) bool {
		return vars[i].Key < vars[j].Key
	})
	return vars
}
