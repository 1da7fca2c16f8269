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

// Package validate performs the static structural checks on a pipeline. It
// never touches the filesystem or the network.
package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/shlex"
	"github.com/kptdev/cigen/internal/errors"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed pipeline.schema.json
var pipelineSchema []byte

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// unitIDPattern matches identifiers every dialect accepts as a job or stage
// key. Stage ids are held to it by the schema, unit ids derived from project
// names are checked here.
var unitIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// reservedUnitIDs are the top level GitLab CI keys that are never jobs. A
// unit id equal to one of them would be read as configuration.
var reservedUnitIDs = map[string]bool{
	"after_script":  true,
	"before_script": true,
	"cache":         true,
	"default":       true,
	"image":         true,
	"include":       true,
	"services":      true,
	"stages":        true,
	"types":         true,
	"variables":     true,
	"workflow":      true,
}

// ReservedUnitID reports whether id clashes with a top level keyword of one
// of the dialects.
func ReservedUnitID(id string) bool {
	return reservedUnitIDs[id]
}

func getSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader(pipelineSchema)
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// Pipeline validates p and returns every violation found. A nil or empty
// result means the pipeline is valid.
func Pipeline(p *v1.Pipeline) errors.Violations {
	if p == nil {
		return errors.Violations{{
			Field:  "pipeline",
			Type:   errors.Missing,
			Reason: "Pipeline configuration is required",
		}}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Violations{{
			Field:  "pipeline",
			Type:   errors.Invalid,
			Reason: fmt.Sprintf("Pipeline cannot be encoded: %v", err),
		}}
	}
	violations := JSON(data)
	return append(violations, semantic(p)...)
}

// JSON validates the raw JSON form of a pipeline against the schema.
func JSON(data []byte) errors.Violations {
	schema, err := getSchema()
	if err != nil {
		// The schema is embedded; failing to compile it is a programming error.
		panic(fmt.Errorf("compiling pipeline schema: %w", err))
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Violations{{
			Field:  "pipeline",
			Type:   errors.Invalid,
			Reason: fmt.Sprintf("Pipeline is not valid JSON: %v", err),
		}}
	}
	if result.Valid() {
		return nil
	}

	violations := make(errors.Violations, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		vt := errors.Invalid
		if e.Type() == "required" {
			vt = errors.Missing
		}
		violations = append(violations, errors.Violation{
			Field:  e.Field(),
			Type:   vt,
			Reason: e.String(),
		})
	}
	return violations
}

// semantic covers the rules a JSON schema cannot express: identifier
// uniqueness across the whole pipeline, stages without work, and commands
// a shell could not tokenize.
func semantic(p *v1.Pipeline) errors.Violations {
	var violations errors.Violations
	stageIDs := map[string]int{}
	unitIDs := map[string]string{}

	claim := func(unit, owner string) {
		if ReservedUnitID(unit) {
			violations = append(violations, errors.Violation{
				Field:  "stages",
				Value:  unit,
				Type:   errors.Invalid,
				Reason: fmt.Sprintf("Unit id %q of %s is a reserved GitLab CI keyword", unit, owner),
			})
			return
		}
		if prev, found := unitIDs[unit]; found {
			violations = append(violations, errors.Violation{
				Field:  "stages",
				Value:  unit,
				Type:   errors.Invalid,
				Reason: fmt.Sprintf("Unit id %q of %s collides with %s", unit, owner, prev),
			})
			return
		}
		unitIDs[unit] = owner
	}

	for i, s := range p.Stages {
		field := fmt.Sprintf("stages.%d", i)
		if s.ID != "" {
			if first, found := stageIDs[s.ID]; found {
				violations = append(violations, errors.Violation{
					Field:  field + ".id",
					Value:  s.ID,
					Type:   errors.Invalid,
					Reason: fmt.Sprintf("Stage %d reuses id %q of stage %d", i+1, s.ID, first+1),
				})
			} else {
				stageIDs[s.ID] = i
			}
		}

		if len(s.Projects) == 0 {
			if len(s.Steps) == 0 {
				violations = append(violations, errors.Violation{
					Field:  field,
					Type:   errors.Missing,
					Reason: fmt.Sprintf("Stage %s has no projects or steps", stageLabel(s, i)),
				})
			}
			claim(s.ID, "stage "+stageLabel(s, i))
		}
		for j, proj := range s.Projects {
			if proj.Name != "" && s.ID != "" {
				unit := v1.UnitID(s.ID, proj.Name)
				if !unitIDPattern.MatchString(unit) {
					violations = append(violations, errors.Violation{
						Field:  fmt.Sprintf("%s.projects.%d.name", field, j),
						Value:  proj.Name,
						Type:   errors.Invalid,
						Reason: fmt.Sprintf("Project name %q yields unit id %q, which must match %s", proj.Name, unit, unitIDPattern),
					})
				} else {
					claim(unit, fmt.Sprintf("stage %s, project %s", s.ID, proj.Name))
				}
			}
			for k, step := range proj.Steps {
				if v, ok := checkCommand(step.Command, fmt.Sprintf("%s.projects.%d.steps.%d.command", field, j, k)); !ok {
					violations = append(violations, v)
				}
			}
		}
		for k, step := range s.Steps {
			if v, ok := checkCommand(step.Command, fmt.Sprintf("%s.steps.%d.command", field, k)); !ok {
				violations = append(violations, v)
			}
		}
	}
	return violations
}

func checkCommand(command, field string) (errors.Violation, bool) {
	if command == "" {
		return errors.Violation{}, true
	}
	if _, err := shlex.Split(command); err != nil {
		return errors.Violation{
			Field:  field,
			Value:  command,
			Type:   errors.Invalid,
			Reason: fmt.Sprintf("%s: command %q cannot be tokenized: %v", field, command, err),
		}, false
	}
	return errors.Violation{}, true
}

func stageLabel(s v1.Stage, index int) string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprint(index + 1)
}

// Error returns a Validation error for p, or nil if p is valid.
func Error(p *v1.Pipeline) error {
	const op errors.Op = "validate.Pipeline"
	violations := Pipeline(p)
	if len(violations) == 0 {
		return nil
	}
	return errors.E(op, errors.Validation, &errors.ValidationError{Violations: violations})
}
