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

// Package orchestrators compiles a vendor neutral pipeline into the
// configuration file of a CI system.
package orchestrators

import (
	"fmt"
	"strings"

	"github.com/kptdev/cigen/internal/errors"
	cigenstrings "github.com/kptdev/cigen/internal/util/strings"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

// Pipeline is a CI configuration dialect. Init binds the pipeline model and
// Generate renders it. Generate must be deterministic.
type Pipeline interface {
	Init(p *v1.Pipeline) Pipeline
	Generate() ([]byte, error)
}

// Dialect identifies a supported target configuration format.
type Dialect struct {
	// Name is the canonical token.
	Name string
	// Path is where the generated file lives, relative to the repository
	// root and slash separated.
	Path string
}

var (
	GitHub  = Dialect{Name: "github", Path: ".github/workflows/ci.yml"}
	GitLab  = Dialect{Name: "gitlab", Path: ".gitlab-ci.yml"}
	Jenkins = Dialect{Name: "jenkins", Path: "Jenkinsfile"}
)

// Dialects returns the canonical dialect tokens.
func Dialects() []string {
	return []string{GitHub.Name, GitLab.Name, Jenkins.Name}
}

// LookupDialect resolves a dialect token or one of its aliases. Tokens are
// case insensitive.
func LookupDialect(token string) (Dialect, error) {
	const op errors.Op = "orchestrators.LookupDialect"
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "github", "github-actions":
		return GitHub, nil
	case "gitlab", "gitlab-ci":
		return GitLab, nil
	case "jenkins":
		return Jenkins, nil
	}
	return Dialect{}, errors.E(op, errors.UnsupportedDialect,
		fmt.Errorf("unsupported platform %q, must be one of %s", token, cigenstrings.QuotedList(Dialects(), "or")))
}

// New returns an empty emitter for the dialect.
func (d Dialect) New() Pipeline {
	switch d.Name {
	case GitHub.Name:
		return new(GitHubActions)
	case GitLab.Name:
		return new(GitLabCI)
	case Jenkins.Name:
		return new(JenkinsPipeline)
	}
	return nil
}

// Artifact is a compiled configuration file.
type Artifact struct {
	Dialect string
	Path    string
	Content []byte
}

// Compile renders p in the named dialect. It has no side effects.
func Compile(p *v1.Pipeline, dialect string) (Artifact, error) {
	const op errors.Op = "orchestrators.Compile"
	d, err := LookupDialect(dialect)
	if err != nil {
		return Artifact{}, errors.E(op, err)
	}
	if p == nil || len(p.Stages) == 0 {
		return Artifact{}, errors.E(op, errors.Validation, &errors.ValidationError{
			Violations: errors.Violations{{
				Field:  "stages",
				Type:   errors.Missing,
				Reason: "Pipeline must have at least one stage",
			}},
		})
	}
	content, err := d.New().Init(p).Generate()
	if err != nil {
		return Artifact{}, errors.E(op, err)
	}
	return Artifact{
		Dialect: d.Name,
		Path:    d.Path,
		Content: content,
	}, nil
}
