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
	"bytes"
	"fmt"
	"strings"
	"text/template"

	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

// JenkinsPollSchedule is how often Jenkins polls the repository for changes.
const JenkinsPollSchedule = "H/5 * * * *"

// JenkinsPipeline is a declarative Jenkinsfile that uses the `any` agent at
// the top level and a docker agent per unit.
type JenkinsPipeline struct {
	Environment []variable
	Stages      []*JenkinsStage
}

func (p *JenkinsPipeline) Init(pipeline *v1.Pipeline) Pipeline {
	p.Environment = sortedVariables(pipeline)
	p.Stages = nil

	branches := pipeline.Branches()
	for _, stage := range plan(pipeline) {
		p.Stages = append(p.Stages, (&JenkinsStage{}).Init(stage, branches))
	}

	return p
}

func (p *JenkinsPipeline) Generate() (out []byte, err error) {
	templateString := `
pipeline {
    agent any
{{- if .Environment}}

    environment {
{{- range .Environment}}
        {{.Key}} = '{{groovy .Value}}'
{{- end}}
    }
{{- end}}

    triggers {
        pollSCM('{{.Schedule}}')
    }

    stages {
        stage('Checkout') {
            steps {
                echo 'Checking out source code...'
                checkout scm
            }
        }
{{- range .Stages}}

        {{.Generate | indent 8}}
{{- end}}
    }

    post {
        always {
            echo 'Pipeline completed!'
            cleanWs()
        }
        success {
            echo 'Pipeline succeeded!'
        }
        failure {
            echo 'Pipeline failed!'
        }
    }
}
`

	result, err := renderTemplate("pipeline", templateString, p)
	out = []byte(result)

	return
}

// Schedule is the SCM polling schedule.
func (p *JenkinsPipeline) Schedule() string {
	return JenkinsPollSchedule
}

// JenkinsStage is a top level stage of a Jenkinsfile, guarded by the branch
// set. A stage with one planned unit runs it directly, otherwise its units
// are nested in a parallel or a sequential block.
type JenkinsStage struct {
	Name     string
	Branches []string
	Parallel bool
	// Single is set when the stage runs its only unit itself.
	Single *JenkinsUnit
	Units  []*JenkinsUnit
}

func (stage *JenkinsStage) Init(planned plannedStage, branches []string) *JenkinsStage {
	stage.Name = planned.Name
	stage.Branches = branches
	stage.Parallel = planned.Parallel
	stage.Single = nil
	stage.Units = nil

	if len(planned.Projects) == 0 {
		stage.Single = (&JenkinsUnit{}).Init(planned.Units[0])
		return stage
	}
	for _, u := range planned.Units {
		stage.Units = append(stage.Units, (&JenkinsUnit{}).Init(u))
	}
	return stage
}

func (stage *JenkinsStage) Generate() (result string, err error) {
	templateString := `
stage('{{groovy .Name}}') {
    when {
        anyOf {
{{- range .Branches}}
            branch '{{groovy .}}'
{{- end}}
        }
    }
{{- if .Single}}
    {{.Single.Body | indent 4}}
{{- else}}
    {{if .Parallel}}parallel{{else}}stages{{end}} {
{{- range .Units}}
        {{.Generate | indent 8}}
{{- end}}
    }
{{- end}}
}`

	result, err = renderTemplate("stage", templateString, stage)

	return
}

// JenkinsUnit runs the commands of one unit inside its docker image.
type JenkinsUnit struct {
	ID       string
	Image    string
	Commands []string
	Archive  string
}

func (u *JenkinsUnit) Init(planned unit) *JenkinsUnit {
	u.ID = planned.ID
	u.Image = planned.Image
	u.Commands = planned.Commands

	var patterns []string
	for _, p := range ArtifactPaths {
		patterns = append(patterns, p+"**")
	}
	u.Archive = strings.Join(patterns, ", ")

	return u
}

// Body renders the agent, steps and post sections of the unit.
func (u *JenkinsUnit) Body() (result string, err error) {
	templateString := `
agent {
    docker {
        image '{{groovy .Image}}'
    }
}
steps {
{{- range .Commands}}
    sh '{{groovy .}}'
{{- else}}
    echo 'No steps defined for {{groovy .ID}}'
{{- end}}
}
post {
    success {
        archiveArtifacts artifacts: '{{groovy .Archive}}', allowEmptyArchive: true
    }
}`

	result, err = renderTemplate("unit", templateString, u)

	return
}

// Generate renders the unit as a nested stage.
func (u *JenkinsUnit) Generate() (result string, err error) {
	templateString := `
stage('{{groovy .ID}}') {
    {{.Body | indent 4}}
}`

	result, err = renderTemplate("unitStage", templateString, u)

	return
}

// groovy escapes s for use inside a single quoted Groovy string.
func groovy(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return r.Replace(s)
}

// indent adds spaces to the beginning of each line in the multiline string.
func indent(spaces int, multilineString string) string {
	indentation := strings.Repeat(" ", spaces)
	replacement := fmt.Sprintf("\n%s", indentation)

	return strings.ReplaceAll(
		multilineString,
		"\n",
		replacement,
	)
}

// renderTemplate fills a template from templateString with data.
// Starting empty new lines in the template will be trimmed.
// The indent and groovy functions are supported in the template.
func renderTemplate(
	templateName string,
	templateString string,
	data interface{},
) (result string, err error) {
	templateString = strings.TrimLeft(templateString, "\n")

	t, err := template.New(templateName).Funcs(template.FuncMap{
		"indent": indent,
		"groovy": groovy,
	}).Parse(templateString)

	if err != nil {
		return
	}

	b := &bytes.Buffer{}
	err = t.Execute(b, data)
	result = b.String()

	return
}
