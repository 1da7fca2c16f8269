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

package generator

import (
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
)

// Example returns a pipeline that builds and tests a web frontend and a Java
// backend in parallel, then deploys from the main branch.
func Example() *v1.Pipeline {
	return &v1.Pipeline{
		Trigger: &v1.Trigger{Branch: "main"},
		Variables: map[string]string{
			"NODE_ENV": "production",
		},
		Stages: []v1.Stage{
			{
				ID:       "build",
				Name:     "Build",
				Parallel: true,
				Projects: []v1.Project{
					{
						Name:  "Frontend",
						Image: "node:18",
						Steps: []v1.Step{
							{Command: "npm ci"},
							{Command: "npm run build"},
						},
					},
					{
						Name:  "Backend",
						Image: "maven:3.9-eclipse-temurin-17",
						Steps: []v1.Step{
							{Command: "mvn -B package -DskipTests"},
						},
					},
				},
			},
			{
				ID:   "test",
				Name: "Test",
				Projects: []v1.Project{
					{
						Name:  "Frontend",
						Image: "node:18",
						Steps: []v1.Step{{Command: "npm test"}},
					},
					{
						Name:  "Backend",
						Image: "maven:3.9-eclipse-temurin-17",
						Steps: []v1.Step{{Command: "mvn -B test"}},
					},
				},
			},
			{
				ID:   "deploy",
				Name: "Deploy",
				Steps: []v1.Step{
					{Command: "./scripts/deploy.sh"},
				},
			},
		},
	}
}
