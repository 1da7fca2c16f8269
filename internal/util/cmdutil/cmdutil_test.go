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

package cmdutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineYAML = `trigger:
  branch: main
stages:
- id: build
  name: Build
  steps:
  - command: make
`

func TestReadPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0644))

	p, err := ReadPipeline(path, nil)
	require.NoError(t, err)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, "build", p.Stages[0].ID)
	assert.Equal(t, "main", p.Trigger.Branch)
}

func TestReadPipelineStdin(t *testing.T) {
	p, err := ReadPipeline(Stdin, strings.NewReader(`{"stages":[{"id":"a","name":"A","steps":[{"command":"true"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "a", p.Stages[0].ID)
}

func TestReadPipelineErrors(t *testing.T) {
	_, err := ReadPipeline(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))

	_, err = ReadPipeline(Stdin, strings.NewReader("stages:\n- id: a\n  unknown: field\n"))
	require.Error(t, err)
	assert.Equal(t, errors.Validation, errors.KindOf(err))
}

func TestPrintErrorStacktrace(t *testing.T) {
	t.Setenv(StackTraceOnErrors, "")
	StackOnError = false
	assert.False(t, PrintErrorStacktrace())

	t.Setenv(StackTraceOnErrors, "1")
	assert.True(t, PrintErrorStacktrace())
}
