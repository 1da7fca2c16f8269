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

// Package cmdutil holds helpers shared by the cigen commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/types"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/spf13/cobra"
)

const (
	StackTraceOnErrors = "COBRA_STACK_TRACE_ON_ERRORS"
	trueString         = "true"

	// Stdin is the file argument that makes a command read from stdin.
	Stdin = "-"
)

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	if StackOnError || e == trueString || e == "1" {
		return true
	}
	return false
}

// FixDocs replaces instances of old with new in the docs for c
func FixDocs(old, new string, c *cobra.Command) {
	c.Use = strings.ReplaceAll(c.Use, old, new)
	c.Short = strings.ReplaceAll(c.Short, old, new)
	c.Long = strings.ReplaceAll(c.Long, old, new)
	c.Example = strings.ReplaceAll(c.Example, old, new)
}

// ReadPipeline reads a YAML or JSON pipeline from path, or from in when path
// is Stdin.
func ReadPipeline(path string, in io.Reader) (*v1.Pipeline, error) {
	const op errors.Op = "cmdutil.ReadPipeline"

	var data []byte
	var err error
	if path == Stdin {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.E(op, types.UniquePath(path), errors.IO, err)
	}

	p, err := v1.Parse(data)
	if err != nil {
		return nil, errors.E(op, types.UniquePath(path), errors.Validation, &errors.ValidationError{
			Violations: errors.Violations{{
				Field:  "pipeline",
				Type:   errors.Invalid,
				Reason: fmt.Sprintf("%s: %v", path, err),
			}},
		})
	}
	return p, nil
}
