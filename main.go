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

package main

import (
	"context"
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/kptdev/cigen/internal/errors/resolver"
	"github.com/kptdev/cigen/internal/util/cmdutil"
	"github.com/kptdev/cigen/run"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(runMain())
}

// runMain does all the work, and returns the exit code
func runMain() int {
	defer klog.Flush()
	ctx := context.Background()

	cmd, err := run.GetMain(ctx)
	if err == nil {
		err = cmd.Execute()
	}
	if err != nil {
		return handleErr(err)
	}
	return 0
}

// handleErr takes care of printing an error message for a given error.
func handleErr(err error) int {
	if cmdutil.PrintErrorStacktrace() {
		fmt.Fprintf(os.Stderr, "%s", goerrors.Wrap(err, 1).ErrorStack())
	}

	// find a matching error resolver and use it to print a friendly message
	resolvedResult, found := resolver.ResolveError(err)
	if found {
		fmt.Fprintf(os.Stderr, "%s\n", resolvedResult.Message)
		return resolvedResult.ExitCode
	}

	// fallback to default error message
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
