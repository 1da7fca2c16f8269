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

package resolver

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitutil"
)

const (
	genericGitExecError = `
Error: Failed to execute git command {{ printf "%q" .gitcmd }}
{{- if gt (len .repo) 0 }} against repo {{ printf "%q" .repo }}{{ end }}.
{{- template "ExecOutputDetails" . }}
`

	gitNotFoundError = `
Error: No git executable found. cigen requires git to be installed and available in the path.
`

	unknownRefGitExecError = `
Error: Unknown reference. Please verify that the branch exists in repo {{ printf "%q" .repo }}.
{{- template "ExecOutputDetails" . }}
`

	unavailableGitExecError = `
Error: Unable to reach repo {{ printf "%q" .repo }}.
{{- template "ExecOutputDetails" . }}
`
)

// gitExecErrorResolver is an implementation of the ErrorResolver interface
// that can produce error messages for errors of the gitutil.GitExecError type.
type gitExecErrorResolver struct{}

func (*gitExecErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var gitExecErr *gitutil.GitExecError
	if !goerrors.As(err, &gitExecErr) {
		return ResolvedResult{}, false
	}
	tmplArgs := gitArgs(gitExecErr)

	var msg string
	switch gitExecErr.Type {
	case gitutil.GitExecutableNotFound:
		msg = ExecuteTemplate(gitNotFoundError, tmplArgs)
	case gitutil.UnknownReference:
		msg = ExecuteTemplate(unknownRefGitExecError, tmplArgs)
	case gitutil.RepositoryUnavailable:
		msg = ExecuteTemplate(unavailableGitExecError, tmplArgs)
	case gitutil.AuthenticationFailed, gitutil.RepositoryNotFound:
		return ResolvedResult{
			Message:  ExecuteTemplate(authError, tmplArgs),
			ExitCode: ExitAuthFailure,
		}, true
	default:
		msg = ExecuteTemplate(genericGitExecError, tmplArgs)
	}
	return ResolvedResult{
		Message: msg,
	}, true
}

// gitArgs returns the template data describing a git failure. Credentials
// are removed from every value.
func gitArgs(e *gitutil.GitExecError) map[string]interface{} {
	cmd := strings.TrimSpace(fmt.Sprintf("git %s %s", e.Command, strings.Join(e.Args, " ")))
	return map[string]interface{}{
		"gitcmd": gitutil.Redact(cmd),
		"repo":   errors.Repo(e.Repo).Redacted(),
		"stdout": gitutil.Redact(strings.TrimSpace(e.StdOut)),
		"stderr": gitutil.Redact(strings.TrimSpace(e.StdErr)),
	}
}
