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

package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/kptdev/cigen/internal/errors"
	"k8s.io/klog/v2"
)

// DebugVerbosity is the klog level from which git output is mirrored.
const DebugVerbosity klog.Level = 6

// NewLocalGitRunner returns a new GitLocalRunner for a local repository.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewLocalGitRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.E(op, errors.Git, &GitExecError{
			Type: GitExecutableNotFound,
			Err:  err,
		})
	}

	return &GitLocalRunner{
		gitPath: p,
		Dir:     dir,
		Debug:   klog.V(DebugVerbosity).Enabled(),
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string

	// Timeout bounds every git invocation. Zero leaves the command bounded
	// only by the context and the transport.
	Timeout time.Duration

	// Debug mirrors the command output to stdout and stderr. It is on when
	// the log verbosity is at least DebugVerbosity.
	Debug bool

	// Env is appended to the process environment of every command.
	Env []string
}

// IdentityEnv returns the environment that makes git author and commit as
// name and email. Empty values leave the git configuration in charge.
func IdentityEnv(name, email string) []string {
	var env []string
	if name != "" {
		env = append(env, "GIT_AUTHOR_NAME="+name, "GIT_COMMITTER_NAME="+name)
	}
	if email != "" {
		env = append(env, "GIT_AUTHOR_EMAIL="+email, "GIT_COMMITTER_EMAIL="+email)
	}
	return env
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command.
// Omit the 'git' part of the command.
// The first return value contains the output to Stdout and Stderr when
// running the command.
func (g *GitLocalRunner) Run(ctx context.Context, command string, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.Run"

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	fullArgs := append([]string{command}, args...)
	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	cmd.Dir = g.Dir
	// Credentials come embedded in the repository URL; never block on a
	// terminal prompt when they are missing or wrong.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, g.Env...)

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	if g.Debug {
		cmd.Stdout = io.MultiWriter(cmdStdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(cmdStderr, os.Stderr)
	} else {
		cmd.Stdout = cmdStdout
		cmd.Stderr = cmdStderr
	}

	klog.V(4).Infof("git %s %s (dir %s)", command, strings.Join(redactArgs(args), " "), g.Dir)
	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("git %s timed out: %w", command, ctx.Err())
		}
		return RunResult{}, errors.E(op, errors.Git, &GitExecError{
			Type:    determineErrorType(cmdStderr.String()),
			Command: command,
			Args:    args,
			Err:     err,
			StdOut:  cmdStdout.String(),
			StdErr:  cmdStderr.String(),
		})
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// Clone clones uri into dir, which must not exist or must be empty.
func Clone(ctx context.Context, runner *GitLocalRunner, uri, dir string) error {
	const op errors.Op = "gitutil.Clone"
	if _, err := runner.Run(ctx, "clone", "--", uri, dir); err != nil {
		var gitErr *GitExecError
		if errors.As(err, &gitErr) {
			gitErr.Repo = uri
		}
		return errors.E(op, errors.Repo(uri), err)
	}
	return nil
}

// GitExecErrorType classifies a failed git invocation.
type GitExecErrorType int

const (
	// Unknown is used when we can't classify an error into any of the other
	// categories.
	Unknown GitExecErrorType = iota
	// GitExecutableNotFound means the git executable wasn't available.
	GitExecutableNotFound
	// UnknownReference means that provided reference (tag, branch) wasn't
	// found
	UnknownReference
	// AuthenticationFailed means the remote rejected the credentials in the
	// URL, or none were provided for a private repository.
	AuthenticationFailed
	// RepositoryNotFound means the remote repository does not exist or is
	// not visible with the supplied credentials.
	RepositoryNotFound
	// RepositoryUnavailable means that the repository was found, but it
	// could not be reached.
	RepositoryUnavailable
	// NoUpstreamBranch means a push had no remote branch to update.
	NoUpstreamBranch
	// PushRejected means the remote refused the push, usually because its
	// history diverged from ours.
	PushRejected
	// WorktreeConflict means local untracked or modified files would be
	// overwritten by the operation.
	WorktreeConflict
	// RebaseConflict means a rebase stopped on conflicting changes.
	RebaseConflict
)

func (t GitExecErrorType) String() string {
	switch t {
	case GitExecutableNotFound:
		return "git executable not found"
	case UnknownReference:
		return "unknown reference"
	case AuthenticationFailed:
		return "authentication failed"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case NoUpstreamBranch:
		return "no upstream branch"
	case PushRejected:
		return "push rejected"
	case WorktreeConflict:
		return "worktree conflict"
	case RebaseConflict:
		return "rebase conflict"
	}
	return "unknown"
}

// GitExecError is the error returned when a git command fails.
type GitExecError struct {
	Type    GitExecErrorType
	Repo    string
	Command string
	Args    []string
	Err     error
	StdErr  string
	StdOut  string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	if e.Command != "" {
		b.WriteString("git ")
		b.WriteString(e.Command)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	if stderr := strings.TrimSpace(e.StdErr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(Redact(stderr))
	}
	return b.String()
}

func (e *GitExecError) Unwrap() error {
	return e.Err
}

// determineErrorType classifies git's stderr output. Git reports most
// failure causes only as text, so this is the single place that inspects it.
func determineErrorType(stderr string) GitExecErrorType {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "authentication failed"),
		strings.Contains(s, "could not read username"),
		strings.Contains(s, "could not read password"),
		strings.Contains(s, "terminal prompts disabled"),
		strings.Contains(s, "access denied"),
		strings.Contains(s, "permission denied"),
		strings.Contains(s, "the requested url returned error: 401"),
		strings.Contains(s, "the requested url returned error: 403"):
		return AuthenticationFailed
	case strings.Contains(s, "repository not found"),
		strings.Contains(s, "does not appear to be a git repository"),
		strings.Contains(s, "' does not exist"),
		strings.Contains(s, "the requested url returned error: 404"):
		return RepositoryNotFound
	case strings.Contains(s, "could not resolve host"),
		strings.Contains(s, "unable to access"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection timed out"):
		return RepositoryUnavailable
	case strings.Contains(s, "has no upstream branch"),
		strings.Contains(s, "no upstream branch"),
		strings.Contains(s, "does not match any"):
		return NoUpstreamBranch
	case strings.Contains(s, "couldn't find remote ref"),
		strings.Contains(s, "unknown revision"),
		strings.Contains(s, "did not match any file(s) known to git"):
		return UnknownReference
	case strings.Contains(s, "would be overwritten"),
		strings.Contains(s, "untracked working tree files"):
		return WorktreeConflict
	case strings.Contains(s, "[rejected]"),
		strings.Contains(s, "non-fast-forward"),
		strings.Contains(s, "fetch first"),
		strings.Contains(s, "updates were rejected"),
		strings.Contains(s, "failed to push some refs"):
		return PushRejected
	case strings.Contains(s, "could not apply"),
		strings.Contains(s, "conflict"),
		strings.Contains(s, "rebase in progress"):
		return RebaseConflict
	}
	return Unknown
}

// ErrorType returns the GitExecErrorType of the first GitExecError in the
// chain, or Unknown.
func ErrorType(err error) GitExecErrorType {
	var gitErr *GitExecError
	if errors.As(err, &gitErr) {
		return gitErr.Type
	}
	return Unknown
}

// redactArgs hides the password of any URL in args.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i := range args {
		out[i] = Redact(args[i])
	}
	return out
}

// Redact hides the password of any URL in s.
func Redact(s string) string {
	return credentialsInURL.ReplaceAllString(s, "${1}${2}:xxxxx@")
}

var credentialsInURL = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)([^/@\s:]+):([^@\s/]+)@`)
