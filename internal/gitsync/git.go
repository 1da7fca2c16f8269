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

package gitsync

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/kptdev/cigen/internal/gitutil"
	"github.com/kptdev/cigen/internal/types"
)

// Git is the set of git operations the engine drives. Every method works on
// the repository of one workspace and on the remote named origin.
type Git interface {
	// Status returns the porcelain status of the working tree.
	Status(ctx context.Context) (string, error)
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	PullRebase(ctx context.Context, branch string) error
	// AbortRebase aborts a rebase left in progress. It is a no-op when no
	// rebase is in progress.
	AbortRebase(ctx context.Context) error
	Push(ctx context.Context, branch string) error
	PushSetUpstream(ctx context.Context, branch string) error
	Fetch(ctx context.Context, branch string) error
	ResetHard(ctx context.Context, ref string) error
}

// ExecGit implements Git by running the git executable.
type ExecGit struct {
	runner *gitutil.GitLocalRunner
}

var _ Git = &ExecGit{}

// NewExecGit returns an ExecGit for the repository at dir. env is added to
// the environment of every git command.
func NewExecGit(dir types.UniquePath, timeout time.Duration, env []string) (*ExecGit, error) {
	runner, err := gitutil.NewLocalGitRunner(dir.String())
	if err != nil {
		return nil, err
	}
	runner.Timeout = timeout
	runner.Env = env
	return &ExecGit{runner: runner}, nil
}

func (g *ExecGit) Status(ctx context.Context) (string, error) {
	rr, err := g.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return rr.Stdout, nil
}

func (g *ExecGit) AddAll(ctx context.Context) error {
	_, err := g.runner.Run(ctx, "add", "-A")
	return err
}

func (g *ExecGit) Commit(ctx context.Context, message string) error {
	_, err := g.runner.Run(ctx, "commit", "-m", message)
	return err
}

func (g *ExecGit) PullRebase(ctx context.Context, branch string) error {
	_, err := g.runner.Run(ctx, "pull", "--rebase", "origin", branch)
	return err
}

func (g *ExecGit) AbortRebase(ctx context.Context) error {
	gitDir := filepath.Join(g.runner.Dir, ".git")
	if !exists(filepath.Join(gitDir, "rebase-merge")) && !exists(filepath.Join(gitDir, "rebase-apply")) {
		return nil
	}
	_, err := g.runner.Run(ctx, "rebase", "--abort")
	return err
}

func (g *ExecGit) Push(ctx context.Context, branch string) error {
	_, err := g.runner.Run(ctx, "push", "origin", branch)
	return err
}

func (g *ExecGit) PushSetUpstream(ctx context.Context, branch string) error {
	_, err := g.runner.Run(ctx, "push", "--set-upstream", "origin", branch)
	return err
}

func (g *ExecGit) Fetch(ctx context.Context, branch string) error {
	_, err := g.runner.Run(ctx, "fetch", "origin", branch)
	return err
}

func (g *ExecGit) ResetHard(ctx context.Context, ref string) error {
	_, err := g.runner.Run(ctx, "reset", "--hard", ref)
	return err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
