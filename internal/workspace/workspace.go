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

// Package workspace clones remote repositories into isolated per request
// directories and puts them on the requested branch.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitutil"
	"github.com/kptdev/cigen/internal/types"
	"k8s.io/klog/v2"
)

// Workspace is a local clone owned by a single request.
type Workspace struct {
	// Path is the absolute path of the clone.
	Path types.UniquePath
	// Branch is the branch checked out in the clone.
	Branch string
	// RepositoryURL is the remote the clone was made from.
	RepositoryURL string
}

// Remove deletes the workspace directory.
func (w *Workspace) Remove() error {
	const op errors.Op = "workspace.Remove"
	if err := os.RemoveAll(w.Path.String()); err != nil {
		return errors.E(op, w.Path, errors.IO, err)
	}
	return nil
}

// Provisioner creates workspaces below Root.
type Provisioner struct {
	// Root is the directory workspaces are created in.
	Root string

	// DefaultBranch is used when Provision is called without a branch.
	DefaultBranch string

	// GitTimeout bounds each git command. Zero disables the bound.
	GitTimeout time.Duration

	// newID returns the directory name of a new workspace.
	newID func() string
}

// NewProvisioner returns a Provisioner creating workspaces below root.
func NewProvisioner(root, defaultBranch string, gitTimeout time.Duration) *Provisioner {
	return &Provisioner{
		Root:          root,
		DefaultBranch: defaultBranch,
		GitTimeout:    gitTimeout,
		newID:         uuid.NewString,
	}
}

// Provision clones repositoryURL into a fresh directory and checks out
// branch. Credentials must already be embedded in the URL. Failed clones
// leave nothing behind.
func (p *Provisioner) Provision(ctx context.Context, repositoryURL, branch string) (*Workspace, error) {
	const op errors.Op = "workspace.Provision"
	repo := errors.Repo(repositoryURL)

	if repositoryURL == "" {
		return nil, errors.E(op, errors.MissingParam, fmt.Errorf("repository URL is required"))
	}
	if branch == "" {
		branch = p.DefaultBranch
	}

	root, err := filepath.Abs(p.Root)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.E(op, types.UniquePath(root), errors.IO, err)
	}

	newID := p.newID
	if newID == nil {
		newID = uuid.NewString
	}
	dir := types.UniquePath(filepath.Join(root, newID()))

	runner, err := gitutil.NewLocalGitRunner(root)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}
	runner.Timeout = p.GitTimeout

	klog.Infof("cloning %s into %s", repo.Redacted(), dir)
	if err := gitutil.Clone(ctx, runner, repositoryURL, dir.String()); err != nil {
		_ = os.RemoveAll(dir.String())
		switch gitutil.ErrorType(err) {
		case gitutil.AuthenticationFailed, gitutil.RepositoryNotFound:
			return nil, errors.E(op, repo, errors.Auth, err)
		}
		return nil, errors.E(op, repo, errors.Git, err)
	}

	ws := &Workspace{
		Path:          dir,
		Branch:        branch,
		RepositoryURL: repositoryURL,
	}
	runner.Dir = dir.String()
	if err := checkoutBranch(ctx, runner, dir, branch); err != nil {
		_ = ws.Remove()
		return nil, errors.E(op, repo, dir, err)
	}
	return ws, nil
}

// checkoutBranch puts the clone at dir on branch. An existing remote branch
// is tracked, otherwise a new local branch starts at the clone's HEAD.
func checkoutBranch(ctx context.Context, runner *gitutil.GitLocalRunner, dir types.UniquePath, branch string) error {
	const op errors.Op = "workspace.checkoutBranch"

	current, remoteExists, err := inspectClone(dir, branch)
	if err != nil {
		return errors.E(op, errors.Git, err)
	}
	if current == branch {
		klog.V(2).Infof("clone is already on branch %s", branch)
		return nil
	}

	if remoteExists {
		_, err := runner.Run(ctx, "checkout", "-b", branch, "origin/"+branch)
		if err == nil {
			klog.V(2).Infof("tracking remote branch origin/%s", branch)
			return nil
		}
		klog.Warningf("unable to track origin/%s, creating a local branch instead: %v", branch, err)
	}

	if _, err := runner.Run(ctx, "checkout", "-b", branch); err != nil {
		return errors.E(op, errors.Git, err)
	}
	klog.V(2).Infof("created local branch %s", branch)
	return nil
}

// inspectClone returns the branch checked out at dir, empty for a detached
// HEAD, and whether origin has branch.
func inspectClone(dir types.UniquePath, branch string) (string, bool, error) {
	repo, err := gogit.PlainOpen(dir.String())
	if err != nil {
		return "", false, err
	}

	// HEAD is read unresolved so that an unborn branch still counts as
	// current.
	current := ""
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", false, err
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		current = head.Target().Short()
	}

	_, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	switch {
	case err == nil:
		return current, true, nil
	case err == plumbing.ErrReferenceNotFound:
		return current, false, nil
	}
	return "", false, err
}
