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

// Package testutil provides local git remotes and assertions for tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"
	assertnow "gotest.tools/assert"
)

const (
	// DatasetApp is a small application without any CI configuration.
	DatasetApp = "app"

	// MainBranch is the default branch of every test remote.
	MainBranch = "main"

	authorName  = "cigen-test"
	authorEmail = "cigen-test@example.com"
)

var AssertNoError = assertnow.NilError

// TestGitRepo manages a bare remote repository for testing and a working
// clone used to seed it.
type TestGitRepo struct {
	// RemoteDirectory is the bare repository. Its path is usable as a clone
	// URL.
	RemoteDirectory string

	// RepoDirectory is the working clone commits are pushed from.
	RepoDirectory string
}

// NewTestGitRepo creates a bare remote whose main branch holds dataset. Each
// extra branch gets one more commit on top of main.
func NewTestGitRepo(t *testing.T, dataset string, branches ...string) *TestGitRepo {
	t.Helper()
	g := &TestGitRepo{
		RemoteDirectory: filepath.Join(t.TempDir(), "remote.git"),
		RepoDirectory:   t.TempDir(),
	}

	remote, err := gogit.PlainInit(g.RemoteDirectory, true)
	require.NoError(t, err)
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(MainBranch))
	require.NoError(t, remote.Storer.SetReference(head))

	Git(t, g.RepoDirectory, "init")
	Git(t, g.RepoDirectory, "checkout", "-b", MainBranch)
	if dataset != "" {
		CopyData(t, dataset, g.RepoDirectory)
	} else {
		WriteFile(t, g.RepoDirectory, "README.md", "# empty\n")
	}
	Git(t, g.RepoDirectory, "add", "-A")
	Git(t, g.RepoDirectory, "commit", "-m", "initial commit")
	Git(t, g.RepoDirectory, "remote", "add", "origin", g.RemoteDirectory)
	Git(t, g.RepoDirectory, "push", "origin", MainBranch)

	for _, b := range branches {
		Git(t, g.RepoDirectory, "checkout", "-b", b, MainBranch)
		WriteFile(t, g.RepoDirectory, b+".txt", b+"\n")
		Git(t, g.RepoDirectory, "add", "-A")
		Git(t, g.RepoDirectory, "commit", "-m", "start "+b)
		Git(t, g.RepoDirectory, "push", "origin", b)
	}
	Git(t, g.RepoDirectory, "checkout", MainBranch)

	return g
}

// URL returns the clone URL of the remote.
func (g *TestGitRepo) URL() string {
	return g.RemoteDirectory
}

// CommitFile commits content at rel on top of the remote's branch and pushes
// it, as a concurrent collaborator would.
func (g *TestGitRepo) CommitFile(t *testing.T, branch, rel, content, message string) {
	t.Helper()
	Git(t, g.RepoDirectory, "fetch", "origin")
	Git(t, g.RepoDirectory, "checkout", "-B", branch, "origin/"+branch)
	WriteFile(t, g.RepoDirectory, rel, content)
	Git(t, g.RepoDirectory, "add", "-A")
	Git(t, g.RepoDirectory, "commit", "-m", message)
	Git(t, g.RepoDirectory, "push", "origin", branch)
}

// RemoteCommitMessage returns the message of the head commit of branch in
// the remote.
func (g *TestGitRepo) RemoteCommitMessage(t *testing.T, branch string) string {
	t.Helper()
	repo, err := gogit.PlainOpen(g.RemoteDirectory)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return strings.TrimSpace(commit.Message)
}

// RemoteFile returns the content of path at the head of branch in the
// remote, and whether it exists.
func (g *TestGitRepo) RemoteFile(t *testing.T, branch, path string) (string, bool) {
	t.Helper()
	repo, err := gogit.PlainOpen(g.RemoteDirectory)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	f, err := commit.File(path)
	if err != nil {
		return "", false
	}
	content, err := f.Contents()
	require.NoError(t, err)
	return content, true
}

// RemoteHasBranch reports whether the remote has branch.
func (g *TestGitRepo) RemoteHasBranch(t *testing.T, branch string) bool {
	t.Helper()
	repo, err := gogit.PlainOpen(g.RemoteDirectory)
	require.NoError(t, err)
	_, err = repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	return err == nil
}

// Git runs git in dir with a fixed identity and fails the test on error. It
// returns the trimmed stdout.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := RunGit(dir, args...)
	require.NoError(t, err)
	return out
}

// RunGit runs git in dir with a fixed identity.
func RunGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+authorName,
		"GIT_AUTHOR_EMAIL="+authorEmail,
		"GIT_COMMITTER_NAME="+authorName,
		"GIT_COMMITTER_EMAIL="+authorEmail,
		"GIT_TERMINAL_PROMPT=0",
	)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// WriteFile writes content to the slash separated rel below dir.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// CopyData copies the named dataset from testdata into dest.
func CopyData(t *testing.T, dataset, dest string) {
	t.Helper()
	ds, err := GetTestDataPath()
	require.NoError(t, err)
	require.NoError(t, copy.Copy(filepath.Join(ds, dataset), dest))
}

// GetTestDataPath returns the path to the test data directory.
func GetTestDataPath() (string, error) {
	filePath, err := getTestUtilGoFilePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(filePath), "testdata"), nil
}

func getTestUtilGoFilePath() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("unable to get testutil.go file path")
	}
	return filename, nil
}
