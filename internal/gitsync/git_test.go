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
	"path/filepath"
	"testing"

	"github.com/kptdev/cigen/internal/testutil"
	"github.com/kptdev/cigen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cloneWorkspace(t *testing.T, g *testutil.TestGitRepo, branch string) types.UniquePath {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ws")
	testutil.Git(t, filepath.Dir(dir), "clone", g.URL(), dir)
	if branch != testutil.MainBranch {
		testutil.Git(t, dir, "checkout", "-b", branch)
	}
	return types.UniquePath(dir)
}

func TestExecGitPush(t *testing.T) {
	g := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	ws := cloneWorkspace(t, g, testutil.MainBranch)
	testutil.WriteFile(t, ws.String(), ".gitlab-ci.yml", "stages:\n  - build\n")

	report, err := NewEngine(0, "cigen", "cigen@example.com").
		CommitAndPush(context.Background(), ws, testutil.MainBranch)
	require.NoError(t, err)

	assert.True(t, report.Committed)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, CommitMessage, g.RemoteCommitMessage(t, testutil.MainBranch))
	content, found := g.RemoteFile(t, testutil.MainBranch, ".gitlab-ci.yml")
	assert.True(t, found)
	assert.Equal(t, "stages:\n  - build\n", content)
}

func TestExecGitPushNewBranch(t *testing.T) {
	g := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	ws := cloneWorkspace(t, g, "feature/ci")
	testutil.WriteFile(t, ws.String(), "Jenkinsfile", "pipeline {}\n")

	_, err := NewEngine(0, "cigen", "cigen@example.com").
		CommitAndPush(context.Background(), ws, "feature/ci")
	require.NoError(t, err)

	assert.True(t, g.RemoteHasBranch(t, "feature/ci"))
	_, found := g.RemoteFile(t, "feature/ci", "Jenkinsfile")
	assert.True(t, found)
}

func TestExecGitConcurrentCompatiblePush(t *testing.T) {
	g := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	ws := cloneWorkspace(t, g, testutil.MainBranch)
	testutil.WriteFile(t, ws.String(), ".github/workflows/ci.yml", "name: CI/CD Pipeline\n")

	// Another writer pushes an unrelated change after our clone.
	g.CommitFile(t, testutil.MainBranch, "CHANGELOG.md", "v1\n", "add changelog")

	report, err := NewEngine(0, "cigen", "cigen@example.com").
		CommitAndPush(context.Background(), ws, testutil.MainBranch)
	require.NoError(t, err)

	assert.False(t, report.Recovered)
	_, found := g.RemoteFile(t, testutil.MainBranch, "CHANGELOG.md")
	assert.True(t, found)
	_, found = g.RemoteFile(t, testutil.MainBranch, ".github/workflows/ci.yml")
	assert.True(t, found)
}

func TestExecGitConcurrentConflictingPush(t *testing.T) {
	g := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	ws := cloneWorkspace(t, g, testutil.MainBranch)
	ours := "image: node:18\n"
	testutil.WriteFile(t, ws.String(), ".gitlab-ci.yml", ours)

	// Another writer pushes a different version of the same file.
	g.CommitFile(t, testutil.MainBranch, ".gitlab-ci.yml", "image: alpine\n", "theirs")

	regenerated := 0
	regenerate := WithRegenerate(func(context.Context) error {
		regenerated++
		testutil.WriteFile(t, ws.String(), ".gitlab-ci.yml", ours)
		return nil
	})

	report, err := NewEngine(0, "cigen", "cigen@example.com").
		CommitAndPush(context.Background(), ws, testutil.MainBranch, regenerate)
	require.NoError(t, err)

	assert.True(t, report.Recovered)
	assert.True(t, report.Reset)
	assert.Equal(t, 1, regenerated)
	assert.Equal(t, MaxAttempts, report.Attempts)

	content, found := g.RemoteFile(t, testutil.MainBranch, ".gitlab-ci.yml")
	assert.True(t, found)
	assert.Equal(t, ours, content)
	assert.Equal(t, CommitMessage, g.RemoteCommitMessage(t, testutil.MainBranch))
}

func TestExecGitAbortRebaseWithoutRebase(t *testing.T) {
	g := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	ws := cloneWorkspace(t, g, testutil.MainBranch)

	eg, err := NewExecGit(ws, 0, nil)
	require.NoError(t, err)
	assert.NoError(t, eg.AbortRebase(context.Background()))

	status, err := eg.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status)
}
