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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kptdev/cigen/internal/artifact"
	"github.com/kptdev/cigen/internal/cmdexport/orchestrators"
	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitsync"
	"github.com/kptdev/cigen/internal/testutil"
	"github.com/kptdev/cigen/internal/types"
	"github.com/kptdev/cigen/internal/workspace"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvisioner struct {
	t        *testing.T
	calls    int
	existing map[string]string
	err      error
	last     *workspace.Workspace
}

func (f *fakeProvisioner) Provision(_ context.Context, url, branch string) (*workspace.Workspace, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if branch == "" {
		branch = "main"
	}
	dir := filepath.Join(f.t.TempDir(), "ws")
	require.NoError(f.t, os.MkdirAll(dir, 0755))
	for rel, content := range f.existing {
		testutil.WriteFile(f.t, dir, rel, content)
	}
	f.last = &workspace.Workspace{Path: types.UniquePath(dir), Branch: branch, RepositoryURL: url}
	return f.last, nil
}

type fakeSyncer struct {
	calls  int
	branch string
	err    error
}

func (f *fakeSyncer) CommitAndPush(_ context.Context, _ types.UniquePath, branch string, _ ...gitsync.Option) (*gitsync.Report, error) {
	f.calls++
	f.branch = branch
	if f.err != nil {
		return &gitsync.Report{}, f.err
	}
	return &gitsync.Report{Attempts: 1, Committed: true}, nil
}

func request() Request {
	return Request{
		RepositoryURL: "https://example.com/org/app.git",
		Dialect:       "gitlab",
		Pipeline:      Example(),
	}
}

func TestGenerate(t *testing.T) {
	testCases := map[string]struct {
		mutate       func(r *Request)
		existing     map[string]string
		syncErr      error
		expectedKind errors.Kind
		provisioned  int
		synced       int
		check        func(t *testing.T, res *Result, ws *workspace.Workspace)
	}{
		"writes and pushes the artifact": {
			provisioned: 1,
			synced:      1,
			check: func(t *testing.T, res *Result, ws *workspace.Workspace) {
				assert.Equal(t, ".gitlab-ci.yml", res.Path)
				assert.Equal(t, "gitlab", res.Dialect)
				assert.Equal(t, "main", res.Branch)
				assert.False(t, res.Overwritten)
				assert.Equal(t, Example().Summaries(), res.Stages)
				assert.True(t, res.Sync.Committed)
			},
		},
		"dialect alias and branch": {
			mutate: func(r *Request) {
				r.Dialect = " GitHub-Actions "
				r.Branch = "feature/ci"
			},
			provisioned: 1,
			synced:      1,
			check: func(t *testing.T, res *Result, _ *workspace.Workspace) {
				assert.Equal(t, ".github/workflows/ci.yml", res.Path)
				assert.Equal(t, "github", res.Dialect)
				assert.Equal(t, "feature/ci", res.Branch)
			},
		},
		"override replaces an existing file": {
			mutate:      func(r *Request) { r.AllowOverride = true },
			existing:    map[string]string{".gitlab-ci.yml": "old"},
			provisioned: 1,
			synced:      1,
			check: func(t *testing.T, res *Result, _ *workspace.Workspace) {
				assert.True(t, res.Overwritten)
			},
		},
		"existing file without override": {
			existing:     map[string]string{".gitlab-ci.yml": "old"},
			expectedKind: errors.Exist,
			provisioned:  1,
		},
		"missing repository url": {
			mutate:       func(r *Request) { r.RepositoryURL = "" },
			expectedKind: errors.Validation,
		},
		"missing pipeline": {
			mutate:       func(r *Request) { r.Pipeline = nil },
			expectedKind: errors.Validation,
		},
		"invalid pipeline": {
			mutate:       func(r *Request) { r.Pipeline = &v1.Pipeline{} },
			expectedKind: errors.Validation,
		},
		"unsupported dialect": {
			mutate:       func(r *Request) { r.Dialect = "circleci" },
			expectedKind: errors.UnsupportedDialect,
		},
		"synchronization failure": {
			syncErr:      errors.E(errors.Op("test"), errors.Sync, "push rejected twice"),
			expectedKind: errors.Sync,
			provisioned:  1,
			synced:       1,
		},
	}

	for tn, tc := range testCases {
		tc := tc
		t.Run(tn, func(t *testing.T) {
			p := &fakeProvisioner{t: t, existing: tc.existing}
			s := &fakeSyncer{err: tc.syncErr}
			g := New(p, &artifact.Writer{}, s, orchestrators.Compile)

			req := request()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			res, err := g.Generate(context.Background(), req)

			assert.Equal(t, tc.provisioned, p.calls)
			assert.Equal(t, tc.synced, s.calls)
			if tc.expectedKind != errors.Other {
				require.Error(t, err)
				assert.Equal(t, tc.expectedKind, errors.KindOf(err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, res.Branch, s.branch)
			if tc.check != nil {
				tc.check(t, res, p.last)
			}
			assert.NoDirExists(t, p.last.Path.String())
		})
	}
}

func TestGenerateKeepWorkspaces(t *testing.T) {
	p := &fakeProvisioner{t: t}
	g := New(p, &artifact.Writer{}, &fakeSyncer{}, orchestrators.Compile)
	g.KeepWorkspaces = true

	res, err := g.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, p.last.Path, res.Workspace)
	assert.FileExists(t, filepath.Join(p.last.Path.String(), ".gitlab-ci.yml"))
}

func TestGenerateValidationErrorListsFields(t *testing.T) {
	g := New(&fakeProvisioner{t: t}, &artifact.Writer{}, &fakeSyncer{}, orchestrators.Compile)

	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)

	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"gitUrl", "platform", "pipeline"}, verr.Violations.Fields())
}

func TestCheck(t *testing.T) {
	testCases := map[string]struct {
		dialect      string
		existing     map[string]string
		expected     *CheckResult
		expectedKind errors.Kind
	}{
		"exists": {
			dialect:  "jenkins",
			existing: map[string]string{"Jenkinsfile": "pipeline {}"},
			expected: &CheckResult{Exists: true, Path: "Jenkinsfile", Dialect: "jenkins"},
		},
		"missing": {
			dialect:  "github",
			expected: &CheckResult{Exists: false, Path: ".github/workflows/ci.yml", Dialect: "github"},
		},
		"unsupported": {
			dialect:      "travis",
			expectedKind: errors.UnsupportedDialect,
		},
	}

	for tn, tc := range testCases {
		tc := tc
		t.Run(tn, func(t *testing.T) {
			p := &fakeProvisioner{t: t, existing: tc.existing}
			g := New(p, &artifact.Writer{}, &fakeSyncer{}, orchestrators.Compile)

			res, err := g.Check(context.Background(), CheckRequest{
				RepositoryURL: "https://example.com/org/app.git",
				Dialect:       tc.dialect,
			})
			if tc.expectedKind != errors.Other {
				require.Error(t, err)
				assert.Equal(t, tc.expectedKind, errors.KindOf(err))
				assert.Equal(t, 0, p.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestCheckProvisionFailure(t *testing.T) {
	p := &fakeProvisioner{t: t, err: errors.E(errors.Op("test"), errors.Auth, "denied")}
	g := New(p, &artifact.Writer{}, &fakeSyncer{}, orchestrators.Compile)

	_, err := g.Check(context.Background(), CheckRequest{RepositoryURL: "x", Dialect: "gitlab"})
	require.Error(t, err)
	assert.Equal(t, errors.Auth, errors.KindOf(err))
}

func TestValidate(t *testing.T) {
	g := New(nil, nil, nil, orchestrators.Compile)

	res := g.Validate(Example())
	assert.True(t, res.Valid)
	assert.Equal(t, 3, res.StagesCount)
	assert.Empty(t, res.Errors)

	res = g.Validate(&v1.Pipeline{Stages: []v1.Stage{{Name: "Build", Steps: []v1.Step{{Command: "make"}}}}})
	assert.False(t, res.Valid)
	assert.Contains(t, strings.Join(res.Errors, "\n"), "id is required")
}

func TestExample(t *testing.T) {
	p := Example()
	require.NotNil(t, p)
	for _, d := range orchestrators.Dialects() {
		_, err := orchestrators.Compile(p, d)
		assert.NoError(t, err, d)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	remote := testutil.NewTestGitRepo(t, testutil.DatasetApp)
	cfg := config.Default()
	cfg.WorkspaceRoot = t.TempDir()
	g := NewFromConfig(cfg)

	req := Request{
		RepositoryURL: remote.URL(),
		Dialect:       "gitlab",
		Pipeline: &v1.Pipeline{
			Stages: []v1.Stage{{
				ID:       "build",
				Name:     "Build",
				Parallel: true,
				Projects: []v1.Project{{
					Name:  "Api",
					Image: "node:18",
					Steps: []v1.Step{{Command: "npm run build"}},
				}},
			}},
		},
	}

	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Overwritten)

	content, found := remote.RemoteFile(t, testutil.MainBranch, ".gitlab-ci.yml")
	require.True(t, found)
	assert.Contains(t, content, "build-api:")
	assert.Contains(t, content, "image: node:18")
	assert.Contains(t, content, "npm run build")
	assert.Equal(t, gitsync.CommitMessage, remote.RemoteCommitMessage(t, testutil.MainBranch))

	_, err = g.Generate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.Exist, errors.KindOf(err))

	req.AllowOverride = true
	res, err = g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Overwritten)

	check, err := g.Check(context.Background(), CheckRequest{RepositoryURL: remote.URL(), Dialect: "gitlab"})
	require.NoError(t, err)
	assert.True(t, check.Exists)

	entries, err := os.ReadDir(cfg.WorkspaceRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// racingProvisioner clones through a real provisioner and then lets another
// writer push the artifact before the generator gets to it.
type racingProvisioner struct {
	*workspace.Provisioner
	t      *testing.T
	remote *testutil.TestGitRepo
	path   string
}

func (r *racingProvisioner) Provision(ctx context.Context, url, branch string) (*workspace.Workspace, error) {
	ws, err := r.Provisioner.Provision(ctx, url, branch)
	if err != nil {
		return nil, err
	}
	r.remote.CommitFile(r.t, testutil.MainBranch, r.path, "image: alpine\n", "theirs")
	return ws, nil
}

func TestGenerateReportsOverwriteAfterRecovery(t *testing.T) {
	testCases := map[string]struct {
		allowOverride bool
		expectedKind  errors.Kind
	}{
		"override reports the regenerated write": {
			allowOverride: true,
		},
		"no override fails once the remote has the file": {
			expectedKind: errors.Exist,
		},
	}

	for tn, tc := range testCases {
		tc := tc
		t.Run(tn, func(t *testing.T) {
			remote := testutil.NewTestGitRepo(t, testutil.DatasetApp)
			cfg := config.Default()
			cfg.WorkspaceRoot = t.TempDir()
			p := &racingProvisioner{
				Provisioner: workspace.NewProvisioner(cfg.WorkspaceRoot, cfg.DefaultBranch, cfg.GitTimeout),
				t:           t,
				remote:      remote,
				path:        ".gitlab-ci.yml",
			}
			g := New(p, &artifact.Writer{},
				gitsync.NewEngine(cfg.GitTimeout, cfg.AuthorName, cfg.AuthorEmail), orchestrators.Compile)

			req := request()
			req.RepositoryURL = remote.URL()
			req.AllowOverride = tc.allowOverride
			res, err := g.Generate(context.Background(), req)
			if tc.expectedKind != errors.Other {
				require.Error(t, err)
				assert.Equal(t, tc.expectedKind, errors.KindOf(err), err.Error())
				content, _ := remote.RemoteFile(t, testutil.MainBranch, ".gitlab-ci.yml")
				assert.Equal(t, "image: alpine\n", content)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Sync.Recovered)
			assert.True(t, res.Sync.Regenerated)
			assert.True(t, res.Overwritten)

			content, found := remote.RemoteFile(t, testutil.MainBranch, ".gitlab-ci.yml")
			require.True(t, found)
			assert.NotEqual(t, "image: alpine\n", content)
		})
	}
}
