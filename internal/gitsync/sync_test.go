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
	goerrors "errors"
	"testing"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitutil"
	"github.com/kptdev/cigen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGit replays scripted results. Status returns the next entry of
// statuses, repeating the last one. Every other method pops its next error.
type fakeGit struct {
	calls    []string
	statuses []string
	errs     map[string][]error
}

func (f *fakeGit) next(method string) error {
	f.calls = append(f.calls, method)
	q := f.errs[method]
	if len(q) == 0 {
		return nil
	}
	f.errs[method] = q[1:]
	return q[0]
}

func (f *fakeGit) Status(context.Context) (string, error) {
	if err := f.next("status"); err != nil {
		return "", err
	}
	if len(f.statuses) == 0 {
		return "", nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeGit) AddAll(context.Context) error                 { return f.next("add") }
func (f *fakeGit) Commit(_ context.Context, msg string) error   { return f.next("commit " + msg) }
func (f *fakeGit) PullRebase(context.Context, string) error     { return f.next("pull") }
func (f *fakeGit) AbortRebase(context.Context) error            { return f.next("abort") }
func (f *fakeGit) Push(context.Context, string) error           { return f.next("push") }
func (f *fakeGit) PushSetUpstream(context.Context, string) error { return f.next("push-upstream") }
func (f *fakeGit) Fetch(context.Context, string) error          { return f.next("fetch") }
func (f *fakeGit) ResetHard(_ context.Context, ref string) error { return f.next("reset " + ref) }

func gitErr(t gitutil.GitExecErrorType) error {
	return errors.E(errors.Op("test"), errors.Git, &gitutil.GitExecError{Type: t, Command: "test"})
}

func engineFor(g Git) *Engine {
	return &Engine{Open: func(types.UniquePath) (Git, error) { return g, nil }}
}

func TestCommitAndPush(t *testing.T) {
	const dirty = " M .gitlab-ci.yml\n"

	testCases := map[string]struct {
		git          *fakeGit
		regenerate   bool
		calls        []string
		states       []State
		attempts     int
		expectedKind errors.Kind
		resetFailed  bool
		check        func(t *testing.T, r *Report)
	}{
		"clean tree pushes directly": {
			git:      &fakeGit{},
			calls:    []string{"status", "push"},
			states:   []State{StateInspect, StatePush, StateDone},
			attempts: 1,
		},
		"changes are committed and rebased": {
			git:      &fakeGit{statuses: []string{"?? .gitlab-ci.yml\n", "A  .gitlab-ci.yml\n"}},
			calls:    []string{"status", "add", "status", "commit " + CommitMessage, "pull", "push"},
			states:   []State{StateInspect, StateCommit, StateRebase, StatePush, StateDone},
			attempts: 1,
			check: func(t *testing.T, r *Report) {
				assert.True(t, r.Committed)
				assert.False(t, r.Recovered)
			},
		},
		"nothing staged skips the commit": {
			git:      &fakeGit{statuses: []string{dirty, ""}},
			calls:    []string{"status", "add", "status", "pull", "push"},
			states:   []State{StateInspect, StateCommit, StateRebase, StatePush, StateDone},
			attempts: 1,
			check: func(t *testing.T, r *Report) {
				assert.False(t, r.Committed)
			},
		},
		"failed rebase is tolerated": {
			git: &fakeGit{
				statuses: []string{dirty},
				errs:     map[string][]error{"pull": {gitErr(gitutil.RebaseConflict)}},
			},
			calls:    []string{"status", "add", "status", "commit " + CommitMessage, "pull", "abort", "push"},
			states:   []State{StateInspect, StateCommit, StateRebase, StatePush, StateDone},
			attempts: 1,
		},
		"missing upstream is pushed with upstream": {
			git: &fakeGit{
				errs: map[string][]error{"push": {gitErr(gitutil.NoUpstreamBranch)}},
			},
			calls:    []string{"status", "push", "push-upstream"},
			states:   []State{StateInspect, StatePush, StateDone},
			attempts: 1,
			check: func(t *testing.T, r *Report) {
				assert.True(t, r.UpstreamSet)
			},
		},
		"rejected push recovers by rebasing": {
			git: &fakeGit{
				errs: map[string][]error{"push": {gitErr(gitutil.PushRejected)}},
			},
			calls: []string{"status", "push", "status", "pull", "status", "push"},
			states: []State{StateInspect, StatePush, StateRecover, StateRetry,
				StateInspect, StatePush, StateDone},
			attempts: 2,
			check: func(t *testing.T, r *Report) {
				assert.True(t, r.Recovered)
				assert.False(t, r.Reset)
			},
		},
		"recovery commits untracked files": {
			git: &fakeGit{
				statuses: []string{"", "?? stray.txt\n", ""},
				errs:     map[string][]error{"push": {gitErr(gitutil.PushRejected)}},
			},
			calls: []string{"status", "push", "status", "add", "commit " + UntrackedCommitMessage,
				"pull", "status", "push"},
			states: []State{StateInspect, StatePush, StateRecover, StateRetry,
				StateInspect, StatePush, StateDone},
			attempts: 2,
			check: func(t *testing.T, r *Report) {
				assert.True(t, r.Committed)
			},
		},
		"recovery resets and regenerates": {
			git: &fakeGit{
				statuses: []string{dirty, dirty, "", dirty},
				errs: map[string][]error{
					"push": {gitErr(gitutil.PushRejected)},
					"pull": {gitErr(gitutil.RebaseConflict), gitErr(gitutil.RebaseConflict)},
				},
			},
			regenerate: true,
			calls: []string{
				"status", "add", "status", "commit " + CommitMessage, "pull", "abort", "push",
				"status", "pull", "abort", "fetch", "reset origin/main",
				"status", "add", "status", "commit " + CommitMessage, "pull", "push",
			},
			states: []State{StateInspect, StateCommit, StateRebase, StatePush, StateRecover, StateRetry,
				StateInspect, StateCommit, StateRebase, StatePush, StateDone},
			attempts: 2,
			check: func(t *testing.T, r *Report) {
				assert.True(t, r.Reset)
				assert.True(t, r.Regenerated)
			},
		},
		"reset without regenerate fails": {
			git: &fakeGit{
				errs: map[string][]error{
					"push": {gitErr(gitutil.PushRejected)},
					"pull": {gitErr(gitutil.RebaseConflict)},
				},
			},
			calls:        []string{"status", "push", "status", "pull", "abort", "fetch", "reset origin/main"},
			states:       []State{StateInspect, StatePush, StateRecover, StateRetry, StateTerminal},
			attempts:     2,
			expectedKind: errors.Sync,
		},
		"second push failure is terminal": {
			git: &fakeGit{
				errs: map[string][]error{"push": {gitErr(gitutil.PushRejected), gitErr(gitutil.PushRejected)}},
			},
			calls: []string{"status", "push", "status", "pull", "status", "push"},
			states: []State{StateInspect, StatePush, StateRecover, StateRetry,
				StateInspect, StatePush, StateTerminal},
			attempts:     2,
			expectedKind: errors.Sync,
		},
		"failed reset is terminal": {
			git: &fakeGit{
				errs: map[string][]error{
					"push":              {gitErr(gitutil.PushRejected)},
					"pull":              {gitErr(gitutil.RebaseConflict)},
					"reset origin/main": {gitErr(gitutil.Unknown)},
				},
			},
			calls:        []string{"status", "push", "status", "pull", "abort", "fetch", "reset origin/main"},
			states:       []State{StateInspect, StatePush, StateRecover, StateTerminal},
			attempts:     1,
			expectedKind: errors.Sync,
			resetFailed:  true,
		},
		"failed status is a git failure": {
			git: &fakeGit{
				errs: map[string][]error{"status": {gitErr(gitutil.Unknown)}},
			},
			calls:        []string{"status"},
			states:       []State{StateInspect, StateTerminal},
			attempts:     1,
			expectedKind: errors.Git,
		},
	}

	for tn, tc := range testCases {
		tc := tc
		t.Run(tn, func(t *testing.T) {
			if tc.git.errs == nil {
				tc.git.errs = map[string][]error{}
			}
			var opts []Option
			regenerated := 0
			if tc.regenerate {
				opts = append(opts, WithRegenerate(func(context.Context) error {
					regenerated++
					return nil
				}))
			}

			report, err := engineFor(tc.git).CommitAndPush(context.Background(), "/ws", "main", opts...)
			if tc.expectedKind != errors.Other {
				require.Error(t, err)
				assert.Equal(t, tc.expectedKind, errors.KindOf(err), err.Error())
				var stateErr *StateError
				assert.True(t, errors.As(err, &stateErr))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.resetFailed, goerrors.Is(err, ErrResetFailed))

			assert.Equal(t, tc.calls, tc.git.calls)
			assert.Equal(t, tc.states, report.States())
			assert.Equal(t, tc.attempts, report.Attempts)
			if tc.regenerate {
				assert.Equal(t, 1, regenerated)
			}
			if tc.check != nil {
				tc.check(t, report)
			}
		})
	}
}

func TestCommitAndPushNeverPushesThreeTimes(t *testing.T) {
	rejected := gitErr(gitutil.PushRejected)
	g := &fakeGit{
		statuses: []string{" M Jenkinsfile\n"},
		errs: map[string][]error{
			"push": {rejected, rejected, rejected},
			"pull": {gitErr(gitutil.RebaseConflict)},
		},
	}
	regenerate := WithRegenerate(func(context.Context) error { return nil })

	report, err := engineFor(g).CommitAndPush(context.Background(), "/ws", "main", regenerate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Sync))
	assert.Equal(t, MaxAttempts, report.Attempts)

	pushes := 0
	for _, c := range g.calls {
		if c == "push" {
			pushes++
		}
	}
	assert.Equal(t, 2, pushes)
	assert.Equal(t, StateTerminal, report.Transitions[len(report.Transitions)-1].To)
}

func TestCommitAndPushRegenerateError(t *testing.T) {
	g := &fakeGit{
		errs: map[string][]error{
			"push": {gitErr(gitutil.PushRejected)},
			"pull": {gitErr(gitutil.RebaseConflict)},
		},
	}
	exists := errors.E(errors.Op("test"), errors.Exist, "file exists")
	regenerate := WithRegenerate(func(context.Context) error { return exists })

	_, err := engineFor(g).CommitAndPush(context.Background(), "/ws", "main", regenerate)
	require.Error(t, err)
	assert.Equal(t, errors.Exist, errors.KindOf(err))
}

func TestCommitAndPushOpenError(t *testing.T) {
	e := &Engine{Open: func(types.UniquePath) (Git, error) {
		return nil, errors.E(errors.Op("test"), errors.Git, "git not found")
	}}
	report, err := e.CommitAndPush(context.Background(), "/ws", "main")
	require.Error(t, err)
	assert.Equal(t, errors.Git, errors.KindOf(err))
	assert.Empty(t, report.Transitions)
}

func TestStateErrorMessage(t *testing.T) {
	err := &StateError{State: StateRecover, Err: goerrors.New("boom")}
	assert.Equal(t, "recover failed: boom", err.Error())
	assert.Equal(t, "Push -> Done (pushed)", Transition{From: StatePush, To: StateDone, Note: "pushed"}.String())
}
