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

// Package gitsync commits the changes of a workspace and pushes them to the
// remote, recovering from concurrent pushes with a bounded ladder of
// increasingly destructive remedies.
//
// The engine is a state machine:
//
//	Inspect -> Commit -> Rebase -> Push -> Done
//	                                 |
//	                                 +-> Recover -> Retry -> Inspect ...
//
// Recover and Retry run at most once per call. A push failing after the
// retry ends in Terminal.
package gitsync

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitutil"
	"github.com/kptdev/cigen/internal/types"
	"k8s.io/klog/v2"
)

const (
	// CommitMessage is used for the commit holding the generated artifact.
	CommitMessage = "ci: update ci/cd config"

	// UntrackedCommitMessage is used when recovery commits files left
	// untracked.
	UntrackedCommitMessage = "ci: add generated CI/CD files"

	// MaxAttempts is the number of Inspect to Push sequences a call runs.
	MaxAttempts = 2
)

// ErrResetFailed is the cause of a terminal failure when the hard reset of
// the recovery ladder could not be performed.
var ErrResetFailed = goerrors.New("reset failed")

// State names a step of the engine.
type State string

const (
	StateInspect  State = "Inspect"
	StateCommit   State = "Commit"
	StateRebase   State = "Rebase"
	StatePush     State = "Push"
	StateRecover  State = "Recover"
	StateRetry    State = "Retry"
	StateDone     State = "Done"
	StateTerminal State = "Terminal"
)

// Transition records one move of the engine.
type Transition struct {
	From State
	To   State
	Note string
}

func (t Transition) String() string {
	if t.Note == "" {
		return fmt.Sprintf("%s -> %s", t.From, t.To)
	}
	return fmt.Sprintf("%s -> %s (%s)", t.From, t.To, t.Note)
}

// Report describes what a call to CommitAndPush did.
type Report struct {
	// Transitions lists every move in order.
	Transitions []Transition

	// Attempts is the number of Inspect to Push sequences started.
	Attempts int

	// Committed is true when a commit was created.
	Committed bool

	// UpstreamSet is true when the push had to set the upstream branch.
	UpstreamSet bool

	// Recovered is true when the recovery ladder ran.
	Recovered bool

	// Reset is true when recovery hard reset the branch to the remote,
	// discarding the local commits.
	Reset bool

	// Regenerated is true when the changes were recreated after a reset.
	Regenerated bool
}

// States returns the states visited, starting with Inspect.
func (r *Report) States() []State {
	if len(r.Transitions) == 0 {
		return nil
	}
	states := []State{r.Transitions[0].From}
	for _, t := range r.Transitions {
		states = append(states, t.To)
	}
	return states
}

// StateError is the cause of a terminal failure. It names the state that
// failed.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s failed: %v", strings.ToLower(string(e.State)), e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// Engine commits and pushes workspaces.
type Engine struct {
	// Open returns the git operations for the repository at dir.
	Open func(dir types.UniquePath) (Git, error)
}

// NewEngine returns an Engine running git with the given per command timeout
// and commit identity.
func NewEngine(timeout time.Duration, authorName, authorEmail string) *Engine {
	env := gitutil.IdentityEnv(authorName, authorEmail)
	return &Engine{
		Open: func(dir types.UniquePath) (Git, error) {
			return NewExecGit(dir, timeout, env)
		},
	}
}

// Option configures a single CommitAndPush call.
type Option func(*machine)

// WithRegenerate sets the function that recreates the changes of the
// workspace after recovery reset the branch to the remote. Without it a
// reset leaves nothing to push and the call fails.
func WithRegenerate(fn func(ctx context.Context) error) Option {
	return func(m *machine) {
		m.regenerate = fn
	}
}

// CommitAndPush commits all changes in the workspace at dir to branch and
// pushes them to origin.
func (e *Engine) CommitAndPush(ctx context.Context, dir types.UniquePath, branch string, opts ...Option) (*Report, error) {
	const op errors.Op = "gitsync.CommitAndPush"

	g, err := e.Open(dir)
	if err != nil {
		return &Report{}, errors.E(op, dir, err)
	}
	m := &machine{
		git:    g,
		branch: branch,
		state:  StateInspect,
		report: &Report{Attempts: 1},
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.run(ctx); err != nil {
		klog.Errorf("synchronizing %s failed after %d attempt(s): %v", dir, m.report.Attempts, err)
		return m.report, errors.E(op, dir, err)
	}
	klog.Infof("pushed %s to %s after %d attempt(s)", dir, branch, m.report.Attempts)
	return m.report, nil
}

type machine struct {
	git        Git
	branch     string
	regenerate func(ctx context.Context) error

	state  State
	report *Report

	upstreamTried bool
	pushErr       error
}

// step runs the current state and returns the next one.
type step func(ctx context.Context) (State, string, error)

func (m *machine) run(ctx context.Context) error {
	steps := map[State]step{
		StateInspect: m.inspect,
		StateCommit:  m.commit,
		StateRebase:  m.rebase,
		StatePush:    m.push,
		StateRecover: m.recoverPush,
		StateRetry:   m.retry,
	}
	for m.state != StateDone {
		failed := m.state
		next, note, err := steps[failed](ctx)
		if err != nil {
			m.to(StateTerminal, err.Error())
			return errors.E(terminalKind(failed, err), &StateError{State: failed, Err: err})
		}
		m.to(next, note)
	}
	return nil
}

func (m *machine) to(next State, note string) {
	t := Transition{From: m.state, To: next, Note: note}
	klog.V(2).Infof("sync %s", t)
	m.report.Transitions = append(m.report.Transitions, t)
	m.state = next
}

// terminalKind classifies a failure of state. Only the push and recovery
// states count as exhausting the ladder.
func terminalKind(state State, err error) errors.Kind {
	switch state {
	case StatePush, StateRecover:
		return errors.Sync
	case StateRetry:
		if k := errors.KindOf(err); k != errors.Other && k != errors.Git {
			return k
		}
		return errors.Sync
	}
	return errors.Git
}

func (m *machine) inspect(ctx context.Context) (State, string, error) {
	status, err := m.git.Status(ctx)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(status) == "" {
		return StatePush, "working tree clean", nil
	}
	return StateCommit, fmt.Sprintf("%d changed path(s)", countLines(status)), nil
}

func (m *machine) commit(ctx context.Context) (State, string, error) {
	if err := m.git.AddAll(ctx); err != nil {
		return "", "", err
	}
	status, err := m.git.Status(ctx)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(status) == "" {
		return StateRebase, "nothing staged", nil
	}
	if err := m.git.Commit(ctx, CommitMessage); err != nil {
		return "", "", err
	}
	m.report.Committed = true
	return StateRebase, "committed", nil
}

// rebase never fails the call. A real conflict surfaces at push.
func (m *machine) rebase(ctx context.Context) (State, string, error) {
	err := m.git.PullRebase(ctx, m.branch)
	if err == nil {
		return StatePush, "rebased", nil
	}
	klog.Warningf("rebase onto origin/%s failed, pushing anyway: %v", m.branch, err)
	if abortErr := m.git.AbortRebase(ctx); abortErr != nil {
		klog.Warningf("aborting rebase failed: %v", abortErr)
	}
	return StatePush, "rebase skipped: " + gitutil.ErrorType(err).String(), nil
}

func (m *machine) push(ctx context.Context) (State, string, error) {
	err := m.git.Push(ctx, m.branch)
	if err == nil {
		return StateDone, "pushed", nil
	}

	if gitutil.ErrorType(err) == gitutil.NoUpstreamBranch && !m.upstreamTried {
		m.upstreamTried = true
		klog.V(2).Infof("origin has no branch %s, pushing with upstream", m.branch)
		if err = m.git.PushSetUpstream(ctx, m.branch); err == nil {
			m.report.UpstreamSet = true
			return StateDone, "pushed with upstream", nil
		}
	}

	if m.report.Attempts >= MaxAttempts {
		return "", "", err
	}
	klog.Warningf("push to origin/%s failed, recovering: %v", m.branch, err)
	m.pushErr = err
	return StateRecover, gitutil.ErrorType(err).String(), nil
}

// recoverPush commits stray files and rebases onto the remote. When that fails
// the branch is hard reset to the remote, discarding the local commits.
func (m *machine) recoverPush(ctx context.Context) (State, string, error) {
	m.report.Recovered = true

	status, err := m.git.Status(ctx)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(status) != "" {
		if err := m.git.AddAll(ctx); err != nil {
			return "", "", err
		}
		if err := m.git.Commit(ctx, UntrackedCommitMessage); err != nil {
			return "", "", err
		}
		m.report.Committed = true
	}

	rebaseErr := m.git.PullRebase(ctx, m.branch)
	if rebaseErr == nil {
		return StateRetry, "rebased", nil
	}
	klog.Warningf("rebase onto origin/%s failed, resetting to the remote: %v", m.branch, rebaseErr)
	if err := m.git.AbortRebase(ctx); err != nil {
		klog.Warningf("aborting rebase failed: %v", err)
	}

	if err := m.git.Fetch(ctx, m.branch); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrResetFailed, err)
	}
	if err := m.git.ResetHard(ctx, "origin/"+m.branch); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrResetFailed, err)
	}
	m.report.Reset = true
	return StateRetry, "reset to origin/" + m.branch, nil
}

func (m *machine) retry(ctx context.Context) (State, string, error) {
	m.report.Attempts++
	if !m.report.Reset {
		return StateInspect, fmt.Sprintf("attempt %d", m.report.Attempts), nil
	}
	if m.regenerate == nil {
		return "", "", fmt.Errorf("local changes were discarded by the reset to origin/%s and must be resubmitted: %w",
			m.branch, m.pushErr)
	}
	if err := m.regenerate(ctx); err != nil {
		return "", "", err
	}
	m.report.Regenerated = true
	return StateInspect, fmt.Sprintf("attempt %d after regenerating", m.report.Attempts), nil
}

func countLines(s string) int {
	return len(strings.Split(strings.TrimRight(s, "\n"), "\n"))
}
