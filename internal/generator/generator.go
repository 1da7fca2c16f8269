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

// Package generator sequences a generate request: it clones the target
// repository, writes the compiled pipeline into it and pushes the result.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kptdev/cigen/internal/artifact"
	"github.com/kptdev/cigen/internal/cmdexport/orchestrators"
	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/gitsync"
	"github.com/kptdev/cigen/internal/types"
	cigenstrings "github.com/kptdev/cigen/internal/util/strings"
	"github.com/kptdev/cigen/internal/validate"
	"github.com/kptdev/cigen/internal/workspace"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"k8s.io/klog/v2"
)

// Provisioner creates the workspace of a request.
type Provisioner interface {
	Provision(ctx context.Context, repositoryURL, branch string) (*workspace.Workspace, error)
}

// ArtifactWriter places generated files in a workspace.
type ArtifactWriter interface {
	Write(ws types.UniquePath, relPath string, content []byte, allowOverride bool) (artifact.Result, error)
	Exists(ws types.UniquePath, relPath string) (bool, error)
}

// Syncer commits and pushes a workspace.
type Syncer interface {
	CommitAndPush(ctx context.Context, dir types.UniquePath, branch string, opts ...gitsync.Option) (*gitsync.Report, error)
}

// Compiler turns a pipeline into the artifact of a dialect.
type Compiler func(p *v1.Pipeline, dialect string) (orchestrators.Artifact, error)

// Request asks for a pipeline to be generated into a repository.
type Request struct {
	// RepositoryURL is the clone URL, with credentials embedded if needed.
	RepositoryURL string
	Dialect       string
	// Branch defaults to the provisioner's default branch.
	Branch        string
	Pipeline      *v1.Pipeline
	AllowOverride bool
}

// Result describes a successful generate.
type Result struct {
	// Path is the slash separated path of the artifact in the repository.
	Path        string
	Overwritten bool
	Dialect     string
	Branch      string
	Stages      []v1.StageSummary
	Sync        *gitsync.Report
	// Workspace is set when the workspace was kept on disk.
	Workspace types.UniquePath
}

// CheckRequest asks whether a repository already holds the artifact of a
// dialect.
type CheckRequest struct {
	RepositoryURL string
	Dialect       string
	Branch        string
}

// CheckResult is the answer to a CheckRequest.
type CheckResult struct {
	Exists  bool
	Path    string
	Dialect string
}

// ValidationResult is the outcome of a static validation.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	StagesCount int
}

// Generator runs generate, check and validate requests.
type Generator struct {
	provisioner Provisioner
	writer      ArtifactWriter
	syncer      Syncer
	compile     Compiler

	// KeepWorkspaces leaves workspaces on disk after a request.
	KeepWorkspaces bool
}

// New returns a Generator using the given components.
func New(p Provisioner, w ArtifactWriter, s Syncer, c Compiler) *Generator {
	return &Generator{
		provisioner: p,
		writer:      w,
		syncer:      s,
		compile:     c,
	}
}

// NewFromConfig returns a Generator backed by git and the local filesystem.
func NewFromConfig(cfg *config.Config) *Generator {
	return New(
		workspace.NewProvisioner(cfg.WorkspaceRoot, cfg.DefaultBranch, cfg.GitTimeout),
		&artifact.Writer{},
		gitsync.NewEngine(cfg.GitTimeout, cfg.AuthorName, cfg.AuthorEmail),
		orchestrators.Compile,
	)
}

// Generate compiles req.Pipeline, writes it into a fresh clone of
// req.RepositoryURL and pushes it. Requests that fail validation never touch
// the filesystem.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	const op errors.Op = "generator.Generate"
	repo := errors.Repo(req.RepositoryURL)

	if err := checkRequest(req.RepositoryURL, req.Dialect, req.Pipeline, true); err != nil {
		return nil, errors.E(op, err)
	}
	dialect, err := orchestrators.LookupDialect(req.Dialect)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := validate.Error(req.Pipeline); err != nil {
		return nil, errors.E(op, err)
	}
	a, err := g.compile(req.Pipeline, dialect.Name)
	if err != nil {
		return nil, errors.E(op, err)
	}

	ws, err := g.provisioner.Provision(ctx, req.RepositoryURL, req.Branch)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}
	defer g.release(ws)

	written, err := g.writer.Write(ws.Path, a.Path, a.Content, req.AllowOverride)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}
	klog.Infof("wrote %s for %s (overwritten: %t)", a.Path, dialect.Name, written.Overwritten)

	// Recovery may reset the workspace onto a remote that already carries
	// the artifact, so the last write decides what is reported.
	regenerate := gitsync.WithRegenerate(func(context.Context) error {
		again, err := g.writer.Write(ws.Path, a.Path, a.Content, req.AllowOverride)
		if err != nil {
			return err
		}
		written = again
		return nil
	})
	report, err := g.syncer.CommitAndPush(ctx, ws.Path, ws.Branch, regenerate)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}

	res := &Result{
		Path:        a.Path,
		Overwritten: written.Overwritten,
		Dialect:     dialect.Name,
		Branch:      ws.Branch,
		Stages:      req.Pipeline.Summaries(),
		Sync:        report,
	}
	if g.KeepWorkspaces {
		res.Workspace = ws.Path
	}
	return res, nil
}

// Check reports whether the artifact of req.Dialect exists on the branch.
func (g *Generator) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	const op errors.Op = "generator.Check"
	repo := errors.Repo(req.RepositoryURL)

	if err := checkRequest(req.RepositoryURL, req.Dialect, nil, false); err != nil {
		return nil, errors.E(op, err)
	}
	dialect, err := orchestrators.LookupDialect(req.Dialect)
	if err != nil {
		return nil, errors.E(op, err)
	}

	ws, err := g.provisioner.Provision(ctx, req.RepositoryURL, req.Branch)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}
	defer g.release(ws)

	exists, err := g.writer.Exists(ws.Path, dialect.Path)
	if err != nil {
		return nil, errors.E(op, repo, err)
	}
	return &CheckResult{
		Exists:  exists,
		Path:    dialect.Path,
		Dialect: dialect.Name,
	}, nil
}

// Validate checks p without any I/O.
func (g *Generator) Validate(p *v1.Pipeline) ValidationResult {
	violations := validate.Pipeline(p)
	if len(violations) > 0 {
		return ValidationResult{Errors: violations.Messages()}
	}
	return ValidationResult{Valid: true, StagesCount: len(p.Stages)}
}

// Example returns a sample pipeline.
func (g *Generator) Example() *v1.Pipeline {
	return Example()
}

func (g *Generator) release(ws *workspace.Workspace) {
	if g.KeepWorkspaces {
		klog.Infof("keeping workspace %s", ws.Path)
		return
	}
	if err := ws.Remove(); err != nil {
		klog.Warningf("unable to remove workspace: %v", err)
	}
}

// checkRequest reports the required request fields that are missing.
func checkRequest(repositoryURL, dialect string, p *v1.Pipeline, needPipeline bool) error {
	const op errors.Op = "generator.checkRequest"
	var violations errors.Violations
	if strings.TrimSpace(repositoryURL) == "" {
		violations = append(violations, errors.Violation{
			Field: "gitUrl", Type: errors.Missing, Reason: "gitUrl is required",
		})
	}
	if strings.TrimSpace(dialect) == "" {
		violations = append(violations, errors.Violation{
			Field:  "platform",
			Type:   errors.Missing,
			Reason: fmt.Sprintf("platform is required, must be one of %s", cigenstrings.QuotedList(orchestrators.Dialects(), "or")),
		})
	}
	if needPipeline && p == nil {
		violations = append(violations, errors.Violation{
			Field: "pipeline", Type: errors.Missing, Reason: "pipeline is required",
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return errors.E(op, errors.Validation, &errors.ValidationError{Violations: violations})
}
