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

package server

import (
	"fmt"
	"net/http"

	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/generator"
	"github.com/kptdev/cigen/internal/gitutil"
	v1 "github.com/kptdev/cigen/pkg/api/pipeline/v1"
	"k8s.io/klog/v2"
)

// GenerateRequest is the body of POST /pipelines/generate.
type GenerateRequest struct {
	GitURL     string       `json:"gitUrl"`
	Platform   string       `json:"platform"`
	Branch     string       `json:"branch,omitempty"`
	Pipeline   *v1.Pipeline `json:"pipeline"`
	IsOverride bool         `json:"isOverride,omitempty"`
}

// GenerateResponse is returned after a successful generate.
type GenerateResponse struct {
	Message       string            `json:"message"`
	Platform      string            `json:"platform"`
	Branch        string            `json:"branch"`
	FilePath      string            `json:"filePath"`
	IsOverwritten bool              `json:"isOverwritten"`
	Stages        []v1.StageSummary `json:"stages"`
	Recovered     bool              `json:"recovered,omitempty"`
}

// ValidateRequest is the body of POST /pipelines/validate.
type ValidateRequest struct {
	Pipeline *v1.Pipeline `json:"pipeline"`
}

// ValidateResponse reports the outcome of a validation.
type ValidateResponse struct {
	Valid       bool     `json:"valid"`
	StagesCount int      `json:"stagesCount,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// CheckRequest is the body of POST /pipelines/check.
type CheckRequest struct {
	GitURL   string `json:"gitUrl"`
	Platform string `json:"platform"`
	Branch   string `json:"branch,omitempty"`
}

// CheckResponse tells whether the artifact of a platform already exists.
type CheckResponse struct {
	Exists   bool   `json:"exists"`
	FilePath string `json:"filePath"`
	Platform string `json:"platform"`
	Message  string `json:"message"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := decode(r, &body); err != nil {
		s.requests.WithLabelValues(outcome(err)).Inc()
		writeError(w, err)
		return
	}

	res, err := s.svc.Generate(r.Context(), generator.Request{
		RepositoryURL: body.GitURL,
		Dialect:       body.Platform,
		Branch:        body.Branch,
		Pipeline:      body.Pipeline,
		AllowOverride: body.IsOverride,
	})
	s.requests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Message:       "CI/CD configuration generated successfully",
		Platform:      res.Dialect,
		Branch:        res.Branch,
		FilePath:      res.Path,
		IsOverwritten: res.Overwritten,
		Stages:        res.Stages,
		Recovered:     res.Sync != nil && res.Sync.Recovered,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	res := s.svc.Validate(body.Pipeline)
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, ValidateResponse{Errors: res.Errors})
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, StagesCount: res.StagesCount})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var body CheckRequest
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.Check(r.Context(), generator.CheckRequest{
		RepositoryURL: body.GitURL,
		Dialect:       body.Platform,
		Branch:        body.Branch,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	msg := fmt.Sprintf("%s not found. Safe to generate a new one.", res.Path)
	if res.Exists {
		msg = fmt.Sprintf("%s already exists. Set isOverride to true to replace it.", res.Path)
	}
	writeJSON(w, http.StatusOK, CheckResponse{
		Exists:   res.Exists,
		FilePath: res.Path,
		Platform: res.Dialect,
		Message:  msg,
	})
}

func (s *Server) handleExample(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Example())
}

// statusFor maps the kind of err to an HTTP status.
func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.Validation, errors.UnsupportedDialect, errors.InvalidParam, errors.MissingParam:
		return http.StatusBadRequest
	case errors.Exist:
		return http.StatusConflict
	case errors.Sync:
		return http.StatusUnprocessableEntity
	case errors.Auth:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// outcome is the metrics label of a generate request.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch errors.KindOf(err) {
	case errors.Validation, errors.UnsupportedDialect, errors.InvalidParam, errors.MissingParam:
		return "invalid"
	case errors.Exist:
		return "exists"
	case errors.Sync:
		return "sync_failure"
	case errors.Auth:
		return "auth_failure"
	}
	return "error"
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:   errors.KindOf(err).String(),
		Message: cause(err),
	}

	var validationErr *errors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Message = "the request is invalid"
		resp.Errors = validationErr.Violations.Messages()
	}
	switch errors.KindOf(err) {
	case errors.Exist:
		resp.Suggestion = "Set isOverride: true to replace the existing file."
	case errors.Auth:
		resp.Suggestion = "Embed a token with read and write access in gitUrl."
	}

	if status == http.StatusInternalServerError {
		klog.Errorf("request failed: %s", gitutil.Redact(err.Error()))
	}
	writeJSON(w, status, resp)
}

// cause returns the message of the innermost error that is not an
// *errors.Error, with credentials removed.
func cause(err error) string {
	for {
		e, ok := err.(*errors.Error)
		if !ok || e.Err == nil {
			break
		}
		err = e.Err
	}
	if err == nil {
		return ""
	}
	return gitutil.Redact(err.Error())
}
