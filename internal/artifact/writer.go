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

// Package artifact places compiled configuration files into a workspace.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/kptdev/cigen/internal/errors"
	"github.com/kptdev/cigen/internal/types"
	"github.com/kptdev/cigen/internal/util/pathutil"
	"k8s.io/klog/v2"
)

const (
	dirPerm  os.FileMode = 0755
	filePerm os.FileMode = 0644
)

// Result describes a completed write.
type Result struct {
	// FinalPath is the absolute path of the written file.
	FinalPath types.UniquePath
	// Overwritten is true when a previous file was replaced.
	Overwritten bool
}

// Writer writes artifacts below a workspace root. The zero value is ready to
// use.
type Writer struct{}

// Write places content at relPath below workspace. An existing file is only
// replaced when allowOverride is set; otherwise nothing is written and an
// Exist error is returned.
func (w *Writer) Write(workspace types.UniquePath, relPath string, content []byte, allowOverride bool) (Result, error) {
	const op errors.Op = "artifact.Write"

	target, err := resolve(workspace, relPath)
	if err != nil {
		return Result{}, errors.E(op, err)
	}

	existed := false
	info, err := os.Stat(target.String())
	switch {
	case err == nil && info.IsDir():
		return Result{}, errors.E(op, target, errors.IO,
			fmt.Errorf("%s is a directory", relPath))
	case err == nil:
		existed = true
	case !os.IsNotExist(err):
		return Result{}, errors.E(op, target, errors.IO, err)
	}

	if existed && !allowOverride {
		return Result{}, errors.E(op, target, errors.Exist,
			fmt.Errorf("CI/CD configuration file %s already exists, set override to replace it", relPath))
	}

	if err := os.MkdirAll(filepath.Dir(target.String()), dirPerm); err != nil {
		return Result{}, errors.E(op, target, errors.IO, err)
	}
	if err := os.WriteFile(target.String(), content, filePerm); err != nil {
		return Result{}, errors.E(op, target, errors.IO, err)
	}
	klog.V(2).Infof("wrote %d bytes to %s (overwritten=%t)", len(content), target, existed)

	return Result{FinalPath: target, Overwritten: existed}, nil
}

// Exists reports whether relPath is present below workspace.
func (w *Writer) Exists(workspace types.UniquePath, relPath string) (bool, error) {
	const op errors.Op = "artifact.Exists"

	target, err := resolve(workspace, relPath)
	if err != nil {
		return false, errors.E(op, err)
	}
	_, err = os.Stat(target.String())
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	}
	return false, errors.E(op, target, errors.IO, err)
}

// resolve joins relPath to workspace and rejects targets outside of it.
// Cloned repositories are untrusted, so any symbolic link on the way to the
// target is rejected as well.
func resolve(workspace types.UniquePath, relPath string) (types.UniquePath, error) {
	const op errors.Op = "artifact.resolve"

	if relPath == "" || filepath.IsAbs(relPath) {
		return "", errors.E(op, errors.Validation,
			fmt.Errorf("artifact path %q must be relative to the workspace", relPath))
	}
	target := workspace.Join(relPath)
	inside, err := pathutil.IsInsideDir(target.String(), workspace.String())
	if err != nil {
		return "", errors.E(op, errors.Validation, err)
	}
	if !inside || target == workspace {
		return "", errors.E(op, errors.Validation,
			fmt.Errorf("artifact path %q resolves outside of the workspace", relPath))
	}

	scoped, err := securejoin.SecureJoin(workspace.String(), relPath)
	if err != nil {
		return "", errors.E(op, target, errors.IO, err)
	}
	if filepath.Clean(scoped) != target.String() {
		return "", errors.E(op, target, errors.Validation,
			fmt.Errorf("artifact path %q traverses a symbolic link", relPath))
	}
	if err := rejectSymlinks(workspace, relPath); err != nil {
		return "", errors.E(op, target, err)
	}
	return target, nil
}

// rejectSymlinks checks every existing element of relPath below workspace
// with Lstat and fails on the first symbolic link.
func rejectSymlinks(workspace types.UniquePath, relPath string) error {
	cur := workspace.String()
	for _, elem := range strings.Split(filepath.ToSlash(filepath.Clean(relPath)), "/") {
		cur = filepath.Join(cur, elem)
		info, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.E(errors.IO, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.E(errors.Validation,
				fmt.Errorf("artifact path %q traverses the symbolic link %s", relPath,
					types.UniquePath(cur).RelativeTo(workspace)))
		}
	}
	return nil
}
