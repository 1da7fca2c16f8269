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

// Package pathutil contains some path-relevant utilities.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveAbsAndRelPaths returns absolute and relative paths for input path
func ResolveAbsAndRelPaths(path string) (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}

	var relPath string
	var absPath string
	if filepath.IsAbs(path) {
		// If the provided path is absolute, we find the relative path by
		// comparing it to the current working directory.
		relPath, err = filepath.Rel(cwd, path)
		if err != nil {
			return "", "", err
		}
		absPath = filepath.Clean(path)
	} else {
		// If the provided path is relative, we find the absolute path by
		// combining the current working directory with the relative path.
		relPath = filepath.Clean(path)
		absPath = filepath.Join(cwd, path)
	}

	return absPath, relPath, nil
}

// Exists returns true only if path exists and is accessible.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

// IsInsideDir checks if path is within directory.
// Both path and directory have to be absolute paths.
func IsInsideDir(path string, directory string) (isInside bool, err error) {
	if !filepath.IsAbs(path) {
		err = fmt.Errorf(
			"argument `path` (%s) is not an absolute path",
			path,
		)
		return
	}
	if !filepath.IsAbs(directory) {
		err = fmt.Errorf(
			"argument `directory` (%s) is not an absolute path",
			directory,
		)
		return
	}

	rel, err := filepath.Rel(directory, path)
	if err != nil {
		return false, err
	}

	// Dot files such as .gitlab-ci.yml are inside; only a leading ".."
	// element leaves the directory.
	isInside = rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))

	return
}
