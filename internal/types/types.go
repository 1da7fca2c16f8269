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

// Package types defines the basic types used by the cigen codebase.
package types

import (
	"path/filepath"
	"strings"
)

// UniquePath represents an absolute OS-defined path to a workspace or to a
// file inside one.
type UniquePath string

// String returns the absolute path in string format.
func (u UniquePath) String() string {
	return string(u)
}

// Empty returns true if the UniquePath is empty
func (u UniquePath) Empty() bool {
	return len(u) == 0
}

// Join appends a slash-separated relative path to the UniquePath.
func (u UniquePath) Join(rel string) UniquePath {
	return UniquePath(filepath.Join(string(u), filepath.FromSlash(rel)))
}

// RelativeTo returns the slash-separated path of u relative to base. If u is
// not below base, u is returned unchanged.
func (u UniquePath) RelativeTo(base UniquePath) string {
	rel, err := filepath.Rel(string(base), string(u))
	if err != nil || strings.HasPrefix(rel, "..") {
		return string(u)
	}
	return filepath.ToSlash(rel)
}
