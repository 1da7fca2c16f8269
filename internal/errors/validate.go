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

package errors

import (
	"fmt"
	gostrings "strings"

	"github.com/kptdev/cigen/internal/util/strings"
)

// ValidationError is an error type used when validation fails.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation failed for fields %s",
		strings.QuotedList(e.Violations.Fields(), "and"))
	if reasons := e.Violations.Messages(); len(reasons) > 0 {
		msg += ": " + gostrings.Join(reasons, "; ")
	}
	return msg
}

type ViolationType string

const (
	Missing ViolationType = "missing"
	Invalid ViolationType = "invalid"
)

type Violations []Violation

func (v Violations) Fields() []string {
	var fields []string
	for _, v := range v {
		fields = append(fields, v.Field)
	}
	return fields
}

// Messages returns the human readable reason of every violation, falling
// back to "<field> is <type>" when no reason was recorded.
func (v Violations) Messages() []string {
	var msgs []string
	for _, v := range v {
		if v.Reason != "" {
			msgs = append(msgs, v.Reason)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is %s", v.Field, v.Type))
	}
	return msgs
}

type Violation struct {
	Field  string
	Value  string
	Type   ViolationType
	Reason string
}
