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

package commands

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/printer"
	"github.com/stretchr/testify/assert"
)

func TestGetCigenCommands(t *testing.T) {
	ctx := printer.WithContext(context.Background(), printer.New(&bytes.Buffer{}, io.Discard))
	cmds := GetCigenCommands(ctx, "ci", config.Default())

	var names []string
	for _, c := range cmds {
		names = append(names, c.Name())
		assert.True(t, c.SilenceUsage)
		assert.NotContains(t, c.Long, "cigen ")
	}
	assert.Equal(t, []string{"generate", "validate", "check", "example", "export", "serve"}, names)
}
