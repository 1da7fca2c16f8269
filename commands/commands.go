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
	"context"
	"strings"

	"github.com/kptdev/cigen/internal/cmdcheck"
	"github.com/kptdev/cigen/internal/cmdexample"
	"github.com/kptdev/cigen/internal/cmdexport"
	"github.com/kptdev/cigen/internal/cmdgenerate"
	"github.com/kptdev/cigen/internal/cmdserve"
	"github.com/kptdev/cigen/internal/cmdvalidate"
	"github.com/kptdev/cigen/internal/config"
	"github.com/kptdev/cigen/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// GetCigenCommands returns the top level commands of the binary called name.
func GetCigenCommands(ctx context.Context, name string, cfg *config.Config) []*cobra.Command {
	c := []*cobra.Command{
		cmdgenerate.NewCommand(ctx, cfg),
		cmdvalidate.NewCommand(ctx),
		cmdcheck.NewCommand(ctx, cfg),
		cmdexample.NewCommand(ctx),
		cmdexport.ExportCommand(),
		cmdserve.NewCommand(ctx, cfg),
	}

	for i := range c {
		cmdutil.FixDocs("cigen", name, c[i])
	}
	// apply cross-cutting issues to commands
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand will modify commands to be consistent, e.g. silencing errors
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.Short = strings.TrimPrefix(cmd.Short, "[Alpha] ")
		cmd.SilenceUsage = true
		NormalizeCommand(cmd.Commands()...)
	}
}
