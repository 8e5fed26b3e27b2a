/*
Copyright The Helm Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package archive

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// Fixer corrects the coordinate system of extracted raster bands.
type Fixer interface {
	Fix(ctx context.Context, bands []string) error
}

// FixerFunc adapts a function to the Fixer interface.
type FixerFunc func(ctx context.Context, bands []string) error

// Fix calls f.
func (f FixerFunc) Fix(ctx context.Context, bands []string) error {
	return f(ctx, bands)
}

// NopFixer leaves the bands untouched.
var NopFixer = FixerFunc(func(context.Context, []string) error { return nil })

// CommandFixer runs an external correction tool. The band paths are
// appended to the command line.
type CommandFixer struct {
	args []string
}

// NewCommandFixer parses a shell-like command line, e.g.
// "python3 /usr/share/sen2agri/fix_utm_proj.py --in-place".
func NewCommandFixer(command string) (*CommandFixer, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse fix command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.New("empty fix command")
	}
	return &CommandFixer{args: args}, nil
}

// Fix runs the command over bands. A non-zero exit is an error carrying the
// tool's output.
func (c *CommandFixer) Fix(ctx context.Context, bands []string) error {
	args := append(append([]string{}, c.args[1:]...), bands...)
	cmd := exec.CommandContext(ctx, c.args[0], args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s failed: %s", c.args[0], strings.TrimSpace(out.String()))
	}
	return nil
}
