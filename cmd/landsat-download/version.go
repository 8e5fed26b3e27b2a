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

package main

import (
	"fmt"
	"io"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/sen2agri/landsat-downloader/cmd/landsat-download/require"
	"github.com/sen2agri/landsat-downloader/internal/version"
)

const versionDesc = `
Show the version of the downloader.

The output looks like this:

version.BuildInfo{Version:"v1.0", Commit:"ff52399e51bb880526e9cd0ed8386f6433b74da1", Modified:false, GoVersion:"go1.22.1"}

Commit and Modified come from the VCS stamp of the build. With --template the
fields .Version, .Commit, .Modified and .GoVersion are available.
`

type versionOptions struct {
	short    bool
	template string
}

func newVersionCmd(out io.Writer) *cobra.Command {
	o := &versionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "print the client version information",
		Long:  versionDesc,
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(out)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.short, "short", false, "print the version number")
	f.StringVar(&o.template, "template", "", "template for version string format")

	return cmd
}

func (o *versionOptions) run(out io.Writer) error {
	if o.template != "" {
		tt, err := template.New("_").Parse(o.template)
		if err != nil {
			return err
		}
		return tt.Execute(out, version.Get())
	}
	fmt.Fprintln(out, formatVersion(o.short))
	return nil
}

func formatVersion(short bool) string {
	v := version.Get()
	if short {
		if len(v.Commit) >= 7 {
			return fmt.Sprintf("%s+g%s", v.Version, v.Commit[:7])
		}
		return v.Version
	}
	return fmt.Sprintf("%#v", v)
}
