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
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sen2agri/landsat-downloader/cmd/landsat-download/require"
	"github.com/sen2agri/landsat-downloader/pkg/action"
	"github.com/sen2agri/landsat-downloader/pkg/siteconfig"
)

const downloadDesc = `
This command downloads the Landsat products of a site.

The site file (YAML, JSON or TOML) names the tiles, the season and the write
directory. For every tile the predicted acquisitions of the season are
probed for each ground station and catalogue version. Downloaded products
are unpacked into the write directory and recorded in the product history,
so that a later run skips them.

    $ landsat-download download site.yaml --tiles 183029,184029 --start 2016-04-01

A summary table is printed when the run ends. The run log is appended to
landsat_download.log in the write directory.
`

type downloadOptions struct {
	tiles      []string
	start      string
	end        string
	writeDir   string
	noProgress bool
}

func newDownloadCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	o := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download SITE_FILE",
		Short: "download the products of a site",
		Long:  downloadDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := siteconfig.Load(args[0])
			if err != nil {
				return err
			}
			if err := o.apply(site); err != nil {
				return err
			}
			if err := initActionConfig(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer cfg.Close()

			client := action.NewDownload(cfg, settings)
			client.Site = site
			if !o.noProgress {
				client.Progress = cmd.ErrOrStderr()
			}

			report, err := client.Run(cmd.Context())
			if report != nil {
				printReport(out, report)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&o.tiles, "tiles", nil, "download these tiles instead of the tiles of the site")
	f.StringVar(&o.start, "start", "", "override the season start (YYYY-MM-DD)")
	f.StringVar(&o.end, "end", "", "override the season end (YYYY-MM-DD)")
	f.StringVar(&o.writeDir, "write-dir", "", "override the write directory of the site")
	f.BoolVar(&o.noProgress, "no-progress", false, "do not display transfer progress")

	return cmd
}

// apply overrides the site with the command line.
func (o *downloadOptions) apply(site *siteconfig.Site) error {
	if len(o.tiles) > 0 {
		site.Tiles = o.tiles
	}
	if o.writeDir != "" {
		site.WriteDir = o.writeDir
	}
	for _, d := range []struct {
		value  string
		target *siteconfig.Date
	}{{o.start, &site.SeasonStart}, {o.end, &site.SeasonEnd}} {
		if d.value == "" {
			continue
		}
		parsed, err := siteconfig.ParseDate(d.value)
		if err != nil {
			return err
		}
		*d.target = parsed
	}
	return site.Validate()
}

func printReport(out io.Writer, report *action.Report) {
	tbl := uitable.New()
	tbl.AddRow("TILE", "DOWNLOADED", "SKIPPED", "RESTORED", "MISSING", "FAILED", "NOTE")
	for _, t := range report.Tiles {
		note := ""
		if t.Invalid {
			note = "invalid tile, skipped"
		}
		tbl.AddRow(t.Tile, len(t.Downloaded), t.Skipped, t.Restored, t.Missing, t.Failed, note)
	}
	fmt.Fprintln(out, tbl)

	if downloaded := report.Downloaded(); len(downloaded) > 0 {
		fmt.Fprintf(out, "Downloaded product: %s\n", strings.Join(downloaded, ", "))
	} else {
		fmt.Fprintln(out, "No product has been downloaded")
	}
}
