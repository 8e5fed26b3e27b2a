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
	"time"

	"github.com/spf13/cobra"

	"github.com/sen2agri/landsat-downloader/cmd/landsat-download/require"
	"github.com/sen2agri/landsat-downloader/pkg/overpass"
	"github.com/sen2agri/landsat-downloader/pkg/siteconfig"
)

const overpassDesc = `
This command lists the products the downloader would probe for a tile.

Acquisitions are predicted from the 16 day repeat cycle of the satellite.
Every acquisition is expanded into one product per ground station and
catalogue version. Nothing is downloaded.

    $ landsat-download overpass 001001 --start 2013-05-01 --end 2013-06-01
`

type overpassOptions struct {
	satellite string
	start     string
	end       string
	stations  []string
	remoteDir string
	urls      bool
}

func newOverpassCmd(out io.Writer) *cobra.Command {
	o := &overpassOptions{}

	cmd := &cobra.Command{
		Use:   "overpass TILE",
		Short: "list the candidate products of a tile",
		Long:  overpassDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(out, args[0], time.Now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.satellite, "satellite", siteconfig.DefaultSatellite, "satellite to predict (LT5|LE7|LC8)")
	f.StringVar(&o.start, "start", "", "first day of the window (YYYY-MM-DD)")
	f.StringVar(&o.end, "end", "", "day after the window (YYYY-MM-DD), defaults to today")
	f.StringSliceVar(&o.stations, "stations", []string{overpass.DefaultStation}, "ground stations to try")
	f.StringVar(&o.remoteDir, "remote-dir", siteconfig.DefaultRemoteDir, "archive directory of the product URLs")
	f.BoolVar(&o.urls, "urls", false, "print the download URL of every product")

	return cmd
}

func (o *overpassOptions) run(out io.Writer, tileID string, now time.Time) error {
	tile, err := overpass.ParseTile(tileID)
	if err != nil {
		return err
	}
	sat, err := overpass.ParseSatellite(o.satellite)
	if err != nil {
		return err
	}

	start := sat.Epoch()
	if o.start != "" {
		d, err := siteconfig.ParseDate(o.start)
		if err != nil {
			return err
		}
		start = d.Time
	}
	end := now
	if o.end != "" {
		d, err := siteconfig.ParseDate(o.end)
		if err != nil {
			return err
		}
		end = d.Time
	}

	fmt.Fprintf(out, "%-10s  %-7s  %s\n", "DATE", "JULIAN", "PRODUCT")
	it := overpass.Enumerate(tile, sat, start, end, now)
	for date, ok := it.Next(); ok; date, ok = it.Next() {
		for _, c := range overpass.Candidates(sat, tile, date, o.stations) {
			fmt.Fprintf(out, "%-10s  %-7s  %s\n", date.Format("2006-01-02"), c.JulianDate(), c.ProductName())
			if o.urls {
				fmt.Fprintf(out, "%-10s  %-7s  %s\n", "", "", c.URL(settings.DownloadURL, o.remoteDir))
			}
		}
	}
	return nil
}
