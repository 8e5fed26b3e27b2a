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
	"io"

	"github.com/spf13/cobra"

	"github.com/sen2agri/landsat-downloader/cmd/landsat-download/require"
	"github.com/sen2agri/landsat-downloader/internal/logging"
	"github.com/sen2agri/landsat-downloader/pkg/action"
)

var globalUsage = `Download Landsat products from the USGS archive.

The downloader logs in to the archive once per run, probes every predicted
acquisition of the tiles of a site and keeps the state of every product in
a history that survives restarts. Products already downloaded are never
fetched again.

Common actions:

- landsat-download download:  fetch the products of a site
- landsat-download history:   show the product history of a site
- landsat-download overpass:  list the candidate products of a tile

Environment variables:

+----------------------------------------+------------------------------------------------------------+
| Name                                   | Description                                                |
+----------------------------------------+------------------------------------------------------------+
| $LANDSAT_CREDENTIALS                   | credentials file (account and password, optional proxy)    |
| $LANDSAT_DEBUG                         | enable verbose output                                      |
| $LANDSAT_HISTORY_DRIVER                | where the history is kept. Values are: sql, memory         |
| $LANDSAT_HISTORY_SQL_CONNECTION_STRING | Postgres connection string of the sql history driver       |
| $LANDSAT_LOGIN_URL                     | location of the archive login form                         |
| $LANDSAT_DOWNLOAD_URL                  | prefix of product download URLs                            |
+----------------------------------------+------------------------------------------------------------+
`

func newRootCmd(actionConfig *action.Configuration, out io.Writer, args []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "landsat-download",
		Short:        "The Landsat product downloader.",
		Long:         globalUsage,
		SilenceUsage: true,
		Args:         require.NoArgs,
	}
	flags := cmd.PersistentFlags()

	settings.AddFlags(flags)

	// We can safely ignore any errors that flags.Parse encounters since
	// those errors will be caught later during the call to cmd.Execution.
	// This call is required to gather configuration information prior to
	// execution.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Parse(args)

	cmd.AddCommand(
		newDownloadCmd(actionConfig, out),
		newHistoryCmd(actionConfig, out),
		newOverpassCmd(out),
		newVersionCmd(out),
	)
	return cmd
}

// initActionConfig prepares the logger and the product history of the
// commands that need them.
func initActionConfig(cfg *action.Configuration, logOut io.Writer) error {
	if cfg.Log == nil {
		cfg.Log = logging.NewLogger(logOut, settings.Debug)
	}
	if cfg.History != nil {
		return settings.Validate()
	}
	return cfg.Init(settings, cfg.Log)
}
