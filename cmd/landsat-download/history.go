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
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/sen2agri/landsat-downloader/cmd/landsat-download/require"
	"github.com/sen2agri/landsat-downloader/pkg/action"
	"github.com/sen2agri/landsat-downloader/pkg/history"
)

var historyHelp = `
History prints the product history of a site.

Setting '--status' keeps the products in one state. Setting '--max' keeps
the most recently updated products.

The history is printed as a formatted table, e.g:

    $ landsat-download history 12 --max=2
    PRODUCT                 ACQUIRED    STATUS      RETRIES UPDATED                 PATH
    LC81830292016099LGN00   2016-04-08  downloaded  0/3     2016-04-20 10:15:13     /mnt/archive/12/LC81830292016099LGN00
    LC81830292016115LGN00   2016-04-24  failed      1/3     2016-05-02 10:15:13
`

type productInfo struct {
	Product  string `json:"product"`
	Acquired string `json:"acquired"`
	Status   string `json:"status"`
	Retries  int    `json:"retries"`
	Max      int    `json:"max_retries"`
	Updated  string `json:"updated"`
	Path     string `json:"path,omitempty"`
}

type historyOptions struct {
	colWidth     uint   // --col-width
	max          int    // --max
	status       string // --status
	outputFormat string // --output
}

func newHistoryCmd(cfg *action.Configuration, out io.Writer) *cobra.Command {
	o := &historyOptions{}

	cmd := &cobra.Command{
		Use:     "history SITE_ID",
		Long:    historyHelp,
		Short:   "fetch the product history of a site",
		Aliases: []string{"hist"},
		Args:    require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("invalid site id %q", args[0])
			}
			if err := initActionConfig(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer cfg.Close()
			return o.run(cfg, siteID, out)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.max, "max", 0, "maximum number of products to include, most recently updated first")
	f.StringVar(&o.status, "status", "", "only show products in this state (pending|downloading|downloaded|failed)")
	f.UintVar(&o.colWidth, "col-width", 60, "specifies the max column width of output")
	f.StringVarP(&o.outputFormat, "output", "o", "table", "prints the output in the specified format (json|table|yaml)")

	return cmd
}

func (o *historyOptions) run(cfg *action.Configuration, siteID int, out io.Writer) error {
	client := action.NewHistory(cfg)
	client.Max = o.max
	if o.status != "" {
		status, err := history.ParseStatus(o.status)
		if err != nil {
			return err
		}
		client.Status = status
	}

	recs, err := client.Run(siteID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	infos := getProductHistory(recs)

	var formatted []byte
	var formattingError error

	switch o.outputFormat {
	case "yaml":
		formatted, formattingError = yaml.Marshal(infos)
	case "json":
		formatted, formattingError = json.Marshal(infos)
	case "table":
		formatted = formatAsTable(infos, o.colWidth)
	default:
		return errors.Errorf("unknown output format %q", o.outputFormat)
	}

	if formattingError != nil {
		return formattingError
	}

	fmt.Fprintln(out, string(formatted))
	return nil
}

func getProductHistory(recs []*history.Record) []productInfo {
	infos := make([]productInfo, 0, len(recs))
	for _, r := range recs {
		info := productInfo{
			Product: r.ProductName,
			Status:  r.Status.String(),
			Retries: r.Retries,
			Max:     r.MaxRetries,
			Path:    r.LocalPath,
		}
		if !r.AcquisitionDate.IsZero() {
			info.Acquired = r.AcquisitionDate.Format("2006-01-02")
		}
		if !r.ModifiedAt.IsZero() {
			info.Updated = r.ModifiedAt.Format("2006-01-02 15:04:05")
		}
		infos = append(infos, info)
	}
	return infos
}

func formatAsTable(infos []productInfo, colWidth uint) []byte {
	tbl := uitable.New()

	tbl.MaxColWidth = colWidth
	tbl.AddRow("PRODUCT", "ACQUIRED", "STATUS", "RETRIES", "UPDATED", "PATH")
	for _, i := range infos {
		tbl.AddRow(i.Product, i.Acquired, i.Status, fmt.Sprintf("%d/%d", i.Retries, i.Max), i.Updated, i.Path)
	}
	return tbl.Bytes()
}
