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

package action

import (
	"sort"

	"github.com/sen2agri/landsat-downloader/pkg/history"
)

// History is the action for reading the product ledger of a site.
//
// It provides the implementation of 'landsat-download history'.
type History struct {
	cfg *Configuration

	// Status keeps only the records in this state. Unknown keeps all.
	Status history.Status
	// Max caps the number of records returned, most recent first. Zero
	// returns all.
	Max int
}

// NewHistory creates a new History object with the given configuration.
func NewHistory(cfg *Configuration) *History {
	return &History{
		cfg: cfg,
	}
}

// Run returns the records of a site ordered by acquisition date, or most
// recently modified first when Max caps them.
func (h *History) Run(siteID int) ([]*history.Record, error) {
	h.cfg.Log.Debugf("getting history for site %d", siteID)
	recs, err := h.cfg.History.List(siteID)
	if err != nil {
		return nil, err
	}

	filtered := recs[:0]
	for _, r := range recs {
		if h.Status == history.Unknown || r.Status == h.Status {
			filtered = append(filtered, r)
		}
	}
	if h.Max > 0 && len(filtered) > h.Max {
		sortByModified(filtered)
		filtered = filtered[:h.Max]
	}
	return filtered, nil
}

func sortByModified(recs []*history.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ModifiedAt.After(recs[j].ModifiedAt)
	})
}
