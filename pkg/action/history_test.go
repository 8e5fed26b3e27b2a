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
	"testing"
	"time"

	"github.com/sen2agri/landsat-downloader/pkg/history"
)

func TestHistoryRun(t *testing.T) {
	cfg := actionConfigFixture(t)
	acquired := time.Date(2016, 4, 12, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"LC81960302016103LGN00", "LC81960302016119LGN00", "LC81960302016135LGN00"} {
		if err := cfg.History.Upsert(testSiteID, name, history.Downloading, acquired, "", 3); err != nil {
			t.Fatal(err)
		}
	}
	if err := cfg.History.Upsert(testSiteID, "LC81960302016119LGN00", history.Downloaded, acquired, "/data/x", 3); err != nil {
		t.Fatal(err)
	}
	if err := cfg.History.Upsert(testSiteID+1, "LC81840292016103LGN00", history.Downloading, acquired, "", 3); err != nil {
		t.Fatal(err)
	}

	all, err := NewHistory(cfg).Run(testSiteID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	h := NewHistory(cfg)
	h.Status = history.Downloaded
	done, err := h.Run(testSiteID)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].ProductName != "LC81960302016119LGN00" {
		t.Errorf("expected only the downloaded product, got %v", done)
	}

	h = NewHistory(cfg)
	h.Max = 2
	capped, err := h.Run(testSiteID)
	if err != nil {
		t.Fatal(err)
	}
	if len(capped) != 2 {
		t.Errorf("expected 2 records, got %d", len(capped))
	}
}
