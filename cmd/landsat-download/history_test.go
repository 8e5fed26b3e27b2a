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
	"strings"
	"testing"
	"time"

	"github.com/sen2agri/landsat-downloader/pkg/history"
)

func recordFixture(name string, status history.Status, acquired, modified time.Time, path string, retries int) *history.Record {
	return &history.Record{
		SiteID:          12,
		ProductName:     name,
		Status:          status,
		AcquisitionDate: acquired,
		LocalPath:       path,
		Retries:         retries,
		MaxRetries:      3,
		CreatedAt:       modified,
		ModifiedAt:      modified,
	}
}

func historyRecords() []*history.Record {
	day := func(m time.Month, d int) time.Time { return time.Date(2016, m, d, 0, 0, 0, 0, time.UTC) }
	return []*history.Record{
		recordFixture("LC81830292016099LGN00", history.Downloaded, day(4, 8), time.Date(2016, 4, 20, 10, 15, 13, 0, time.UTC), "/mnt/archive/12/LC81830292016099LGN00", 0),
		recordFixture("LC81830292016115LGN00", history.Failed, day(4, 24), time.Date(2016, 5, 2, 10, 15, 13, 0, time.UTC), "", 1),
	}
}

func TestHistoryCmd(t *testing.T) {
	tests := []cmdTestCase{{
		name:    "json",
		cmd:     "history 12 --status downloaded --output json",
		golden:  "output/history.json",
		records: historyRecords(),
	}, {
		name:      "unknown format",
		cmd:       "history 12 --output xml",
		records:   historyRecords(),
		wantError: true,
	}, {
		name:      "unknown status",
		cmd:       "history 12 --status lost",
		records:   historyRecords(),
		wantError: true,
	}, {
		name:      "invalid site",
		cmd:       "history twelve",
		wantError: true,
	}, {
		name: "empty",
		cmd:  "history 12",
	}}
	runTestCmd(t, tests)
}

func TestHistoryCmdTable(t *testing.T) {
	defer resetEnv()()

	_, out, err := executeActionCommandC(storeFixture(t, historyRecords()...), "history 12 --max 1")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PRODUCT", "RETRIES", "LC81830292016115LGN00", "failed", "1/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "LC81830292016099LGN00") {
		t.Errorf("expected only the most recent product, got:\n%s", out)
	}
}
