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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sen2agri/landsat-downloader/internal/archivetest"
	"github.com/sen2agri/landsat-downloader/internal/logging"
	"github.com/sen2agri/landsat-downloader/pkg/cli"
	"github.com/sen2agri/landsat-downloader/pkg/history"
	"github.com/sen2agri/landsat-downloader/pkg/overpass"
	"github.com/sen2agri/landsat-downloader/pkg/siteconfig"
)

const testSiteID = 3

var (
	seasonStart = time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)
	// one repeat cycle holds exactly one overpass of every path
	seasonEnd = seasonStart.AddDate(0, 0, overpass.RepeatCycle)
)

func actionConfigFixture(t *testing.T) *Configuration {
	t.Helper()
	return &Configuration{
		History: history.NewStore(history.NewMemory()),
		Log:     logging.Discard(),
	}
}

func settingsFixture(t *testing.T, srv *archivetest.Server, password string) *cli.EnvSettings {
	t.Helper()
	credsFile := filepath.Join(t.TempDir(), "usgs.txt")
	if err := os.WriteFile(credsFile, []byte(archivetest.Account+" "+password+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return &cli.EnvSettings{
		CredentialsFile: credsFile,
		HistoryDriver:   cli.HistoryDriverMemory,
		LoginURL:        srv.LoginURL(),
		DownloadURL:     srv.DownloadBase(),
		Workers:         2,
		Attempts:        1,
		IdleTimeout:     5 * time.Second,
	}
}

func siteFixture(t *testing.T, tiles ...string) *siteconfig.Site {
	t.Helper()
	return &siteconfig.Site{
		ID:          testSiteID,
		Tiles:       tiles,
		SeasonStart: siteconfig.Date{Time: seasonStart},
		SeasonEnd:   siteconfig.Date{Time: seasonEnd},
		WriteDir:    t.TempDir(),
		Satellite:   string(overpass.LC8),
		Stations:    []string{overpass.DefaultStation},
		RemoteDir:   siteconfig.DefaultRemoteDir,
	}
}

// candidateNames lists the product names probed for a tile within the season.
func candidateNames(t *testing.T, tileID string) []string {
	t.Helper()
	tile, err := overpass.ParseTile(tileID)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, date := range overpass.Enumerate(tile, overpass.LC8, seasonStart, seasonEnd, fixedNow()).All() {
		for _, c := range overpass.Candidates(overpass.LC8, tile, date, []string{overpass.DefaultStation}) {
			names = append(names, c.ProductName())
		}
	}
	return names
}

func fixedNow() time.Time {
	return time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
}

func withFixedNow(t *testing.T) {
	t.Helper()
	Timestamper = fixedNow
	t.Cleanup(func() { Timestamper = time.Now })
}

func TestConfigurationInitMemory(t *testing.T) {
	settings := &cli.EnvSettings{HistoryDriver: cli.HistoryDriverMemory, Workers: 1, Attempts: 1}
	cfg := &Configuration{}
	if err := cfg.Init(settings, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	defer cfg.Close()

	if cfg.History.Name() != history.MemoryDriverName {
		t.Errorf("expected the memory driver, got %s", cfg.History.Name())
	}
}

func TestConfigurationInitInvalid(t *testing.T) {
	settings := &cli.EnvSettings{HistoryDriver: "etcd", Workers: 1, Attempts: 1}
	if err := (&Configuration{}).Init(settings, logging.Discard()); err == nil {
		t.Error("expected an unknown history driver to fail")
	}
}
