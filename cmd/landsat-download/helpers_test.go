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
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/sen2agri/landsat-downloader/internal/logging"
	"github.com/sen2agri/landsat-downloader/internal/test"
	"github.com/sen2agri/landsat-downloader/pkg/action"
	"github.com/sen2agri/landsat-downloader/pkg/cli"
	"github.com/sen2agri/landsat-downloader/pkg/history"
)

func testTimestamper() time.Time { return time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC) }

func init() {
	action.Timestamper = testTimestamper
}

func runTestCmd(t *testing.T, tests []cmdTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer resetEnv()()

			store := storeFixture(t, tt.records...)
			t.Logf("running cmd: %s", tt.cmd)
			_, out, err := executeActionCommandC(store, tt.cmd)
			if tt.wantError && err == nil {
				t.Errorf("expected error, got success with the following output:\n%s", out)
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected no error, got: '%v'", err)
			}
			if tt.golden != "" {
				test.AssertGoldenString(t, out, tt.golden)
			}
		})
	}
}

// storeFixture creates a memory history holding records.
func storeFixture(t *testing.T, records ...*history.Record) *history.Store {
	t.Helper()
	mem := history.NewMemory()
	for _, r := range records {
		if err := mem.Put(r); err != nil {
			t.Fatal(err)
		}
	}
	return history.NewStore(mem)
}

func executeActionCommandC(store *history.Store, cmd string) (*cobra.Command, string, error) {
	args, err := shellwords.Parse(cmd)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)

	actionConfig := &action.Configuration{
		History: store,
		Log:     logging.Discard(),
	}

	settings = cli.New()
	root := newRootCmd(actionConfig, buf, args)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	c, err := root.ExecuteC()

	return c, buf.String(), err
}

// cmdTestCase describes a test case that works with the product history.
type cmdTestCase struct {
	name      string
	cmd       string
	golden    string
	wantError bool
	// records are the history entries present at the start of the test.
	records []*history.Record
}

func resetEnv() func() {
	origEnv := os.Environ()

	// ensure any local envvars do not hose us
	for e := range cli.New().EnvVars() {
		os.Unsetenv(e)
	}

	return func() {
		for _, pair := range origEnv {
			kv := strings.SplitN(pair, "=", 2)
			os.Setenv(kv[0], kv[1])
		}
	}
}
