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

// Package test compares command output with golden files under testdata.
// Run the tests with -update to rewrite them.
package test

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite golden files with the current output")

// AssertGoldenString checks actual against testdata/name.
func AssertGoldenString(t *testing.T, actual, name string) {
	t.Helper()
	path := filepath.Join("testdata", name)
	actual = unixLines(actual)
	if *update {
		require.NoError(t, os.WriteFile(path, []byte(actual), 0644))
	}
	want, err := os.ReadFile(path)
	require.NoError(t, err, "unable to read golden file")
	assert.Equal(t, unixLines(string(want)), actual, "output differs from %s", path)
}

func unixLines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
