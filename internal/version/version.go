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

// Package version reports how the downloader binary was built.
package version // import "github.com/sen2agri/landsat-downloader/internal/version"

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

var (
	// version is replaced at link time, -ldflags "-X .../internal/version.version=v1.1".
	version = "v1.0"
	// commit is used when the binary carries no VCS stamp.
	commit = ""
)

// BuildInfo is the build of the running binary.
type BuildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// UserAgent identifies the downloader to the archive.
func UserAgent() string {
	return "landsat-download/" + strings.TrimPrefix(version, "v")
}

// Get reads the build info, preferring the VCS stamp of the Go toolchain.
// Test binaries get a fixed value so command output stays comparable.
func Get() BuildInfo {
	if testing.Testing() {
		return BuildInfo{Version: version}
	}
	v := BuildInfo{Version: version, Commit: commit, GoVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "" {
				v.Commit = s.Value
			}
		case "vcs.modified":
			v.Modified = s.Value == "true"
		}
	}
	return v
}
