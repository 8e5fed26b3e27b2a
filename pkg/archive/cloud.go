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

package archive

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const cloudCoverField = "CLOUD_COVER"

// CloudCover reads the scene cloud cover percentage from the MTL metadata
// file of an extracted product directory.
func CloudCover(productDir string) (float64, error) {
	name := filepath.Base(filepath.Clean(productDir))
	f, err := os.Open(filepath.Join(productDir, name+"_MTL.txt"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var value string
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		key, v, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != cloudCoverField {
			continue
		}
		value, found = strings.TrimSpace(v), true
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.Errorf("%s not found in metadata of %s", cloudCoverField, name)
	}
	cover, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s in metadata of %s", cloudCoverField, name)
	}
	return cover, nil
}
