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

package archivetest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"testing"
)

// bandSize keeps product archives above the plausibility threshold even
// after compression.
const bandSize = 40 * 1024

// Product builds a Landsat-like tar.gz archive holding two band files and an
// MTL metadata file reporting cloudCover.
func Product(t *testing.T, name string, cloudCover float64) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(int64(len(name))))
	band := func() string {
		b := make([]byte, bandSize)
		rnd.Read(b)
		return string(b)
	}
	return TarGz(t, map[string]string{
		name + "_B1.TIF":  band(),
		name + "_B2.TIF":  band(),
		name + "_MTL.txt": fmt.Sprintf("GROUP = L1_METADATA_FILE\r\n    CLOUD_COVER = %.2f\r\nEND_GROUP\r\n", cloudCover),
	})
}

// TarGz builds a gzip compressed tar archive from a file name to content map.
func TarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, n := range names {
		body := files[n]
		hdr := &tar.Header{Name: n, Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// WriteFile writes data to path, failing the test on error.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}
