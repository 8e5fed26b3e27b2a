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
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
)

// Extension is the suffix of product archives.
const Extension = ".tgz"

// ExtractionError reports an archive that could not be unpacked.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("unable to extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// extractTarGz unpacks the gzip compressed tar stream r into targetDir.
// Entry names are resolved inside targetDir.
func extractTarGz(r io.Reader, targetDir string) ([]string, error) {
	uncompressed, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer uncompressed.Close()

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, err
	}

	var files []string
	tarReader := tar.NewReader(uncompressed)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		path, err := securejoin.SecureJoin(targetDir, header.Name)
		if err != nil {
			return nil, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
			if err := writeEntry(path, header, tarReader); err != nil {
				return nil, err
			}
			files = append(files, path)
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			continue
		default:
			return nil, errors.Errorf("unsupported entry type %q for %s", header.Typeflag, header.Name)
		}
	}
	return files, nil
}

func writeEntry(path string, header *tar.Header, r io.Reader) error {
	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
