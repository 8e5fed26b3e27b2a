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
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultBandPattern matches the raster band files of a Landsat product.
const DefaultBandPattern = "*_B*.TIF"

// ErrArchiveMissing is returned when there is no archive to unpack.
var ErrArchiveMissing = errors.New("archive does not exist")

// Result describes an unpacked product.
type Result struct {
	// Dir is the extraction directory.
	Dir string
	// Files lists every extracted file.
	Files []string
	// Bands lists the raster band files handed to the Fixer.
	Bands []string
	// CloudCover is the scene cloud cover, when the metadata has it.
	CloudCover *float64
	// Warnings describe degradations that do not make the product unusable.
	Warnings []string
	// Discarded is set when the extraction was removed for exceeding the
	// cloud limit.
	Discarded bool
}

// Degraded reports whether the product is usable only with caveats.
func (r *Result) Degraded() bool {
	return len(r.Warnings) > 0
}

// Unpacker extracts product archives.
type Unpacker struct {
	// Fixer corrects the extracted bands. Nil skips the correction.
	Fixer Fixer
	// BandPattern selects the band files by base name.
	BandPattern string
	// CloudLimit removes extractions whose cloud cover is above it. Zero
	// keeps every product.
	CloudLimit float64
	Log        logrus.FieldLogger
}

// NewUnpacker returns an Unpacker running fixer over the bands.
func NewUnpacker(fixer Fixer, log logrus.FieldLogger) *Unpacker {
	return &Unpacker{Fixer: fixer, BandPattern: DefaultBandPattern, Log: log}
}

// ProductName strips the directory and archive extension from path.
func ProductName(archivePath string) string {
	return strings.TrimSuffix(filepath.Base(archivePath), Extension)
}

// ArchivePath is the location of the archive of product in dir.
func ArchivePath(dir, product string) string {
	return filepath.Join(dir, product+Extension)
}

// Unpack extracts archivePath into destDir/<product>, removes the archive,
// and runs the Fixer over the band files. Any extraction failure removes the
// destination directory and is returned as an *ExtractionError; Fixer
// failures only add a warning to the result.
func (u *Unpacker) Unpack(ctx context.Context, archivePath, destDir string) (*Result, error) {
	log := u.logger().WithField("archive", filepath.Base(archivePath))

	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, &ExtractionError{Archive: archivePath, Err: ErrArchiveMissing}
		}
		return nil, &ExtractionError{Archive: archivePath, Err: err}
	}

	pattern := u.BandPattern
	if pattern == "" {
		pattern = DefaultBandPattern
	}
	bandGlob, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid band pattern %q", pattern)
	}

	dir := filepath.Join(destDir, ProductName(archivePath))
	if err := os.RemoveAll(dir); err != nil {
		return nil, &ExtractionError{Archive: archivePath, Err: err}
	}

	log.Info("decompressing...")
	files, err := u.extract(archivePath, dir)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.WithError(rmErr).Warn("unable to remove partial extraction")
		}
		return nil, &ExtractionError{Archive: archivePath, Err: err}
	}

	res := &Result{Dir: dir, Files: files}
	if err := os.Remove(archivePath); err != nil {
		res.Warnings = append(res.Warnings, "archive not removed: "+err.Error())
	} else {
		log.Infof("decompress succeeded, removed %s", archivePath)
	}

	for _, f := range files {
		if bandGlob.Match(filepath.Base(f)) {
			res.Bands = append(res.Bands, f)
		}
	}
	sort.Strings(res.Bands)

	if len(res.Bands) > 0 && u.Fixer != nil {
		if err := u.Fixer.Fix(ctx, res.Bands); err != nil {
			log.WithError(err).Warn("north-south correction failed, the product will be used as is")
			res.Warnings = append(res.Warnings, "north-south correction failed: "+err.Error())
		}
	}

	if cover, err := CloudCover(dir); err == nil {
		res.CloudCover = &cover
		log.Debugf("cloud cover %.2f", cover)
		if u.CloudLimit > 0 && cover > u.CloudLimit {
			log.Infof("cloud cover %.2f is above the limit of %.2f, removing %s", cover, u.CloudLimit, dir)
			if err := os.RemoveAll(dir); err != nil {
				res.Warnings = append(res.Warnings, "cloudy product not removed: "+err.Error())
			} else {
				res.Discarded = true
			}
		}
	}
	return res, nil
}

func (u *Unpacker) extract(archivePath, dir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return extractTarGz(f, dir)
}

func (u *Unpacker) logger() logrus.FieldLogger {
	if u.Log == nil {
		return logrus.StandardLogger()
	}
	return u.Log
}
