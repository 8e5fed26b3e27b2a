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

package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RunLogFileName is the name of the log file kept in every write directory.
const RunLogFileName = "landsat_download.log"

// NewLogger creates a text logger writing to out. Debug entries are only
// emitted when debug is true.
func NewLogger(out io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// RunLog is a logger whose lifecycle is tied to a single download run. Entries
// go to the base logger output and to the run log file in the write directory.
type RunLog struct {
	*logrus.Logger
	file *os.File
}

// OpenRunLog opens (appending) the run log file in dir and returns a logger
// that tees into it. The caller must Close the RunLog when the run ends.
func OpenRunLog(base *logrus.Logger, dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "unable to create write directory %s", dir)
	}
	f, err := os.OpenFile(filepath.Join(dir, RunLogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open run log")
	}

	l := logrus.New()
	l.SetOutput(io.MultiWriter(base.Out, f))
	l.SetFormatter(base.Formatter)
	l.SetLevel(base.GetLevel())
	return &RunLog{Logger: l, file: f}, nil
}

// Path returns the location of the run log file.
func (r *RunLog) Path() string {
	return r.file.Name()
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	r.Logger.SetOutput(io.Discard)
	return r.file.Close()
}
