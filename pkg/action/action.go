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
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sen2agri/landsat-downloader/pkg/cli"
	"github.com/sen2agri/landsat-downloader/pkg/history"
)

// Timestamper is a function capable of producing a timestamp.
//
// It bounds the candidate dates of a run. It can be overridden for testing,
// so that the enumerated dates are predictable.
var Timestamper = time.Now

var (
	// errLocked indicates that another run owns the write directory.
	errLocked = errors.New("another download is running in the same write directory")
	// errNoSite indicates that no site configuration was provided.
	errNoSite = errors.New("no site provided")
)

// Configuration injects the dependencies that all actions share.
type Configuration struct {
	// History is the product ledger.
	History *history.Store
	// Log receives the messages of the actions.
	Log *logrus.Logger

	closer io.Closer
}

// Init opens the history driver selected by settings.
func (cfg *Configuration) Init(settings *cli.EnvSettings, log *logrus.Logger) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	cfg.Log = log

	var d history.Driver
	switch settings.HistoryDriver {
	case cli.HistoryDriverMemory:
		d = history.NewMemory()
	case cli.HistoryDriverSQL:
		sqlDriver, err := history.NewSQL(settings.HistorySQLConnection, log.WithField("driver", history.SQLDriverName))
		if err != nil {
			return errors.Wrap(err, "unable to open the product history")
		}
		d = sqlDriver
		cfg.closer = sqlDriver
	}
	cfg.History = history.NewStore(d)
	log.Debugf("using the %s history driver", cfg.History.Name())
	return nil
}

// Close releases the history driver.
func (cfg *Configuration) Close() error {
	if cfg.closer == nil {
		return nil
	}
	return cfg.closer.Close()
}
