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
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sen2agri/landsat-downloader/internal/logging"
	"github.com/sen2agri/landsat-downloader/internal/tlsutil"
	"github.com/sen2agri/landsat-downloader/pkg/archive"
	"github.com/sen2agri/landsat-downloader/pkg/cli"
	"github.com/sen2agri/landsat-downloader/pkg/credentials"
	"github.com/sen2agri/landsat-downloader/pkg/downloader"
	"github.com/sen2agri/landsat-downloader/pkg/history"
	"github.com/sen2agri/landsat-downloader/pkg/overpass"
	"github.com/sen2agri/landsat-downloader/pkg/session"
	"github.com/sen2agri/landsat-downloader/pkg/siteconfig"
)

// LockFileName guards a write directory against concurrent runs.
const LockFileName = ".landsat_download.lock"

// Connector opens the authenticated session of a run.
type Connector func(ctx context.Context, log logrus.FieldLogger) (downloader.Getter, error)

// Download is the action fetching every product of a site.
//
// It provides the implementation of 'landsat-download download'.
type Download struct {
	cfg *Configuration

	Settings *cli.EnvSettings
	Site     *siteconfig.Site
	// Connect opens the session. It defaults to logging in with the
	// credentials file of Settings.
	Connect Connector
	// Progress receives transfer progress. Nil hides it.
	Progress io.Writer
	// LockTimeout bounds the wait for the write directory lock.
	LockTimeout time.Duration
}

// NewDownload creates a new Download object with the given configuration.
func NewDownload(cfg *Configuration, settings *cli.EnvSettings) *Download {
	d := &Download{
		cfg:         cfg,
		Settings:    settings,
		LockTimeout: 5 * time.Second,
	}
	d.Connect = d.login
	return d
}

// Run downloads the products of the site. Missing or rejected credentials
// abort the run; failures of single products are only reported.
func (d *Download) Run(ctx context.Context) (*Report, error) {
	if d.Site == nil {
		return nil, errNoSite
	}
	site := d.Site

	runLog, err := logging.OpenRunLog(d.cfg.Log, site.WriteDir)
	if err != nil {
		return nil, err
	}
	defer runLog.Close()
	log := runLog.WithField("site", site.ID)

	fileLock := flock.New(filepath.Join(site.WriteDir, LockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, d.LockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err == nil && locked {
		defer fileLock.Unlock()
	}
	if err != nil || !locked {
		return nil, errLocked
	}

	unpacker, err := d.unpacker(log)
	if err != nil {
		return nil, err
	}

	getter, err := d.Connect(ctx, log)
	if err != nil {
		return nil, err
	}

	dl := downloader.New(d.cfg.History, unpacker,
		downloader.WithLogger(log),
		downloader.WithProgress(d.Progress),
		downloader.WithIdleTimeout(d.Settings.IdleTimeout),
		downloader.WithAttempts(d.Settings.Attempts))

	now := Timestamper()
	report := &Report{SiteID: site.ID, Tiles: make([]*TileReport, len(site.Tiles))}

	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(d.Settings.Workers)
	for i, id := range site.Tiles {
		i, id := i, id
		tr := &TileReport{Tile: id}
		report.Tiles[i] = tr
		g.Go(func() error {
			t := &tileRun{d: d, getter: getter, dl: dl, unpacker: unpacker, report: tr, now: now,
				log: log.WithField("tile", id)}
			if err := t.run(ctx); err != nil {
				mu.Lock()
				result = multierror.Append(result, errors.Wrapf(err, "tile %s", id))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if downloaded := report.Downloaded(); len(downloaded) > 0 {
		log.Infof("Downloaded product: %v", downloaded)
	} else {
		log.Info("No product has been downloaded")
	}
	if err := ctx.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	return report, result.ErrorOrNil()
}

func (d *Download) unpacker(log logrus.FieldLogger) (*archive.Unpacker, error) {
	var fixer archive.Fixer
	if d.Site.FixCommand != "" {
		cmd, err := archive.NewCommandFixer(d.Site.FixCommand)
		if err != nil {
			return nil, err
		}
		fixer = cmd
	}
	u := archive.NewUnpacker(fixer, log)
	u.CloudLimit = d.Site.CloudLimit
	return u, nil
}

// login reads the credentials file and establishes a session with the
// archive.
func (d *Download) login(ctx context.Context, log logrus.FieldLogger) (downloader.Getter, error) {
	creds, err := credentials.Load(d.Settings.CredentialsFile)
	if err != nil {
		return nil, err
	}
	if creds.Proxy != nil {
		log.Infof("Found proxy info: %s", creds.Proxy)
	}

	var tlsOpts []tlsutil.Option
	if d.Settings.CAFile != "" {
		tlsOpts = append(tlsOpts, tlsutil.WithCAFile(d.Settings.CAFile))
	}
	if d.Settings.InsecureSkipTLSVerify {
		tlsOpts = append(tlsOpts, tlsutil.WithInsecureSkipVerify(true))
	}
	tlsConfig, err := tlsutil.NewClientConfig(tlsOpts...)
	if err != nil {
		return nil, err
	}

	sess, err := session.Establish(ctx, creds,
		session.WithLoginURL(d.Settings.LoginURL),
		session.WithTLSClientConfig(tlsConfig),
		session.WithHostRateLimit(d.Settings.HostRPS, 1),
		session.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// tileRun walks the candidates of one tile.
type tileRun struct {
	d        *Download
	getter   downloader.Getter
	dl       *downloader.Downloader
	unpacker *archive.Unpacker
	report   *TileReport
	now      time.Time
	log      logrus.FieldLogger
}

func (t *tileRun) run(ctx context.Context) error {
	site := t.d.Site
	t.log.Infof("Starting the process for tile %s for time interval [%s - %s]", t.report.Tile, site.SeasonStart, site.SeasonEnd)

	tile, err := overpass.ParseTile(t.report.Tile)
	if err != nil {
		t.log.WithError(err).Warn("skipping tile")
		t.report.Invalid = true
		return nil
	}
	t.log.Debugf("path=%03d|row=%03d", tile.Path, tile.Row)

	sat := site.Sat()
	var result *multierror.Error
	it := overpass.Enumerate(tile, sat, site.SeasonStart.Time, site.SeasonEnd.Time, t.now)
	for date, ok := it.Next(); ok; date, ok = it.Next() {
		if ctx.Err() != nil {
			break
		}
		t.log.Infof("Searching for images on (julian date): %s (acquired %s)...", overpass.JulianDate(date), overpass.AcquisitionStamp(date))
		for _, c := range overpass.Candidates(sat, tile, date, site.Stations) {
			if ctx.Err() != nil {
				break
			}
			if err := t.candidate(ctx, c); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if len(t.report.Downloaded) > 0 {
		t.log.Infof("Downloaded product: %v", t.report.Downloaded)
	} else {
		t.log.Info("No product has been downloaded")
	}
	return result.ErrorOrNil()
}

func (t *tileRun) candidate(ctx context.Context, c overpass.Candidate) error {
	site := t.d.Site
	name := c.ProductName()
	log := t.log.WithField("product", name)

	decision, rec, err := t.d.cfg.History.Eligible(site.ID, name)
	if err != nil {
		t.report.Failed++
		return errors.Wrapf(err, "unable to read the history of %s", name)
	}

	switch decision {
	case history.SkipDownloaded:
		log.Debug("found in history, already downloaded")
		t.report.Skipped++
		t.heal(ctx, rec, log)
		return nil
	case history.SkipExhausted:
		log.Infof("giving up after %d failed attempts", rec.Retries)
		t.report.Skipped++
		return nil
	}
	if rec == nil && t.d.cfg.History.Exists(name) {
		log.Info("already tracked by another site, fetching it for this one too")
	}

	task := downloader.Task{
		URL:             c.URL(t.d.Settings.DownloadURL, site.RemoteDir),
		ProductName:     name,
		AcquisitionDate: c.Date,
		DestDir:         site.WriteDir,
		SiteID:          site.ID,
		MaxRetries:      site.Retries(),
	}
	out := t.dl.Fetch(ctx, t.getter, task)
	switch {
	case out.Success():
		t.report.Downloaded = append(t.report.Downloaded, name)
		for _, w := range out.Warnings {
			log.Warn(w)
		}
	case out.Kind == downloader.PermanentMiss:
		t.report.Missing++
	case out.Kind == downloader.History:
		t.report.Failed++
		return out
	default:
		log.Warn(out.Error())
		t.report.Failed++
	}
	return nil
}

// heal restores the extraction of a downloaded product when it was removed
// while its archive was kept.
func (t *tileRun) heal(ctx context.Context, rec *history.Record, log logrus.FieldLogger) {
	if rec.LocalPath == "" {
		return
	}
	if _, err := os.Stat(rec.LocalPath); err == nil {
		return
	}

	log.Infof("%s is missing, trying to decompress the archive again", rec.LocalPath)
	_, err := t.unpacker.Unpack(ctx, archive.ArchivePath(t.d.Site.WriteDir, rec.ProductName), t.d.Site.WriteDir)
	switch {
	case err == nil:
		t.report.Restored++
	case errors.Is(err, archive.ErrArchiveMissing):
		log.Warn("the archive was erased too, the product cannot be restored")
	default:
		log.WithError(err).Warn("unable to restore the product")
	}
}
