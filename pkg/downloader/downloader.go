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

package downloader

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sen2agri/landsat-downloader/pkg/archive"
	"github.com/sen2agri/landsat-downloader/pkg/history"
	"github.com/sen2agri/landsat-downloader/pkg/progress"
)

const (
	// MinContentLength is the smallest plausible product archive. Shorter
	// responses are error pages.
	MinContentLength = 50000
	// DefaultChunkSize is the amount of data written to disk at once.
	DefaultChunkSize = 8 << 20
	// DefaultIdleTimeout bounds the time spent waiting for data.
	DefaultIdleTimeout = 100 * time.Second

	notFoundMarker  = "Download Not Found"
	signedOutMarker = "You must sign in"
	// maxMarkupSize bounds how much of an HTML answer is inspected.
	maxMarkupSize = 64 << 10
)

var errExhausted = errors.New("retries exhausted")

// Getter issues authenticated GET requests. *session.Session implements it.
type Getter interface {
	Get(ctx context.Context, href string) (*http.Response, error)
}

// Downloader fetches product archives and keeps their history.
type Downloader struct {
	history     *history.Store
	unpacker    *archive.Unpacker
	log         logrus.FieldLogger
	out         io.Writer
	idleTimeout time.Duration
	chunkSize   int
	attempts    int
	newBackOff  func() backoff.BackOff
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Downloader) {
		d.log = l
	}
}

// WithProgress sets where transfer progress is displayed. Nil disables it.
func WithProgress(out io.Writer) Option {
	return func(d *Downloader) {
		d.out = out
	}
}

// WithIdleTimeout sets how long the downloader waits for data before giving
// up on a transfer.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.idleTimeout = timeout
		}
	}
}

// WithChunkSize sets the size of the writes to the archive file.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithAttempts sets how many times a transiently failing product is tried
// within one call to Fetch. The default of 1 leaves retries to later runs.
func WithAttempts(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithBackOff sets the policy spacing the attempts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(d *Downloader) {
		d.newBackOff = fn
	}
}

// New creates a Downloader recording to store and unpacking with unpacker.
func New(store *history.Store, unpacker *archive.Unpacker, opts ...Option) *Downloader {
	d := &Downloader{
		history:     store,
		unpacker:    unpacker,
		log:         logrus.StandardLogger(),
		idleTimeout: DefaultIdleTimeout,
		chunkSize:   DefaultChunkSize,
		attempts:    1,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Second
			b.MaxInterval = 2 * time.Minute
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads, verifies and unpacks the product of task. Transient
// failures are tried again up to the configured number of attempts, as long
// as the product has retries left.
func (d *Downloader) Fetch(ctx context.Context, g Getter, task Task) Outcome {
	log := d.log.WithField("product", task.ProductName)

	var out Outcome
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			decision, _, err := d.history.Eligible(task.SiteID, task.ProductName)
			if err == nil && decision == history.SkipExhausted {
				return backoff.Permanent(errExhausted)
			}
		}
		out = d.fetch(ctx, g, task, log)
		if out.Retryable() {
			return out
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), uint64(d.attempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warnf("attempt %d of %d failed (%v), trying again in %s", attempt, d.attempts, err, wait.Round(time.Second))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil && errors.Is(err, errExhausted) {
		log.Info("no retries left")
	}
	return out
}

func (d *Downloader) fetch(ctx context.Context, g Getter, task Task, log logrus.FieldLogger) Outcome {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	dog := newWatchdog(d.idleTimeout, cancel)
	defer dog.stop()

	log.Infof("Downloading %s", task.URL)
	resp, err := g.Get(reqCtx, task.URL)
	if err != nil {
		return classify(ctx, dog, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusInternalServerError {
		log.Info("product does not exist remotely")
		return Outcome{Kind: PermanentMiss, Reason: "does not exist remotely", StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warnf("unexpected response %s", resp.Status)
		return Outcome{Kind: Transient, Reason: "unexpected status " + resp.Status, StatusCode: resp.StatusCode}
	}

	if isMarkup(resp.Header.Get("Content-Type")) {
		reason := "markup response"
		page, _ := io.ReadAll(io.LimitReader(dog.reader(resp.Body), maxMarkupSize))
		switch {
		case strings.Contains(string(page), notFoundMarker):
			reason = "download not found"
		case strings.Contains(string(page), signedOutMarker):
			log.Warn("the archive ended the session")
			return Outcome{Kind: Transient, Reason: "session expired", StatusCode: resp.StatusCode}
		}
		log.Infof("archive answered with a page instead of the product (%s)", reason)
		return Outcome{Kind: PermanentMiss, Reason: reason, StatusCode: resp.StatusCode}
	}

	declared := resp.ContentLength
	if declared < MinContentLength {
		log.Infof("declared length %d is too small for a product", declared)
		return Outcome{Kind: PermanentMiss, Reason: "undersized response", StatusCode: resp.StatusCode}
	}

	archivePath := task.ArchivePath()
	if fi, err := os.Stat(archivePath); err == nil && fi.Size() == declared {
		log.Infof("%s already present with the declared size of %s", archivePath, progress.FormatSize(float64(declared)))
		resp.Body.Close()
		if err := d.record(task, history.Downloading, task.ExtractionPath()); err != nil {
			return Outcome{Kind: History, Reason: "unable to record download start", Err: err}
		}
		return d.unpack(ctx, task, AlreadyPresent, declared, log)
	}

	if err := d.record(task, history.Downloading, task.ExtractionPath()); err != nil {
		return Outcome{Kind: History, Reason: "unable to record download start", Err: err}
	}

	rep := progress.NewReporter(progress.Options{Total: declared, Name: task.ProductName, Output: d.out})
	written, err := d.stream(dog.reader(resp.Body), archivePath, rep)
	rep.Finish()
	if err != nil {
		out := classify(ctx, dog, err)
		out.Bytes = written
		out.StatusCode = resp.StatusCode
		log.WithError(err).Warnf("transfer interrupted after %s, keeping the partial archive", progress.FormatSize(float64(written)))
		if ctx.Err() != nil {
			// A cancelled run leaves the record DOWNLOADING for the next run.
			return out
		}
		return d.fail(task, out)
	}
	if written != declared {
		log.Warnf("received %d bytes instead of the declared %d", written, declared)
		return d.fail(task, Outcome{
			Kind:       Integrity,
			Reason:     "size mismatch",
			StatusCode: resp.StatusCode,
			Bytes:      written,
		})
	}
	log.Infof("received %s at %s/s", progress.FormatSize(float64(written)), progress.FormatSize(rep.Rate()))
	return d.unpack(ctx, task, Downloaded, written, log)
}

// unpack extracts a complete archive and records the final state.
func (d *Downloader) unpack(ctx context.Context, task Task, kind Kind, size int64, log logrus.FieldLogger) Outcome {
	res, err := d.unpacker.Unpack(ctx, task.ArchivePath(), task.DestDir)
	if err != nil {
		log.WithError(err).Error("unable to unpack the archive")
		return d.fail(task, Outcome{Kind: Extraction, Reason: "unable to unpack", Bytes: size, Err: err})
	}

	localPath := res.Dir
	if res.Discarded {
		localPath = ""
	}
	if err := d.record(task, history.Downloaded, localPath); err != nil {
		return Outcome{Kind: History, Reason: "unable to record the download", Bytes: size, Err: err, Unpacked: res}
	}
	return Outcome{Kind: kind, Bytes: size, Warnings: res.Warnings, Unpacked: res}
}

// stream copies body to path in chunks.
func (d *Downloader) stream(body io.Reader, path string, rep *progress.Reporter) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, &writeError{err}
	}

	buf := make([]byte, d.chunkSize)
	var written int64
	for {
		n, rerr := fill(body, buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				f.Close()
				return written, &writeError{err}
			}
			written += int64(n)
			rep.Add(int64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return written, rerr
		}
	}
	if err := f.Close(); err != nil {
		return written, &writeError{err}
	}
	return written, nil
}

// fill reads into buf until it is full or the reader fails.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (d *Downloader) record(task Task, status history.Status, localPath string) error {
	return d.history.Upsert(task.SiteID, task.ProductName, status, task.AcquisitionDate, localPath, task.MaxRetries)
}

// fail records the product as failed and returns out, or a History outcome
// when the record cannot be written.
func (d *Downloader) fail(task Task, out Outcome) Outcome {
	if err := d.record(task, history.Failed, task.ExtractionPath()); err != nil {
		return Outcome{
			Kind:       History,
			Reason:     "unable to record " + out.Kind.String(),
			StatusCode: out.StatusCode,
			Bytes:      out.Bytes,
			Err:        multierror.Append(out.Err, err),
		}
	}
	return out
}

type writeError struct {
	err error
}

func (e *writeError) Error() string { return "unable to write archive: " + e.err.Error() }

func (e *writeError) Unwrap() error { return e.err }

// classify maps a transfer error to an outcome.
func classify(ctx context.Context, dog *watchdog, err error) Outcome {
	var werr *writeError
	var netErr net.Error
	switch {
	case dog.expired():
		return Outcome{Kind: Transient, Reason: "timeout", Err: err}
	case ctx.Err() != nil:
		return Outcome{Kind: Transient, Reason: "interrupted", Err: ctx.Err()}
	case errors.As(err, &werr):
		return Outcome{Kind: Transient, Reason: "local write failed", Err: err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Outcome{Kind: Integrity, Reason: "truncated transfer", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return Outcome{Kind: Transient, Reason: "timeout", Err: err}
	}
	return Outcome{Kind: Transient, Reason: "network error", Err: err}
}

func isMarkup(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(contentType, "text/html")
	}
	return mediaType == "text/html"
}
