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
	"sync/atomic"
	"time"
)

// watchdog cancels a request once no data arrived for a whole timeout.
type watchdog struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newWatchdog(timeout time.Duration, cancel context.CancelFunc) *watchdog {
	w := &watchdog{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel()
	})
	return w
}

func (w *watchdog) kick() {
	w.timer.Reset(w.timeout)
}

func (w *watchdog) stop() {
	w.timer.Stop()
}

func (w *watchdog) expired() bool {
	return w.fired.Load()
}

// reader kicks the watchdog on every read that returned data.
func (w *watchdog) reader(r io.Reader) io.Reader {
	return &watchedReader{r: r, w: w}
}

type watchedReader struct {
	r io.Reader
	w *watchdog
}

func (wr *watchedReader) Read(p []byte) (int, error) {
	n, err := wr.r.Read(p)
	if n > 0 {
		wr.w.kick()
	}
	return n, err
}
