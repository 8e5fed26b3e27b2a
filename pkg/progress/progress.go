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

/*
Package progress reports the advance of a single transfer: percentage done
and throughput. On a terminal it redraws a bar in place; elsewhere it
prints a line every time another tenth of the transfer completes.
*/
package progress // import "github.com/sen2agri/landsat-downloader/pkg/progress"

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const barWidth = 50

// Options configures a Reporter.
type Options struct {
	// Total is the expected number of bytes.
	Total int64
	// Name labels the transfer.
	Name string
	// Output receives the progress display. Nil disables it.
	Output io.Writer
	// Interactive forces the redrawn bar on or off. When nil it is enabled
	// if Output is a terminal.
	Interactive *bool
}

// Reporter tracks the bytes received by one transfer.
type Reporter struct {
	opts        Options
	interactive bool
	done        int64
	start       time.Time
	now         func() time.Time
	lastDecile  int
}

// NewReporter starts reporting a transfer.
func NewReporter(opts Options) *Reporter {
	r := &Reporter{opts: opts, now: time.Now, lastDecile: -1}
	if opts.Interactive != nil {
		r.interactive = *opts.Interactive
	} else if f, ok := opts.Output.(*os.File); ok {
		r.interactive = term.IsTerminal(int(f.Fd()))
	}
	r.start = r.now()
	return r
}

// Add records n more bytes and refreshes the display.
func (r *Reporter) Add(n int64) {
	r.done += n
	r.render()
}

// Done returns the number of bytes received so far.
func (r *Reporter) Done() int64 {
	return r.done
}

// Percent returns how much of the transfer completed, floored.
func (r *Reporter) Percent() float64 {
	if r.opts.Total <= 0 {
		return 0
	}
	return math.Floor(float64(r.done) / float64(r.opts.Total) * 100)
}

// Rate returns the average throughput in bytes per second.
func (r *Reporter) Rate() float64 {
	elapsed := r.now().Sub(r.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.done) / elapsed
}

// Finish ends the display.
func (r *Reporter) Finish() {
	if r.opts.Output == nil {
		return
	}
	if r.interactive {
		fmt.Fprintln(r.opts.Output)
		return
	}
	fmt.Fprintf(r.opts.Output, "%s: %s received in %s (%s/s)\n",
		r.opts.Name, FormatSize(float64(r.done)), r.now().Sub(r.start).Round(time.Second), FormatSize(r.Rate()))
}

func (r *Reporter) render() {
	if r.opts.Output == nil {
		return
	}
	percent := r.Percent()
	if r.interactive {
		filled := int(percent) * barWidth / 100
		if filled > barWidth {
			filled = barWidth
		}
		fmt.Fprintf(r.opts.Output, "\r[%s%s]%3.0f%% %s/s",
			strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), percent, FormatSize(r.Rate()))
		return
	}
	decile := int(percent) / 10
	if decile == r.lastDecile {
		return
	}
	r.lastDecile = decile
	fmt.Fprintf(r.opts.Output, "%s: %3.0f%% (%s of %s, %s/s)\n",
		r.opts.Name, percent, FormatSize(float64(r.done)), FormatSize(float64(r.opts.Total)), FormatSize(r.Rate()))
}

// FormatSize renders a byte count in a human readable unit.
func FormatSize(n float64) string {
	for _, unit := range []string{"bytes", "KB", "MB", "GB"} {
		if math.Abs(n) < 1024.0 {
			return fmt.Sprintf("%3.1f %s", n, unit)
		}
		n /= 1024.0
	}
	return fmt.Sprintf("%3.1f %s", n, "TB")
}
