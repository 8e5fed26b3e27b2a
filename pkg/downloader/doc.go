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
Package downloader retrieves product archives from the imagery archive.

A Downloader fetches one product per call over an authenticated session,
verifies that the number of bytes received matches the declared length,
keeps the product history up to date and hands complete archives to the
archive Unpacker. Every call ends with an Outcome; none of them is fatal to
a run.

	d := downloader.New(store, unpacker, downloader.WithLogger(log))
	out := d.Fetch(ctx, sess, task)
	if !out.Success() {
		log.Warn(out.Error())
	}
*/
package downloader // import "github.com/sen2agri/landsat-downloader/pkg/downloader"
