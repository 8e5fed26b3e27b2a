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
Package archive unpacks downloaded product archives and runs the
post-processing pass over the extracted raster bands.

A product archive <dir>/<product>.tgz is extracted into <dir>/<product>/.
The archive is removed once extraction succeeds; a failed extraction leaves
no destination directory behind. Band files are then handed to a Fixer,
which corrects the north-south axis inversion of the rasters. A Fixer
failure only degrades the product: it is reported as a warning.
*/
package archive // import "github.com/sen2agri/landsat-downloader/pkg/archive"
