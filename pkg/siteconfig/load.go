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

package siteconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"sigs.k8s.io/yaml"
)

//go:embed site.schema.json
var schemaJSON []byte

// Load reads a site file. Files ending in .toml are TOML, anything else is
// YAML or JSON.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read site file")
	}
	var site *Site
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		site, err = ParseTOML(data)
	} else {
		site, err = Parse(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "invalid site file %s", path)
	}
	return site, nil
}

// Parse reads a YAML or JSON site document.
func Parse(data []byte) (*Site, error) {
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// ParseTOML reads a TOML site document.
func ParseTOML(data []byte) (*Site, error) {
	raw := map[string]interface{}{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func decode(doc []byte) (*Site, error) {
	if err := validateAgainstSchema(doc); err != nil {
		return nil, err
	}
	site := &Site{}
	if err := yaml.Unmarshal(doc, site); err != nil {
		return nil, err
	}
	site.applyDefaults()
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return site, nil
}

func validateAgainstSchema(doc []byte) (reterr error) {
	defer func() {
		if r := recover(); r != nil {
			reterr = fmt.Errorf("unable to validate schema: %s", r)
		}
	}()

	if bytes.Equal(bytes.TrimSpace(doc), []byte("null")) {
		doc = []byte("{}")
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, desc := range result.Errors() {
			sb.WriteString(fmt.Sprintf("- %s\n", desc))
		}
		return errors.New(sb.String())
	}
	return nil
}
