// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed schema.json
	schemaJSON []byte

	//go:embed template.yaml
	templateYAML []byte
)

// ErrSchema is wrapped when a document does not match the configuration
// schema.
var ErrSchema = errors.New("config: document does not match schema")

// Schema returns the JSON Schema configuration files are checked against.
func Schema() []byte { return schemaJSON }

// Template returns an annotated example configuration in YAML.
func Template() []byte { return templateYAML }

// validateSchema checks the raw document before it is decoded into a
// [Config], so unknown keys and wrong enum values are reported by path.
func validateSchema(data []byte, f format) error {
	var doc gojsonschema.JSONLoader
	switch f {
	case formatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
		if v == nil {
			v = map[string]any{}
		}
		doc = gojsonschema.NewGoLoader(v)
	default:
		doc = gojsonschema.NewBytesLoader(data)
	}

	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), doc)
	if err != nil {
		return fmt.Errorf("failed to validate config file: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
