// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
)

// profileDocument is the on-disk form of a profile; CA files are named by
// path and read by [LoadProfile].
type profileDocument struct {
	diag.Profile `yaml:",inline"`

	CAFiles []string `json:"caFiles" yaml:"caFiles"`
}

// LoadProfile reads a profile document (YAML or JSON by extension) and the
// CA files it names. Relative CA file paths are resolved against the
// directory of the profile.
func LoadProfile(path string) (*diag.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var doc profileDocument
	if err := unmarshal(data, &doc, detectFormat(path)); err != nil {
		return nil, err
	}

	profile := doc.Profile
	dir := filepath.Dir(path)
	for _, name := range doc.CAFiles {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		ca, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile CA file: %w", err)
		}
		profile.CAFiles = append(profile.CAFiles, ca)
	}

	return &profile, nil
}
