// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package probe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the scratch directory of one probe.
type Workspace struct {
	// RunID names the directory and tags the result of the probe.
	RunID string
	Dir   string

	keep bool
}

// NewWorkspace creates a fresh directory below base, or below the system
// temporary directory when base is empty. With keep set the directory
// survives [Workspace.Close].
func NewWorkspace(base string, keep bool) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}

	id := uuid.NewString()
	dir := filepath.Join(base, "eap-radius-diag-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("probe: create workspace: %w", err)
	}

	return &Workspace{RunID: id, Dir: dir, keep: keep}, nil
}

// Path returns the path of name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.Dir, name) }

// WriteFile stores data as name inside the workspace.
func (w *Workspace) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(w.Path(name), data, 0o600); err != nil {
		return fmt.Errorf("probe: write %s: %w", name, err)
	}
	return nil
}

// ReadOptional returns the content of name inside dir, or nil when it does
// not exist. Runners use it for files the handshake may not have written.
func ReadOptional(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe: read %s: %w", name, err)
	}
	return data, nil
}

// Close removes the workspace unless it is kept.
func (w *Workspace) Close() error {
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
