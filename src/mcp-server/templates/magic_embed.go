// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package templates

import (
	"embed"
	"io/fs"
)

// Embedded template names.
const (
	Instructions = "instructions.md"
	Outcomes     = "outcomes.md"

	// Prompt workflows, split into messages at "### User:" and
	// "### Assistant:" markers.
	DiagnoseRealm = "diagnose_realm.md"
	RadSecPeer    = "radsec_peer.md"
)

//go:embed *.md
var embeddedFS embed.FS

// EmbedFS is the read-only view of the embedded templates.
type EmbedFS interface {
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Open(name string) (fs.File, error)
}

// embedFS wraps [embed.FS] to implement EmbedFS interface.
type embedFS struct{ fs embed.FS }

// ReadFile reads the named file and returns the contents.
func (e *embedFS) ReadFile(name string) ([]byte, error) { return e.fs.ReadFile(name) }

// ReadDir reads the named directory and returns a list of directory entries.
func (e *embedFS) ReadDir(name string) ([]fs.DirEntry, error) { return e.fs.ReadDir(name) }

// Open opens the named file for reading.
func (e *embedFS) Open(name string) (fs.File, error) { return e.fs.Open(name) }

// MagicEmbed is the embedded filesystem holding the server templates.
//
//	instructions, err := templates.MagicEmbed.ReadFile(templates.Instructions)
var MagicEmbed EmbedFS = &embedFS{fs: embeddedFS}
