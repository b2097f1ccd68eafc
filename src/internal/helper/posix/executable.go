// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package posix

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrToolNotFound indicates that a configured external tool is not executable.
var ErrToolNotFound = errors.New("posix: tool not found")

// GetExecutableName returns the executable name without extension, cross-platform compatible.
// It falls back to "eap-radius-diag" when os.Args[0] is unavailable.
func GetExecutableName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "eap-radius-diag"
	}

	name := filepath.Base(os.Args[0])

	// A Windows path seen on a Unix host keeps its backslashes after Base.
	if strings.ContainsAny(name, `\/`) {
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			name = parts[len(parts)-1]
		}
	}

	return strings.TrimSuffix(name, ".exe")
}

// LookupTool resolves the binary for tool. A configured path wins over a
// lookup of the tool name in PATH.
func LookupTool(tool, configured string) (string, error) {
	candidate := configured
	if candidate == "" {
		candidate = tool
	}

	path, err := exec.LookPath(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, tool, err)
	}
	return path, nil
}

// Lines splits captured tool output into lines without their terminators.
// A trailing newline does not produce an empty last line.
func Lines(output []byte) []string {
	text := strings.ReplaceAll(string(output), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
