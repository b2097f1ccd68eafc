// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/gc"
)

// Logger defines the interface for logging operations.
// It provides methods for different log levels and formatted output.
//
// This interface supports both CLI and [MCP] server modes, allowing seamless
// switching between human-readable output and structured logging.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type Logger interface {
	// Printf formats and prints a log message.
	Printf(format string, v ...any)
	// Println prints a log message with a newline.
	Println(v ...any)
	// Debugf formats and prints a message only when debug output is enabled.
	Debugf(format string, v ...any)
	// SetOutput sets the output destination for the logger.
	SetOutput(w io.Writer)
}

// CLILogger implements Logger using the standard log package.
// It's designed for command-line interface output with human-readable formatting.
type CLILogger struct {
	logger *log.Logger
	debug  atomic.Bool
}

// NewCLILogger creates a new CLI logger with timestamps disabled.
// This is suitable for user-facing CLI output.
func NewCLILogger() *CLILogger {
	l := log.New(os.Stdout, "", 0)
	return &CLILogger{logger: l}
}

// Printf formats and prints a log message using fmt.Printf semantics.
func (c *CLILogger) Printf(format string, v ...any) { c.logger.Printf(format, v...) }

// Println prints a log message with a newline.
func (c *CLILogger) Println(v ...any) { c.logger.Println(v...) }

// Debugf prints a message prefixed with "debug: " when debug output is on.
func (c *CLILogger) Debugf(format string, v ...any) {
	if c.debug.Load() {
		c.logger.Printf("debug: "+format, v...)
	}
}

// SetDebug toggles debug output.
func (c *CLILogger) SetDebug(on bool) { c.debug.Store(on) }

// SetOutput sets the output destination for the CLI logger.
func (c *CLILogger) SetOutput(w io.Writer) { c.logger.SetOutput(w) }

// JSONLogger implements Logger with one JSON object per line.
// It suppresses output in silent mode since [MCP] communication happens over
// stdio, but can be configured to write structured logs to a separate
// destination such as stderr or a file.
//
// JSONLogger is safe for concurrent use by multiple goroutines.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
	silent bool
	debug  atomic.Bool
}

// logEntry is the wire form of one JSON log line.
type logEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NewJSONLogger creates a new structured logger.
// Set silent=true to suppress all output, which is what the [MCP] stdio
// transport needs when no separate log destination is available.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
func NewJSONLogger(writer io.Writer, silent bool) *JSONLogger {
	if writer == nil {
		writer = io.Discard
	}
	return &JSONLogger{
		writer: writer,
		silent: silent,
	}
}

// write encodes one entry into a pooled buffer and writes it as a single line.
func (m *JSONLogger) write(level, msg string) {
	if m.silent {
		return
	}

	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(logEntry{Level: level, Message: msg}); err != nil {
		return
	}

	m.mu.Lock()
	_, _ = m.writer.Write(buf.Bytes())
	m.mu.Unlock()
}

// Printf formats and logs a structured message at level "info".
// Output is suppressed if silent mode is enabled.
//
// Printf is safe for concurrent use by multiple goroutines.
func (m *JSONLogger) Printf(format string, v ...any) { m.write("info", fmt.Sprintf(format, v...)) }

// Println logs a structured message at level "info".
// Output is suppressed if silent mode is enabled.
//
// Println is safe for concurrent use by multiple goroutines.
func (m *JSONLogger) Println(v ...any) { m.write("info", fmt.Sprint(v...)) }

// Debugf logs a structured message at level "debug" when debug output is on.
func (m *JSONLogger) Debugf(format string, v ...any) {
	if m.debug.Load() {
		m.write("debug", fmt.Sprintf(format, v...))
	}
}

// SetDebug toggles debug output.
func (m *JSONLogger) SetDebug(on bool) { m.debug.Store(on) }

// SetOutput sets the output destination for the JSON logger.
//
// SetOutput is safe for concurrent use by multiple goroutines.
func (m *JSONLogger) SetOutput(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w == nil {
		m.writer = io.Discard
	} else {
		m.writer = w
	}
}
