// Package config loads editor options from TOML files for the jsonmend CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/jsonmend/internal/editor"
)

// Options is the on-disk editor configuration.
type Options struct {
	ReadOnly        bool   `toml:"read_only"`
	Indent          string `toml:"indent"`
	IndentSpaces    int    `toml:"indent_spaces"`
	TabSize         int    `toml:"tab_size"`
	EscapeUnicode   bool   `toml:"escape_unicode"`
	MaxDocumentSize int    `toml:"max_document_size"`
	DebounceMS      int    `toml:"debounce_ms"`
}

// Default returns the built-in options.
func Default() Options {
	return Options{
		Indent:  editor.DefaultIndent,
		TabSize: editor.DefaultTabSize,
	}
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config file %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads options from path, merged over the defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &opts); err != nil {
		return Default(), &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	if opts.IndentSpaces > 0 {
		opts.Indent = strings.Repeat(" ", opts.IndentSpaces)
	}
	return opts, nil
}

// EditorConfig converts the options into an editor configuration.
func (o Options) EditorConfig() editor.Config {
	return editor.Config{
		ReadOnly:        o.ReadOnly,
		Indent:          o.Indent,
		TabSize:         o.TabSize,
		EscapeUnicode:   o.EscapeUnicode,
		MaxDocumentSize: o.MaxDocumentSize,
		DebounceDelay:   time.Duration(o.DebounceMS) * time.Millisecond,
	}
}
