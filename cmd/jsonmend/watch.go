package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/jsonmend/internal/editor"
	"github.com/dshills/jsonmend/internal/editor/view"
	"github.com/dshills/jsonmend/internal/event"
)

// watchFile feeds external file edits through the reconciliation engine and
// prints diagnostics whenever the document changes. The parent directory is
// watched because editors typically replace files via rename.
func watchFile(path string, cfg editor.Config) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}

	ed := editor.New(view.NewMemory(""), string(data), cfg)
	defer ed.Close()

	ed.OnChange(func(evt event.Event[editor.Change]) error {
		printOutcome(path, ed)
		return nil
	})
	printOutcome(path, ed)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Name != abs || !(evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create)) {
				continue
			}
			content, err := os.ReadFile(abs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			if err := ed.SetText(string(content)); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watch: %v\n", err)

		case <-signals:
			return nil
		}
	}
}

// printOutcome writes one validation summary line per state, plus any
// diagnostics with their source positions.
func printOutcome(path string, ed *editor.Editor) {
	outcome := ed.Validate()
	if outcome.OK() {
		fmt.Printf("%s: valid\n", path)
		return
	}
	for _, d := range ed.Diagnostics() {
		fmt.Printf("%s:%d:%d: %s: %s\n", path, d.Span.Line, d.Span.Column, d.Severity, d.Message)
	}
}
