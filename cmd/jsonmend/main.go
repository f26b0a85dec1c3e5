// Package main is the entry point for the jsonmend command line tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dshills/jsonmend/internal/config"
	"github.com/dshills/jsonmend/internal/editor"
	"github.com/dshills/jsonmend/internal/editor/view"
	"github.com/dshills/jsonmend/internal/locate"
	"github.com/dshills/jsonmend/internal/validate"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	configPath string
	format     bool
	compact    bool
	sortKeys   bool
	repairDoc  bool
	checkOnly  bool
	transform  string
	watch      bool
	write      bool
	indent     string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, files := parseFlags()

	fileOpts, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg := fileOpts.EditorConfig()
	if opts.indent != "" {
		cfg.Indent = opts.indent
	}
	cfg.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if len(files) != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one file expected\n")
		flag.Usage()
		return 2
	}
	path := files[0]

	if opts.watch {
		if err := watchFile(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	return runOnce(path, opts, cfg)
}

func runOnce(path string, opts options, cfg editor.Config) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ed := editor.New(view.NewMemory(""), string(data), cfg)
	defer ed.Close()

	if opts.checkOnly {
		return report(path, ed)
	}

	if err := apply(ed, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := ed.Text()
	if opts.write {
		if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Println(out)
	return 0
}

// apply runs the requested structural commands in a fixed order: repair
// first so later commands see parseable text.
func apply(ed *editor.Editor, opts options) error {
	if opts.repairDoc {
		if err := ed.RepairDocument(); err != nil {
			return err
		}
	}
	if opts.transform != "" {
		script, err := os.ReadFile(opts.transform)
		if err != nil {
			return err
		}
		if _, err := ed.TransformDocument(context.Background(), string(script), false); err != nil {
			return err
		}
	}
	if opts.sortKeys {
		if _, err := ed.SortDocument(locate.Path{}); err != nil {
			return err
		}
	}
	switch {
	case opts.compact:
		return ed.CompactDocument()
	case opts.format:
		return ed.FormatDocument()
	}
	return nil
}

// report prints diagnostics for the document and returns the exit code.
func report(path string, ed *editor.Editor) int {
	outcome := ed.Validate()
	if outcome.OK() {
		fmt.Printf("%s: valid\n", path)
		return 0
	}

	for _, d := range ed.Diagnostics() {
		where := fmt.Sprintf("%d:%d", d.Span.Line, d.Span.Column)
		if len(d.Path) > 0 {
			where = d.Path.Pointer()
		}
		fmt.Printf("%s:%s: %s: %s\n", path, where, d.Severity, d.Message)
		for _, action := range d.Actions {
			fmt.Printf("  available action: %s\n", action)
		}
	}

	if outcome.Kind == validate.KindRepairable {
		fmt.Printf("%s: repairable (run with -repair)\n", path)
	}
	return 1
}

func parseFlags() (options, []string) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", defaultConfigPath(), "Path to configuration file")
	flag.BoolVar(&opts.format, "format", false, "Re-serialize with indentation")
	flag.BoolVar(&opts.compact, "compact", false, "Re-serialize without whitespace")
	flag.BoolVar(&opts.sortKeys, "sort", false, "Sort object keys recursively")
	flag.BoolVar(&opts.repairDoc, "repair", false, "Attempt automatic repair")
	flag.BoolVar(&opts.checkOnly, "validate", false, "Validate and print diagnostics only")
	flag.StringVar(&opts.transform, "transform", "", "Lua transform script to apply")
	flag.BoolVar(&opts.watch, "watch", false, "Watch the file and revalidate on change")
	flag.BoolVar(&opts.write, "w", false, "Write the result back to the file")
	flag.StringVar(&opts.indent, "indent", "", "Indentation unit (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "jsonmend - JSON reconciliation and repair tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage: jsonmend [options] file.json\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jsonmend -validate broken.json      Report diagnostics\n")
		fmt.Fprintf(os.Stderr, "  jsonmend -repair -w broken.json     Fix the file in place\n")
		fmt.Fprintf(os.Stderr, "  jsonmend -format data.json          Print formatted document\n")
		fmt.Fprintf(os.Stderr, "  jsonmend -transform fix.lua in.json Apply a Lua transform\n")
		fmt.Fprintf(os.Stderr, "  jsonmend -watch data.json           Live diagnostics\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("jsonmend %s (%s)\n", version, commit)
		os.Exit(0)
	}

	return opts, flag.Args()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "jsonmend.toml"
	}
	return home + "/.config/jsonmend/jsonmend.toml"
}
