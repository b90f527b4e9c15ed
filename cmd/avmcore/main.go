// avmcore CLI - loads class declarations from a project and inspects,
// constructs and persists objects of those classes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/avmcore/manifest"
)

// errDrift is returned by check when the layout lock is out of date.
var errDrift = errors.New("layout drift")

func main() {
	dir := flag.String("C", ".", "Project directory (searched upward for avmcore.toml)")
	verbose := flag.Bool("v", false, "Verbose output (debug logging)")
	strict := flag.Bool("strict", false, "Reject new properties on instances of sealed classes")
	logFile := flag.String("log", "", "Write logs to this file instead of stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: avmcore [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Loads the class declarations of the project and runs a command.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "  %-28s %s\n", name+" "+commands[name].usage, commands[name].help)
		}
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  avmcore describe geom::Point     # Show the trait layout of a class\n")
		fmt.Fprintf(os.Stderr, "  avmcore new geom::Point 3 4     # Construct and print an instance\n")
		fmt.Fprintf(os.Stderr, "  avmcore save geom::Point 3 4    # Construct and store, print the id\n")
		fmt.Fprintf(os.Stderr, "  avmcore -C ./demo check         # Compare layouts against the lock file\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	m, err := loadManifest(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	configureLogging(m, *verbose, *logFile)

	p, err := openProject(m, *strict)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	if *verbose {
		fmt.Fprintf(os.Stderr, "Project %s: %d classes\n", m.Dir, len(p.classes))
	}

	if err := cmd.run(p, os.Stdout, args[1:]); err != nil {
		if !errors.Is(err, errDrift) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		p.Close()
		os.Exit(1)
	}
}

// loadManifest finds the project manifest starting at dir. Without one,
// defaults apply with dir as the project root.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	m, err = manifest.Parse(nil)
	if err != nil {
		return nil, err
	}
	if m.Dir, err = filepath.Abs(dir); err != nil {
		return nil, err
	}
	return m, nil
}

// configureLogging applies the manifest's [log] section; flags override it.
func configureLogging(m *manifest.Manifest, verbose bool, logFile string) {
	verbosity := m.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	path := m.Log.File
	if logFile != "" {
		path = logFile
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	if !filepath.IsAbs(path) && logFile == "" {
		path = filepath.Join(m.Dir, path)
	}
	commonlog.Configure(verbosity, &path)
}
