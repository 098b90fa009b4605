// Command filterctl builds, inspects and evaluates filter conditions from the
// command line, and can run them against a remote query engine.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
)

var version = "dev"

func main() {
	app := kingpin.New("filterctl", "Build, inspect and evaluate filter conditions.")
	app.Version(version)
	app.HelpFlag.Short('h')

	addOperatorsCommand(app, os.Stdout)
	addCommitCommand(app, os.Stdout)
	addDescribeCommand(app, os.Stdout)
	addEvalCommand(app, os.Stdout)
	addQueryCommand(app, os.Stdout)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func exitWithErr(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// readInput reads a named file, or stdin when name is empty or "-".
func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func heading(w io.Writer, text string) {
	color.New(color.Bold).Fprintln(w, text)
}

func field(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "\t%s: %v\n", color.CyanString(name), value)
}
