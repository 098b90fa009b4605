package main

import (
	"io"

	"github.com/alecthomas/kingpin/v2"

	"inspectview/internal/domain/condition"
)

// describeCommand renders a wire document in every supported form.
type describeCommand struct {
	out  io.Writer
	file *string
}

func (cmd *describeCommand) run(*kingpin.ParseContext) error {
	data, err := readInput(*cmd.file)
	if err != nil {
		return err
	}
	c, err := condition.Parse(data)
	if err != nil {
		return err
	}
	if c == nil {
		heading(cmd.out, "No condition.")
		return nil
	}
	return printRenderings(cmd.out, c)
}

func addDescribeCommand(app *kingpin.Application, out io.Writer) {
	cmd := &describeCommand{out: out}
	c := app.Command("describe", "Render a condition document as text, SQL and CEL.").Action(cmd.run)
	cmd.file = c.Arg("file", "Condition document, '-' for stdin.").Default("-").String()
}
