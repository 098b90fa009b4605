package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"inspectview/internal/domain/condition"
)

// operatorsCommand prints the operator catalog.
type operatorsCommand struct {
	out        io.Writer
	filterType *string
}

func (cmd *operatorsCommand) run(*kingpin.ParseContext) error {
	types := condition.FilterTypes()
	if *cmd.filterType != "" {
		types = []condition.FilterType{condition.ParseFilterType(*cmd.filterType)}
	}
	for _, ft := range types {
		heading(cmd.out, string(ft)+":")
		def := condition.DefaultOperator(ft)
		for _, op := range condition.Operators(ft) {
			marker := " "
			if op == def {
				marker = "*"
			}
			fmt.Fprintf(cmd.out, "\t%s %-12s %s\n", marker, op, op.Arity())
		}
	}
	return nil
}

func addOperatorsCommand(app *kingpin.Application, out io.Writer) {
	cmd := &operatorsCommand{out: out}
	c := app.Command("operators", "List the operators offered per filter type.").Action(cmd.run)
	cmd.filterType = c.Flag("type", "Only list this filter type.").Short('t').String()
}
