package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/infrastructure/celeval"
	"inspectview/internal/infrastructure/sqlplan"
)

// commitCommand parses editor text into a leaf condition.
type commitCommand struct {
	out        io.Writer
	column     *string
	filterType *string
	operator   *string
	primary    *string
	secondary  *string
}

func (cmd *commitCommand) run(*kingpin.ParseContext) error {
	ft := condition.ParseFilterType(*cmd.filterType)
	op, ok := condition.ParseOperator(*cmd.operator)
	if !ok || !condition.Supports(ft, op) {
		return fmt.Errorf("operator %q is not available for %s filters", *cmd.operator, ft)
	}

	r := filteredit.DefaultCodec.Commit(*cmd.column, filteredit.EditState{
		FilterType: ft,
		Operator:   op,
		Primary:    *cmd.primary,
		Secondary:  *cmd.secondary,
	})
	switch r.Status {
	case filteredit.StatusInvalid:
		return r.Err
	case filteredit.StatusEmpty, filteredit.StatusIncomplete:
		heading(cmd.out, "No condition:")
		field(cmd.out, "status", r.Status)
		return nil
	}

	doc, err := json.Marshal(r.Condition)
	if err != nil {
		return err
	}
	heading(cmd.out, "Condition:")
	fmt.Fprintln(cmd.out, string(doc))
	return printRenderings(cmd.out, r.Condition)
}

// printRenderings prints the chip, readable text, SQL and CEL forms of c.
func printRenderings(w io.Writer, c *condition.Condition) error {
	sql, args, err := sqlplan.Quoted(condition.Columns(c)...).Preview(c)
	if err != nil {
		return err
	}
	expr, err := celeval.Expression(c)
	if err != nil {
		return err
	}
	heading(w, "Renderings:")
	field(w, "chip", condition.ChipText(c))
	field(w, "text", condition.Describe(c))
	field(w, "columns", condition.Columns(c))
	field(w, "sql", sql)
	field(w, "args", args)
	field(w, "cel", expr)
	return nil
}

func addCommitCommand(app *kingpin.Application, out io.Writer) {
	cmd := &commitCommand{out: out}
	c := app.Command("commit", "Build a condition from filter input text.").Action(cmd.run)
	cmd.filterType = c.Flag("type", "Filter type of the column.").Short('t').Default(string(condition.TypeString)).String()
	cmd.operator = c.Flag("op", "Operator, e.g. '=', 'IN', 'BETWEEN'.").Short('o').Default(string(condition.OpEq)).String()
	cmd.column = c.Arg("column", "Column name.").Required().String()
	cmd.primary = c.Arg("primary", "Primary input text.").String()
	cmd.secondary = c.Arg("secondary", "Upper bound for range operators.").String()
}
