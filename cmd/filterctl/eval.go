package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
	"inspectview/internal/infrastructure/celeval"
)

// evalCommand applies a condition to rows read from a JSON array.
type evalCommand struct {
	out    io.Writer
	filter *string
	rows   *string
	count  *bool
}

func (cmd *evalCommand) run(*kingpin.ParseContext) error {
	filterDoc, err := readInput(*cmd.filter)
	if err != nil {
		return err
	}
	c, err := condition.Parse(filterDoc)
	if err != nil {
		return err
	}
	data, err := readInput(*cmd.rows)
	if err != nil {
		return err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}

	evaluator, err := celeval.NewEvaluator(1)
	if err != nil {
		return err
	}
	matched, err := evaluator.Filter(c, rows)
	if err != nil {
		return err
	}

	if !*cmd.count {
		if err := writeRows(cmd.out, matched); err != nil {
			return err
		}
	}
	heading(cmd.out, fmt.Sprintf("matched %d of %d rows", len(matched), len(rows)))
	return nil
}

func decodeRows(data []byte) ([]query.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []query.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("rows must be a JSON array of objects: %w", err)
	}
	return rows, nil
}

func writeRows(w io.Writer, rows []query.Row) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func addEvalCommand(app *kingpin.Application, out io.Writer) {
	cmd := &evalCommand{out: out}
	c := app.Command("eval", "Print the rows of a JSON array that match a condition.").Action(cmd.run)
	cmd.filter = c.Flag("filter", "Condition document file.").Short('f').Required().String()
	cmd.count = c.Flag("count", "Only print the number of matching rows.").Bool()
	cmd.rows = c.Arg("rows", "JSON array of row objects, '-' for stdin.").Default("-").String()
}
