package main

import (
	"fmt"
	"regexp"
	"strings"

	"inspectview/internal/domain/condition"
	"inspectview/internal/infrastructure/storage/postgres"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseTables reads QUERY_TABLES. Tables are separated by whitespace, each
// written as name:columns[:json_columns[:default_order]], for example
//
//	spans:id,model,score,created_at:metadata:-created_at
//
// A leading '-' in the order list sorts that column descending.
func parseTables(spec string) ([]postgres.TableConfig, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no tables configured")
	}

	tables := make([]postgres.TableConfig, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		parts := strings.Split(field, ":")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("table %q: expected name:columns[:json_columns[:order]]", field)
		}
		name := parts[0]
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("table %q: invalid name", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("table %q: declared twice", name)
		}
		seen[name] = true

		cols, err := identList(name, parts[1])
		if err != nil {
			return nil, err
		}
		cfg := postgres.TableConfig{Name: name, Columns: cols}
		if len(parts) > 2 {
			if cfg.JSONColumns, err = identList(name, parts[2]); err != nil {
				return nil, err
			}
		}
		if len(parts) > 3 {
			for _, item := range splitList(parts[3]) {
				key, err := condition.ParseSortKey(item)
				if err != nil || !identRe.MatchString(key.Column) {
					return nil, fmt.Errorf("table %q: invalid order column %q", name, item)
				}
				cfg.DefaultOrder = append(cfg.DefaultOrder, key)
			}
		}
		if len(cfg.Columns) == 0 && len(cfg.JSONColumns) == 0 {
			return nil, fmt.Errorf("table %q: no columns", name)
		}
		tables = append(tables, cfg)
	}
	return tables, nil
}

func identList(table, list string) ([]string, error) {
	items := splitList(list)
	for _, item := range items {
		if !identRe.MatchString(item) {
			return nil, fmt.Errorf("table %q: invalid column %q", table, item)
		}
	}
	return items, nil
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
