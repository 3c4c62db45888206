package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/osse101/FieldSync_Go/internal/reconciler"
)

// TablesCommand prints the tables the sync API accepts
type TablesCommand struct {
	out io.Writer
}

func (c *TablesCommand) Name() string {
	return "tables"
}

func (c *TablesCommand) Description() string {
	return "List the allow-listed sync tables and their conflict targets"
}

func (c *TablesCommand) Run(ctx context.Context, args []string) error {
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	for _, spec := range reconciler.Tables() {
		keys := make([]string, len(spec.UniqueKeys))
		for i, k := range spec.UniqueKeys {
			keys[i] = strings.Join(k, "+")
		}
		line := fmt.Sprintf("%-26s conflict: %s", spec.Name, strings.Join(keys, ", "))
		if spec.Restricted {
			line += " (team-leader only)"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
