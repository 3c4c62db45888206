package main

import (
	"context"
	"fmt"
	"strings"
)

// tool is one external program the dev workflow relies on
type tool struct {
	name     string
	args     []string
	field    int
	required bool
	hint     string
}

var devTools = []tool{
	{name: "go", args: []string{"version"}, field: 2, required: true, hint: "https://go.dev/dl/"},
	{name: "docker", args: []string{"--version"}, field: 2, required: true, hint: "https://docs.docker.com/get-docker/"},
	{name: "docker", args: []string{"compose", "version"}, field: 3, hint: "ships with Docker Desktop"},
	{name: "make", args: []string{"--version"}, field: 2, hint: "install via your package manager"},
}

type CheckDepsCommand struct{}

func (c *CheckDepsCommand) Name() string {
	return "check-deps"
}

func (c *CheckDepsCommand) Description() string {
	return "Check for required dependencies"
}

func (c *CheckDepsCommand) Run(ctx context.Context, args []string) error {
	PrintHeader("Checking dependencies...")

	missing := 0
	for _, t := range devTools {
		label := strings.Join(append([]string{t.name}, t.args[:len(t.args)-1]...), " ")
		out, err := getCommandOutput(t.name, t.args...)
		if err != nil {
			if t.required {
				PrintError("%s not found (%s)", label, t.hint)
				missing++
			} else {
				PrintWarning("%s not found (%s)", label, t.hint)
			}
			continue
		}
		PrintSuccess("%s installed: %s", label, versionField(out, t.field))
	}

	if missing > 0 {
		return fmt.Errorf("%d required dependencies missing", missing)
	}
	return nil
}

// versionField picks the version word from the first line of a --version output
func versionField(out string, field int) string {
	line, _, _ := strings.Cut(out, "\n")
	parts := strings.Fields(line)
	if field < len(parts) {
		return strings.TrimRight(parts[field], ",")
	}
	return line
}
