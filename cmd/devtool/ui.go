package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

const (
	colorGreen  = "\033[0;32m"
	colorRed    = "\033[0;31m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorReset  = "\033[0m"
)

// colors are dropped when output is piped (entrypoint logs) or NO_COLOR is set
var useColor = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

func printLine(w io.Writer, color, symbol, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	if !useColor {
		fmt.Fprintf(w, "%s %s\n", symbol, msg)
		return
	}
	fmt.Fprintf(w, "%s%s %s%s\n", color, symbol, msg, colorReset)
}

func PrintInfo(format string, a ...interface{}) {
	printLine(os.Stdout, colorBlue, "ℹ", format, a...)
}

func PrintSuccess(format string, a ...interface{}) {
	printLine(os.Stdout, colorGreen, "✓", format, a...)
}

func PrintWarning(format string, a ...interface{}) {
	printLine(os.Stderr, colorYellow, "⚠", format, a...)
}

func PrintError(format string, a ...interface{}) {
	printLine(os.Stderr, colorRed, "✗", format, a...)
}

func PrintHeader(title string) {
	fmt.Fprintln(os.Stdout)
	printLine(os.Stdout, colorYellow, "===", "%s ===", title)
}

// checkHostile rejects arguments carrying shell metacharacters. '&' and ';'
// alone are allowed since database URLs and SQL contain them.
func checkHostile(inputs ...string) error {
	for _, s := range inputs {
		if strings.ContainsAny(s, "\n\r") {
			return fmt.Errorf("hostile input detected: newlines or carriage returns")
		}
		if strings.Contains(s, "\x00") {
			return fmt.Errorf("hostile input detected: null byte")
		}
		for _, p := range []string{"|", "`", "$(", "&&", "||", ">", "<"} {
			if strings.Contains(s, p) {
				return fmt.Errorf("hostile input detected: pattern %q in %q", p, s)
			}
		}
	}
	return nil
}

func command(name string, args ...string) (*exec.Cmd, error) {
	if err := checkHostile(append([]string{name}, args...)...); err != nil {
		return nil, err
	}
	// #nosec G204 - arguments are screened by checkHostile
	return exec.Command(name, args...), nil
}

func getCommandOutput(name string, args ...string) (string, error) {
	cmd, err := command(name, args...)
	if err != nil {
		return "", err
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runCommand runs a command silently
func runCommand(name string, args ...string) error {
	cmd, err := command(name, args...)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// runCommandVerbose streams the command's output
func runCommandVerbose(name string, args ...string) error {
	cmd, err := command(name, args...)
	if err != nil {
		return err
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
