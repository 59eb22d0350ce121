package main

import (
	"os"
	"strconv"
	"strings"

	"dshbd-cli/internal/cli"
)

func isTaskID(s string) bool {
	n, ok := strings.CutPrefix(strings.TrimSpace(s), "task-")
	if !ok || n == "" {
		return false
	}
	id, err := strconv.ParseInt(n, 10, 64)
	return err == nil && id > 0
}

// persistent flags that take a separate value token
var valueFlags = map[string]bool{
	"--config-dir": true,
	"--backend":    true,
	"--api-url":    true,
	"--format":     true,
	"--debounce":   true,
}

// rewriteTaskShortcut turns `dshbd [flags] task-42` into `dshbd [flags] tasks show task-42`.
// Cobra would take the id for a subcommand, so argv is rewritten before parsing.
func rewriteTaskShortcut(argv []string) []string {
	at := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show")
		return append(out, argv[i:]...)
	}
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return at(i + 1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// --flag=value and bool flags stand alone; unknown flags are not
			// assumed to take a value.
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		case isTaskID(a):
			return at(i)
		default:
			return argv
		}
	}
	return argv
}

func main() {
	os.Args = rewriteTaskShortcut(os.Args)

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
