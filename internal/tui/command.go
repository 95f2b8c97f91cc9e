package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// parseNear splits ":near <range> <query>" arguments.
func parseNear(args string) (int, string, error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		return 0, "", fmt.Errorf("usage: near <range> <query>")
	}
	rng, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("range %q is not a number", fields[0])
	}
	return rng, strings.TrimSpace(fields[1]), nil
}
