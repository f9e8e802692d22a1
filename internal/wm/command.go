package wm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geket/lamella/internal/layout"
)

// Op identifies one parsed command.
type Op int

const (
	OpNop Op = iota
	OpExec
	OpKill
	OpReload
	OpExit
	OpFocusDir
	OpFocusParent
	OpFocusChild
	OpFocusMark
	OpFocusBack
	OpMoveDir
	OpMoveToWorkspace
	OpMoveToScratchpad
	OpSplit
	OpLayout
	OpFloating
	OpFullscreen
	OpSticky
	OpWorkspace
	OpScratchpadShow
	OpMark
	OpUnmark
	OpResize
)

// Toggle is a three-way switch argument.
type Toggle int

const (
	ToggleFlip Toggle = iota
	ToggleOn
	ToggleOff
)

// Apply resolves the toggle against the current value.
func (t Toggle) Apply(current bool) bool {
	switch t {
	case ToggleOn:
		return true
	case ToggleOff:
		return false
	default:
		return !current
	}
}

// Command is one parsed command. Fields beyond Op are meaningful per
// operation: Dir for focus/move, Arg for workspace targets, mark names,
// split/layout arguments and exec lines, Toggle for the flag commands,
// and Grow/Horizontal/Px for resize.
type Command struct {
	Op         Op
	Dir        layout.Direction
	Arg        string
	Toggle     Toggle
	Grow       bool
	Horizontal bool
	Px         int
}

// SplitCommands breaks a command line into ';'-separated commands,
// trimming whitespace and dropping empties.
func SplitCommands(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseCommand parses a single command. Unknown or malformed command
// text is a parse error; it never affects state.
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "nop":
		return Command{Op: OpNop}, nil

	case "exec":
		rest := strings.TrimSpace(strings.TrimPrefix(text, "exec"))
		if rest == "" {
			return Command{}, fmt.Errorf("exec: missing command line")
		}
		return Command{Op: OpExec, Arg: rest}, nil

	case "kill":
		return Command{Op: OpKill}, nil

	case "reload":
		return Command{Op: OpReload}, nil

	case "exit":
		return Command{Op: OpExit}, nil

	case "focus":
		return parseFocus(fields[1:])

	case "move":
		return parseMove(fields[1:])

	case "split":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("split: expected h, v or toggle")
		}
		switch fields[1] {
		case "h", "horizontal":
			return Command{Op: OpSplit, Arg: "h"}, nil
		case "v", "vertical":
			return Command{Op: OpSplit, Arg: "v"}, nil
		case "toggle":
			return Command{Op: OpSplit, Arg: "toggle"}, nil
		}
		return Command{}, fmt.Errorf("split: unknown argument %q", fields[1])

	case "layout":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("layout: expected an argument")
		}
		switch fields[1] {
		case "default", "splith", "splitv", "tabbed", "toggle":
			return Command{Op: OpLayout, Arg: fields[1]}, nil
		case "stacked", "stacking":
			return Command{Op: OpLayout, Arg: "stacked"}, nil
		}
		return Command{}, fmt.Errorf("layout: unknown argument %q", fields[1])

	case "floating":
		t, err := parseToggle(fields[1:])
		if err != nil {
			return Command{}, fmt.Errorf("floating: %w", err)
		}
		return Command{Op: OpFloating, Toggle: t}, nil

	case "fullscreen":
		if len(fields) == 1 {
			return Command{Op: OpFullscreen, Toggle: ToggleFlip}, nil
		}
		t, err := parseToggle(fields[1:])
		if err != nil {
			return Command{}, fmt.Errorf("fullscreen: %w", err)
		}
		return Command{Op: OpFullscreen, Toggle: t}, nil

	case "sticky":
		t, err := parseToggle(fields[1:])
		if err != nil {
			return Command{}, fmt.Errorf("sticky: %w", err)
		}
		return Command{Op: OpSticky, Toggle: t}, nil

	case "workspace":
		args := fields[1:]
		if len(args) > 0 && args[0] == "number" {
			args = args[1:]
		}
		if len(args) == 0 {
			return Command{}, fmt.Errorf("workspace: missing target")
		}
		return Command{Op: OpWorkspace, Arg: strings.Join(args, " ")}, nil

	case "scratchpad":
		if len(fields) == 2 && fields[1] == "show" {
			return Command{Op: OpScratchpadShow}, nil
		}
		return Command{}, fmt.Errorf("scratchpad: expected show")

	case "mark":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("mark: expected a name")
		}
		return Command{Op: OpMark, Arg: fields[1]}, nil

	case "unmark":
		if len(fields) > 2 {
			return Command{}, fmt.Errorf("unmark: expected at most one name")
		}
		cmd := Command{Op: OpUnmark}
		if len(fields) == 2 {
			cmd.Arg = fields[1]
		}
		return cmd, nil

	case "resize":
		return parseResize(fields[1:])
	}

	return Command{}, fmt.Errorf("unknown command %q", fields[0])
}

func parseFocus(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("focus: missing target")
	}
	switch args[0] {
	case "left", "right", "up", "down":
		d, _ := parseDirection(args[0])
		return Command{Op: OpFocusDir, Dir: d}, nil
	case "parent":
		return Command{Op: OpFocusParent}, nil
	case "child":
		return Command{Op: OpFocusChild}, nil
	case "back":
		return Command{Op: OpFocusBack}, nil
	case "mark":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("focus mark: expected a name")
		}
		return Command{Op: OpFocusMark, Arg: args[1]}, nil
	}
	return Command{}, fmt.Errorf("focus: unknown target %q", args[0])
}

func parseMove(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("move: missing target")
	}
	if d, ok := parseDirection(args[0]); ok {
		return Command{Op: OpMoveDir, Dir: d}, nil
	}
	// "move container to workspace X" and the short "move to workspace X".
	if args[0] == "container" {
		args = args[1:]
	}
	if len(args) > 0 && args[0] == "to" {
		args = args[1:]
	}
	if len(args) == 0 {
		return Command{}, fmt.Errorf("move: missing target")
	}
	switch args[0] {
	case "scratchpad":
		return Command{Op: OpMoveToScratchpad}, nil
	case "workspace":
		rest := args[1:]
		if len(rest) > 0 && rest[0] == "number" {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("move: missing workspace target")
		}
		return Command{Op: OpMoveToWorkspace, Arg: strings.Join(rest, " ")}, nil
	}
	return Command{}, fmt.Errorf("move: unknown target %q", args[0])
}

func parseDirection(s string) (layout.Direction, bool) {
	switch s {
	case "left":
		return layout.DirLeft, true
	case "right":
		return layout.DirRight, true
	case "up":
		return layout.DirUp, true
	case "down":
		return layout.DirDown, true
	}
	return 0, false
}

func parseToggle(args []string) (Toggle, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected enable, disable or toggle")
	}
	switch args[0] {
	case "enable":
		return ToggleOn, nil
	case "disable":
		return ToggleOff, nil
	case "toggle":
		return ToggleFlip, nil
	}
	return 0, fmt.Errorf("expected enable, disable or toggle, got %q", args[0])
}

// parseResize handles "resize grow|shrink width|height [<n> [px]]".
// The pixel amount defaults to 10.
func parseResize(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, fmt.Errorf("resize: expected grow|shrink width|height")
	}
	cmd := Command{Op: OpResize, Px: 10}
	switch args[0] {
	case "grow":
		cmd.Grow = true
	case "shrink":
		cmd.Grow = false
	default:
		return Command{}, fmt.Errorf("resize: expected grow or shrink, got %q", args[0])
	}
	switch args[1] {
	case "width":
		cmd.Horizontal = true
	case "height":
		cmd.Horizontal = false
	default:
		return Command{}, fmt.Errorf("resize: expected width or height, got %q", args[1])
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(strings.TrimSuffix(args[2], "px"))
		if err != nil || n <= 0 {
			return Command{}, fmt.Errorf("resize: invalid amount %q", args[2])
		}
		cmd.Px = n
	}
	if len(args) > 4 || (len(args) == 4 && args[3] != "px") {
		return Command{}, fmt.Errorf("resize: trailing arguments")
	}
	return cmd, nil
}
