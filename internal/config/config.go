package config

import (
	"fmt"
	"strings"
)

// Gaps configures spacing around and between tiled windows.
type Gaps struct {
	Inner int  `yaml:"inner"` // pixels between adjacent windows
	Outer int  `yaml:"outer"` // pixels at the workspace edge
	Smart bool `yaml:"smart"` // suppress both when a workspace holds one window
}

// ColorSet holds one color per window focus state, as #rrggbb hex.
type ColorSet struct {
	Focused   string `yaml:"focused"`
	Unfocused string `yaml:"unfocused"`
	Urgent    string `yaml:"urgent"`
}

// Border configures window border rendering.
type Border struct {
	Width  int      `yaml:"width"` // pixels
	Smart  bool     `yaml:"smart"` // drop the border when a workspace holds one window
	Colors ColorSet `yaml:"colors"`
}

// Binding maps a key chord to a command line.
//
// Keys uses xgbutil key-sequence syntax, e.g. "Mod4-Return" or
// "Mod4-Shift-q".
type Binding struct {
	Keys    string `yaml:"keys"`
	Command string `yaml:"command"`
}

// Criteria matches windows by attribute. Non-empty fields are matched
// by case-insensitive substring against the window's class/app-id and
// title; Type matches the window type name exactly.
type Criteria struct {
	Class string `yaml:"class,omitempty"`
	AppID string `yaml:"app_id,omitempty"`
	Title string `yaml:"title,omitempty"`
	Type  string `yaml:"type,omitempty"`
}

// Empty reports whether the criteria match nothing in particular.
func (c Criteria) Empty() bool {
	return c.Class == "" && c.AppID == "" && c.Title == "" && c.Type == ""
}

// Rule runs its command list against every newly created window whose
// attributes match. All matching rules apply, in declaration order.
type Rule struct {
	Match    Criteria `yaml:"match"`
	Commands []string `yaml:"commands"`
}

// Headless describes the synthetic output used when no display server
// is reachable, so the daemon can still manage state and answer IPC.
type Headless struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Config is the immutable configuration snapshot consumed by the
// manager and daemon. A reload swaps the whole snapshot atomically.
type Config struct {
	Gaps              Gaps      `yaml:"gaps"`
	Border            Border    `yaml:"border"`
	FocusHistoryDepth int       `yaml:"focus_history_depth"`
	Bindings          []Binding `yaml:"bindings"`
	Rules             []Rule    `yaml:"rules"`
	Startup           []string  `yaml:"startup"` // command lines run once at daemon start
	Headless          Headless  `yaml:"headless"`
}

// DefaultConfig returns the compiled-in defaults used when no config
// file exists or the file fails to load.
func DefaultConfig() *Config {
	return &Config{
		Gaps: Gaps{
			Inner: 10,
			Outer: 10,
			Smart: true,
		},
		Border: Border{
			Width: 2,
			Smart: true,
			Colors: ColorSet{
				Focused:   "#4c7899",
				Unfocused: "#333333",
				Urgent:    "#900000",
			},
		},
		FocusHistoryDepth: 32,
		Bindings: []Binding{
			{Keys: "Mod4-Return", Command: "exec x-terminal-emulator"},
			{Keys: "Mod4-Shift-q", Command: "kill"},
			{Keys: "Mod4-h", Command: "focus left"},
			{Keys: "Mod4-j", Command: "focus down"},
			{Keys: "Mod4-k", Command: "focus up"},
			{Keys: "Mod4-l", Command: "focus right"},
			{Keys: "Mod4-Shift-h", Command: "move left"},
			{Keys: "Mod4-Shift-j", Command: "move down"},
			{Keys: "Mod4-Shift-k", Command: "move up"},
			{Keys: "Mod4-Shift-l", Command: "move right"},
			{Keys: "Mod4-b", Command: "split h"},
			{Keys: "Mod4-v", Command: "split v"},
			{Keys: "Mod4-w", Command: "layout tabbed"},
			{Keys: "Mod4-s", Command: "layout stacked"},
			{Keys: "Mod4-e", Command: "layout toggle"},
			{Keys: "Mod4-f", Command: "fullscreen toggle"},
			{Keys: "Mod4-Shift-space", Command: "floating toggle"},
			{Keys: "Mod4-minus", Command: "scratchpad show"},
			{Keys: "Mod4-Shift-minus", Command: "move scratchpad"},
			{Keys: "Mod4-1", Command: "workspace 1"},
			{Keys: "Mod4-2", Command: "workspace 2"},
			{Keys: "Mod4-3", Command: "workspace 3"},
			{Keys: "Mod4-4", Command: "workspace 4"},
			{Keys: "Mod4-Shift-1", Command: "move container to workspace 1"},
			{Keys: "Mod4-Shift-2", Command: "move container to workspace 2"},
			{Keys: "Mod4-Shift-3", Command: "move container to workspace 3"},
			{Keys: "Mod4-Shift-4", Command: "move container to workspace 4"},
			{Keys: "Mod4-Shift-c", Command: "reload"},
			{Keys: "Mod4-Shift-e", Command: "exit"},
		},
		Headless: Headless{
			Name:   "HEADLESS-1",
			Width:  1920,
			Height: 1080,
		},
	}
}

// Validate checks the snapshot for values the manager cannot work with.
func (c *Config) Validate() error {
	if c.Gaps.Inner < 0 || c.Gaps.Outer < 0 {
		return fmt.Errorf("gaps must be non-negative: inner=%d outer=%d", c.Gaps.Inner, c.Gaps.Outer)
	}
	if c.Border.Width < 0 || c.Border.Width > 100 {
		return fmt.Errorf("border width out of range: %d", c.Border.Width)
	}
	for _, col := range []string{c.Border.Colors.Focused, c.Border.Colors.Unfocused, c.Border.Colors.Urgent} {
		if err := validateColor(col); err != nil {
			return err
		}
	}
	if c.FocusHistoryDepth < 1 {
		return fmt.Errorf("focus_history_depth must be at least 1: %d", c.FocusHistoryDepth)
	}
	for i, b := range c.Bindings {
		if strings.TrimSpace(b.Keys) == "" {
			return fmt.Errorf("binding %d: empty key sequence", i)
		}
		if strings.TrimSpace(b.Command) == "" {
			return fmt.Errorf("binding %q: empty command", b.Keys)
		}
	}
	for i, r := range c.Rules {
		if r.Match.Empty() {
			return fmt.Errorf("rule %d: empty match criteria", i)
		}
		if len(r.Commands) == 0 {
			return fmt.Errorf("rule %d: no commands", i)
		}
	}
	if c.Headless.Width < 1 || c.Headless.Height < 1 {
		return fmt.Errorf("headless output size invalid: %dx%d", c.Headless.Width, c.Headless.Height)
	}
	return nil
}

func validateColor(s string) error {
	if len(s) != 7 || s[0] != '#' {
		return fmt.Errorf("invalid color %q: expected #rrggbb", s)
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("invalid color %q: expected #rrggbb", s)
		}
	}
	return nil
}
