package mcp

import "github.com/geket/lamella/internal/wm"

// RunCommandInput is the input for the run_command tool.
type RunCommandInput struct {
	Command string `json:"command" jsonschema:"required,Command line to execute, ';'-separated for multiple commands (e.g. 'workspace 2; split v')"`
}

// RunCommandOutput is the output for the run_command tool.
type RunCommandOutput struct {
	Results []wm.CommandResult `json:"results"`
}

// GetTreeInput is the input for the get_tree tool.
type GetTreeInput struct{}

// GetTreeOutput is the output for the get_tree tool.
type GetTreeOutput struct {
	Tree wm.TreeNode `json:"tree"`
}

// GetWorkspacesInput is the input for the get_workspaces tool.
type GetWorkspacesInput struct{}

// GetWorkspacesOutput is the output for the get_workspaces tool.
type GetWorkspacesOutput struct {
	Workspaces []wm.WorkspaceInfo `json:"workspaces"`
}

// GetOutputsInput is the input for the get_outputs tool.
type GetOutputsInput struct{}

// GetOutputsOutput is the output for the get_outputs tool.
type GetOutputsOutput struct {
	Outputs []wm.OutputInfo `json:"outputs"`
}

// GetMarksInput is the input for the get_marks tool.
type GetMarksInput struct{}

// GetMarksOutput is the output for the get_marks tool.
type GetMarksOutput struct {
	Marks []string `json:"marks"`
}
