package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleRunCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunCommandInput) (*mcpsdk.CallToolResult, RunCommandOutput, error) {
	results, err := s.client.RunCommand(args.Command)
	if err != nil {
		return nil, RunCommandOutput{}, err
	}
	return nil, RunCommandOutput{Results: results}, nil
}

func (s *Server) handleGetTree(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetTreeInput) (*mcpsdk.CallToolResult, GetTreeOutput, error) {
	tree, err := s.client.Tree()
	if err != nil {
		return nil, GetTreeOutput{}, err
	}
	return nil, GetTreeOutput{Tree: tree}, nil
}

func (s *Server) handleGetWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetWorkspacesInput) (*mcpsdk.CallToolResult, GetWorkspacesOutput, error) {
	workspaces, err := s.client.Workspaces()
	if err != nil {
		return nil, GetWorkspacesOutput{}, err
	}
	return nil, GetWorkspacesOutput{Workspaces: workspaces}, nil
}

func (s *Server) handleGetOutputs(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetOutputsInput) (*mcpsdk.CallToolResult, GetOutputsOutput, error) {
	outputs, err := s.client.Outputs()
	if err != nil {
		return nil, GetOutputsOutput{}, err
	}
	return nil, GetOutputsOutput{Outputs: outputs}, nil
}

func (s *Server) handleGetMarks(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetMarksInput) (*mcpsdk.CallToolResult, GetMarksOutput, error) {
	marks, err := s.client.Marks()
	if err != nil {
		return nil, GetMarksOutput{}, err
	}
	return nil, GetMarksOutput{Marks: marks}, nil
}
