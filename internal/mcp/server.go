package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/geket/lamella/internal/ipc"
)

const (
	ServerName    = "lamella"
	ServerVersion = "0.1.0"
)

// Server exposes window manager commands and queries as MCP tools,
// proxying each call to the daemon over the IPC socket.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates the MCP server for the daemon at socketPath.
func NewServer(socketPath string) *Server {
	s := &Server{
		client: ipc.NewClient(socketPath),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_command",
		Description: "Execute one or more window manager commands (i3 syntax, ';'-separated). Examples: 'workspace 2', 'split v', 'move container to workspace mail', 'focus mark editor'. Returns one result per command.",
	}, s.handleRunCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_tree",
		Description: "Fetch the full container tree: outputs, workspaces, split/tabbed/stacked containers and windows, with geometry and focus state.",
	}, s.handleGetTree)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_workspaces",
		Description: "List all workspaces with their output, visibility, focus and urgency state.",
	}, s.handleGetWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_outputs",
		Description: "List all outputs (displays) with geometry and the workspace currently visible on each.",
	}, s.handleGetOutputs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_marks",
		Description: "List all window marks currently set.",
	}, s.handleGetMarks)
}
