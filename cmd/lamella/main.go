package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/geket/lamella/internal/daemon"
	"github.com/geket/lamella/internal/ipc"
	"github.com/geket/lamella/internal/mcp"
	"github.com/geket/lamella/internal/runtimepath"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: lamella daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: lamella daemon")
			os.Exit(2)
		}
		os.Exit(runDaemon())
	case "msg":
		os.Exit(runMsg(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lamella <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the lamella daemon (foreground)")
	fmt.Fprintln(w, "  msg                 Send a command or query to the running daemon")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'lamella <command> -h' for command options.")
}

func runDaemon() int {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)
	if err := daemon.Run(log); err != nil {
		fmt.Fprintf(os.Stderr, "daemon failed: %v\n", err)
		return 1
	}
	return 0
}

func runMsg(args []string) int {
	fs := flag.NewFlagSet("msg", flag.ExitOnError)
	msgType := fs.String("t", "command", "message type: command, get_workspaces, get_outputs, get_tree, get_marks, get_version")
	socket := fs.String("s", "", "socket path (default: runtime directory)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lamella msg [-t type] [-s socket] [command...]")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	socketPath := *socket
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "msg: %v\n", err)
			return 1
		}
	}
	client := ipc.NewClient(socketPath)

	var reply any
	var err error
	switch *msgType {
	case "command":
		command := ""
		for i, arg := range fs.Args() {
			if i > 0 {
				command += " "
			}
			command += arg
		}
		if command == "" {
			fmt.Fprintln(os.Stderr, "msg: no command given")
			return 2
		}
		reply, err = client.RunCommand(command)
	case "get_workspaces":
		reply, err = client.Workspaces()
	case "get_outputs":
		reply, err = client.Outputs()
	case "get_tree":
		reply, err = client.Tree()
	case "get_marks":
		reply, err = client.Marks()
	case "get_version":
		reply, err = client.Version()
	default:
		fmt.Fprintf(os.Stderr, "msg: unknown message type %q\n", *msgType)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "msg: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "msg: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func runMCP(args []string) int {
	if len(args) < 1 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: lamella mcp serve [-s socket]")
		return 2
	}
	fs := flag.NewFlagSet("mcp serve", flag.ExitOnError)
	socket := fs.String("s", "", "socket path (default: runtime directory)")
	fs.Parse(args[1:])

	socketPath := *socket
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
			return 1
		}
	}

	server := mcp.NewServer(socketPath)
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		return 1
	}
	return 0
}
