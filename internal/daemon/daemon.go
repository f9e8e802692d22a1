package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/geket/lamella/internal/config"
	"github.com/geket/lamella/internal/ipc"
	"github.com/geket/lamella/internal/layout"
	"github.com/geket/lamella/internal/runtimepath"
	"github.com/geket/lamella/internal/wm"
	"github.com/geket/lamella/internal/x11"
)

// Daemon assembles the manager, the IPC server and the display backend
// into the long-running process behind `lamella daemon`.
type Daemon struct {
	log        *slog.Logger
	configPath string

	manager *wm.Manager
	server  *ipc.Server

	// nil when running headless
	conn    *x11.Connection
	tracker *x11.Tracker

	done chan struct{}
}

// Run starts the daemon and blocks until it exits. It is the entire
// lifetime of the process: config, state, socket, display, signals.
func Run(log *slog.Logger) error {
	cfg, configPath, err := config.Load()
	if err != nil {
		log.Warn("config load failed, using defaults", "path", configPath, "error", err)
		cfg = config.DefaultConfig()
	}

	d := &Daemon{
		log:        log,
		configPath: configPath,
		done:       make(chan struct{}),
	}

	d.manager = wm.New(cfg, log, wm.Hooks{
		Exec:     d.execCommand,
		Close:    d.closeWindow,
		Reload:   d.reload,
		Exit:     d.exit,
		Geometry: d.applyGeometry,
		Event:    d.publish,
	})
	d.manager.SetConfigPath(configPath)

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return fmt.Errorf("failed to resolve runtime directory: %w", err)
	}
	d.server = ipc.NewServer(socketPath, d.manager, log)
	if err := d.server.Start(); err != nil {
		return err
	}
	defer d.server.Stop()

	if err := d.connectDisplay(cfg); err != nil {
		return err
	}

	for _, line := range cfg.Startup {
		d.execCommand(line)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	log.Info("daemon running", "socket", d.server.SocketPath(), "headless", d.conn == nil)

	select {
	case sig := <-signals:
		log.Info("signal received, shutting down", "signal", sig)
		d.publish(wm.Event{Kind: wm.EventShutdown, Change: "exit"})
	case <-d.done:
	}

	if d.conn != nil {
		d.conn.Quit()
		d.conn.Close()
	}
	return nil
}

// connectDisplay registers outputs from the X server, or the synthetic
// headless output when no display is reachable. IPC and the state
// model work the same either way.
func (d *Daemon) connectDisplay(cfg *config.Config) error {
	if os.Getenv("DISPLAY") == "" {
		d.registerHeadless(cfg)
		return nil
	}

	conn, err := x11.Connect()
	if err != nil {
		d.log.Warn("display connection failed, running headless", "error", err)
		d.registerHeadless(cfg)
		return nil
	}
	d.conn = conn

	outputs, err := conn.Outputs()
	if err != nil {
		conn.Close()
		d.conn = nil
		return fmt.Errorf("output discovery failed: %w", err)
	}
	for _, out := range outputs {
		d.manager.AddOutput(out.Name, out.Geometry, out.Primary)
	}

	d.tracker = x11.NewTracker(conn, d.manager, d.log)
	if err := d.tracker.Start(); err != nil {
		return fmt.Errorf("failed to track clients: %w", err)
	}

	conn.GrabBindings(cfg.Bindings, d.log, func(command string) {
		d.manager.RunCommand(command)
	})

	go conn.EventLoop()
	return nil
}

func (d *Daemon) registerHeadless(cfg *config.Config) {
	d.manager.AddOutput(cfg.Headless.Name, layout.Rect{
		Width:  cfg.Headless.Width,
		Height: cfg.Headless.Height,
	}, true)
}

// execCommand spawns a command line through the shell, detached from
// the daemon's lifetime.
func (d *Daemon) execCommand(line string) {
	cmd := exec.Command("/bin/sh", "-c", line)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		d.log.Warn("exec failed", "command", line, "error", err)
		return
	}
	go func() {
		_ = cmd.Wait()
	}()
}

// closeWindow asks the client to close itself; removal follows on the
// client-list change.
func (d *Daemon) closeWindow(win wm.WindowID) {
	if d.tracker == nil {
		d.manager.DestroyWindow(win)
		return
	}
	xwin, ok := d.tracker.XWindow(win)
	if !ok {
		d.manager.DestroyWindow(win)
		return
	}
	if err := d.conn.CloseWindow(xwin); err != nil {
		d.log.Warn("close request failed", "id", win, "error", err)
	}
}

// reload produces a fresh config snapshot and re-grabs key bindings.
// An error keeps the previous snapshot and grabs in place.
func (d *Daemon) reload() (*config.Config, error) {
	cfg, err := config.LoadFromPath(d.configPath)
	if err != nil {
		return nil, err
	}
	if d.conn != nil {
		d.conn.UngrabAll()
		d.conn.GrabBindings(cfg.Bindings, d.log, func(command string) {
			d.manager.RunCommand(command)
		})
	}
	d.log.Info("config reloaded", "path", d.configPath)
	return cfg, nil
}

func (d *Daemon) exit() {
	close(d.done)
}

// applyGeometry pushes the computed placements to the display after
// every mutation. Headless operation records state only.
func (d *Daemon) applyGeometry(assigns []wm.Assignment) {
	if d.tracker == nil {
		return
	}
	var focused xproto.Window
	for _, a := range assigns {
		xwin, ok := d.tracker.XWindow(a.Window)
		if !ok {
			continue
		}
		if err := d.conn.ApplyPlacement(xwin, a.Rect, a.Visible); err != nil {
			d.log.Debug("placement failed", "id", a.Window, "error", err)
		}
		if a.Focused && a.Visible {
			focused = xwin
		}
	}
	if focused != 0 {
		if err := d.conn.FocusWindow(focused); err != nil {
			d.log.Debug("focus request failed", "xwindow", focused, "error", err)
		}
	}
}

func (d *Daemon) publish(ev wm.Event) {
	if d.server != nil {
		d.server.Publish(ev)
	}
}
