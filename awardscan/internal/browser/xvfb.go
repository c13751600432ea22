package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// xvfbStartup bounds the wait for the display socket after launch.
var xvfbStartup = 2 * time.Second

type xvfbProc struct {
	cmd  *exec.Cmd
	done chan error // receives the Wait result once
}

// needsXvfb reports whether Open must provide its own display: a visible
// local Chrome on a configured virtual display.
func (s *Session) needsXvfb() bool {
	return !s.cfg.Headless && s.cfg.XvfbDisplay != "" && s.cfg.RemoteURL == ""
}

func xvfbSocket(display string) string {
	return filepath.Join("/tmp/.X11-unix", "X"+strings.TrimPrefix(display, ":"))
}

func exitErr(err error) error {
	if err == nil {
		return errors.New("exit status 0")
	}
	return err
}

// startXvfb runs a virtual display so a headful Chrome can start on a host
// without X. It returns once the display socket exists or the startup
// window passes; a server that exits first is an error.
func (s *Session) startXvfb(ctx context.Context) error {
	if s.xvfb != nil {
		return nil
	}
	display := s.cfg.XvfbDisplay
	cmd := exec.Command(s.cfg.XvfbBin, display, "-screen", "0", "1920x1080x24", "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	p := &xvfbProc{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.NewTimer(xvfbStartup)
	defer deadline.Stop()
	for ready := false; !ready; {
		select {
		case err := <-p.done:
			return fmt.Errorf("xvfb %s exited during startup: %w", display, exitErr(err))
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			<-p.done
			return ctx.Err()
		case <-deadline.C:
			s.cfg.Logger.Debug("browser: xvfb socket not seen", "display", display)
			ready = true
		case <-tick.C:
			_, err := os.Stat(xvfbSocket(display))
			ready = err == nil
		}
	}

	s.xvfb = p
	s.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

// stopXvfb kills the display server. A server that already died under
// Chrome is reported.
func (s *Session) stopXvfb() error {
	p := s.xvfb
	if p == nil {
		return nil
	}
	s.xvfb = nil

	select {
	case err := <-p.done:
		return fmt.Errorf("xvfb exited early: %w", exitErr(err))
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill xvfb: %w", err)
	}
	<-p.done
	s.cfg.Logger.Info("browser: xvfb stopped")
	return nil
}
