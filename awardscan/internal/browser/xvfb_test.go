package browser

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeXvfb writes an executable shell script standing in for the display
// server and returns a session configured to run it. startup replaces the
// socket wait window.
func fakeXvfb(t *testing.T, body string, startup time.Duration) *Session {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	bin := filepath.Join(t.TempDir(), "Xvfb")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	old := xvfbStartup
	xvfbStartup = startup
	t.Cleanup(func() { xvfbStartup = old })

	s := &Session{cfg: Config{
		XvfbDisplay: ":197",
		XvfbBin:     bin,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}
	s.cfg.defaults()
	return s
}

func TestNeedsXvfb(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"headful with display", Config{XvfbDisplay: ":99"}, true},
		{"no display", Config{}, false},
		{"headless", Config{XvfbDisplay: ":99", Headless: true}, false},
		{"remote", Config{XvfbDisplay: ":99", RemoteURL: "ws://127.0.0.1:9222"}, false},
	}
	for _, tt := range tests {
		s := &Session{cfg: tt.cfg}
		if got := s.needsXvfb(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStartXvfb_MissingBinary(t *testing.T) {
	s := &Session{cfg: Config{XvfbDisplay: ":197", XvfbBin: filepath.Join(t.TempDir(), "nope")}}
	s.cfg.defaults()
	if err := s.startXvfb(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.xvfb != nil {
		t.Fatal("no process must be recorded")
	}
}

func TestStartXvfb_ExitDuringStartup(t *testing.T) {
	s := fakeXvfb(t, "exit 3", 10*time.Second)
	err := s.startXvfb(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("got %v", err)
	}
	if s.xvfb != nil {
		t.Fatal("no process must be recorded")
	}
}

func TestClose_StopsXvfb(t *testing.T) {
	s := fakeXvfb(t, "exec sleep 30", 30*time.Millisecond)
	if err := s.startXvfb(context.Background()); err != nil {
		t.Fatal(err)
	}
	p := s.xvfb
	if p == nil {
		t.Fatal("process not recorded")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.xvfb != nil || p.cmd.ProcessState == nil {
		t.Fatal("display server still running")
	}
}

func TestClose_ReportsDeadXvfb(t *testing.T) {
	s := fakeXvfb(t, "exec sleep 30", 30*time.Millisecond)
	if err := s.startXvfb(context.Background()); err != nil {
		t.Fatal(err)
	}
	p := s.xvfb
	if err := p.cmd.Process.Kill(); err != nil {
		t.Fatal(err)
	}
	for deadline := time.Now().Add(5 * time.Second); len(p.done) == 0; {
		if time.Now().After(deadline) {
			t.Fatal("process never exited")
		}
		time.Sleep(time.Millisecond)
	}

	err := s.Close()
	if err == nil || !strings.Contains(err.Error(), "xvfb exited early") {
		t.Fatalf("got %v", err)
	}
}
