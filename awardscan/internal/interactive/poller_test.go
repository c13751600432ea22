package interactive

import (
	"context"
	"errors"
	"testing"
	"time"
)

// script replays a sequence of locations, repeating the last one.
type script struct {
	urls []string
	i    int
}

func (s *script) Location(context.Context) (string, error) {
	u := s.urls[min(s.i, len(s.urls)-1)]
	s.i++
	return u, nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestAwait_DetectsResults(t *testing.T) {
	p := New(Config{Sleep: noSleep})
	loc := &script{urls: []string{
		"https://www.united.com/en/us",
		"https://www.united.com/en/us/book-flight",
		"https://www.united.com/en/us/fsr/choose-flights?f=ORD&t=SFO&d=2026-09-01",
	}}

	state, url, err := p.Await(context.Background(), loc)
	if err != nil {
		t.Fatal(err)
	}
	if state != ResultsDetected || url != loc.urls[2] {
		t.Fatalf("got %s %q", state, url)
	}
	if p.State() != ResultsDetected {
		t.Fatalf("State() = %s", p.State())
	}
}

func TestAwait_SamePageNotCapturedTwice(t *testing.T) {
	p := New(Config{Sleep: noSleep, Interval: time.Millisecond, Timeout: 30 * time.Millisecond})
	results := "https://www.united.com/en/us/fsr/choose-flights?f=ORD&t=SFO&d=2026-09-01"
	loc := &script{urls: []string{results}}

	if state, _, _ := p.Await(context.Background(), loc); state != ResultsDetected {
		t.Fatalf("first await: %s", state)
	}
	// The tab still shows the captured page: nothing new until timeout.
	p.cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		time.Sleep(d)
		return ctx.Err()
	}
	state, url, err := p.Await(context.Background(), loc)
	if err != nil {
		t.Fatal(err)
	}
	if state != TimedOut || url != "" {
		t.Fatalf("second await: %s %q", state, url)
	}
}

func TestAwait_RepeatSearchCapturedAfterLeaving(t *testing.T) {
	p := New(Config{Sleep: noSleep, Interval: time.Millisecond, Timeout: time.Second})
	home := "https://www.united.com/en/us"
	results := "https://www.united.com/en/us/fsr/choose-flights?f=ORD&t=SFO&d=2026-09-01"

	if state, _, _ := p.Await(context.Background(), &script{urls: []string{results}}); state != ResultsDetected {
		t.Fatalf("first await: %s", state)
	}
	// The operator went back home and ran the identical search again.
	state, url, err := p.Await(context.Background(), &script{urls: []string{home, home, results}})
	if err != nil {
		t.Fatal(err)
	}
	if state != ResultsDetected || url != results {
		t.Fatalf("re-run of the same search: got %s %q", state, url)
	}
}

func TestAwait_TimesOut(t *testing.T) {
	p := New(Config{Interval: time.Millisecond, Timeout: 20 * time.Millisecond, Settle: time.Millisecond})
	state, _, err := p.Await(context.Background(), &script{urls: []string{"https://www.united.com/en/us"}})
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if state != TimedOut {
		t.Fatalf("got %s", state)
	}
}

func TestAwait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(Config{})
	_, _, err := p.Await(ctx, &script{urls: []string{"about:blank"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestState_Lifecycle(t *testing.T) {
	p := New(Config{Sleep: noSleep})
	if p.State() != WaitingForLogin {
		t.Fatalf("initial %s", p.State())
	}
	p.LoggedIn()
	if p.State() != WaitingForSearch {
		t.Fatalf("after login %s", p.State())
	}
}
