// Package pacing spaces out queries against the target site: a random gap
// before each query, a longer random settle after navigation, an optional
// hard rate ceiling and a cooldown that grows while the site keeps
// blocking us.
package pacing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Korbin-Hillan/Flight-Award/awardscan/record"
)

// Range is a closed interval of durations sampled uniformly.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Draw samples a duration in [Min, Max].
func (r Range) Draw(rnd *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rnd.Int64N(int64(r.Max-r.Min)+1))
}

// Config configures a Pacer.
type Config struct {
	Gap    Range // before each query, default 3s-7s
	Settle Range // after navigation, default 5s-10s

	// MaxPerMinute caps query starts per minute. 0 disables the ceiling.
	MaxPerMinute float64

	// CooldownBase is added before the next query after the first block
	// and doubles with every consecutive block, up to CooldownMax.
	// 0 keeps a constant pace regardless of blocks.
	CooldownBase time.Duration
	CooldownMax  time.Duration

	Logger *slog.Logger
	Rand   *rand.Rand
	Sleep  func(ctx context.Context, d time.Duration) error
}

func (c *Config) defaults() {
	if c.Gap == (Range{}) {
		c.Gap = Range{Min: 3 * time.Second, Max: 7 * time.Second}
	}
	if c.Settle == (Range{}) {
		c.Settle = Range{Min: 5 * time.Second, Max: 10 * time.Second}
	}
	if c.CooldownMax < c.CooldownBase {
		c.CooldownMax = c.CooldownBase
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if c.Sleep == nil {
		c.Sleep = SleepCtx
	}
}

// Pacer is used from the single query loop; the mutex only protects the
// block streak against concurrent readers such as the status endpoint.
type Pacer struct {
	cfg     Config
	limiter *rate.Limiter

	mu     sync.Mutex
	streak int
}

// New creates a Pacer.
func New(cfg Config) *Pacer {
	cfg.defaults()
	p := &Pacer{cfg: cfg}
	if cfg.MaxPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.MaxPerMinute/60), 1)
	}
	return p
}

// BeforeQuery blocks for the inter-query gap plus any block cooldown, then
// waits for the rate ceiling.
func (p *Pacer) BeforeQuery(ctx context.Context) error {
	d := p.cfg.Gap.Draw(p.cfg.Rand)
	if cd := p.Cooldown(); cd > 0 {
		p.cfg.Logger.Warn("pacing: cooling down after blocks", "streak", p.Streak(), "cooldown", cd)
		d += cd
	}
	p.cfg.Logger.Debug("pacing: waiting before next query", "delay", d)
	if err := p.cfg.Sleep(ctx, d); err != nil {
		return err
	}
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}

// Settle blocks while asynchronous results render after navigation.
func (p *Pacer) Settle(ctx context.Context) error {
	return p.cfg.Sleep(ctx, p.cfg.Settle.Draw(p.cfg.Rand))
}

// Observe feeds an outcome into the block streak.
func (p *Pacer) Observe(kind record.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == record.KindBlocked {
		p.streak++
		return
	}
	p.streak = 0
}

// Streak is the number of consecutive blocked outcomes.
func (p *Pacer) Streak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streak
}

// Cooldown is the extra delay owed for the current streak.
func (p *Pacer) Cooldown() time.Duration {
	streak := p.Streak()
	if streak == 0 || p.cfg.CooldownBase <= 0 {
		return 0
	}
	d := p.cfg.CooldownBase
	for i := 1; i < streak; i++ {
		d *= 2
		if d >= p.cfg.CooldownMax {
			return p.cfg.CooldownMax
		}
	}
	return min(d, p.cfg.CooldownMax)
}

// SleepCtx sleeps for d or until ctx is done.
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
