// Package poller refreshes the display from the detector's counts endpoint.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"parkvision/pkg/display"
	"parkvision/pkg/log"
	"parkvision/pkg/models"
)

// DefaultInterval is the refresh period of the counts endpoint.
const DefaultInterval = time.Second

var (
	// ErrAlreadyRunning is returned by Start on a running poller.
	ErrAlreadyRunning = errors.New("poller already running")
)

// Fetcher returns the current occupancy.
type Fetcher interface {
	Counts(ctx context.Context) (models.OccupancyStats, error)
}

// Poller fetches counts once on Start and then every interval until Stop.
// Ticks are not deduplicated: a slow response may overlap the next tick and
// whichever finishes last is shown.
type Poller struct {
	fetcher  Fetcher
	display  *display.Display
	interval time.Duration

	mu      sync.Mutex
	loopCtx context.Context
	cancel  context.CancelFunc
	loopWg sync.WaitGroup
	tickWg sync.WaitGroup
}

// New creates a poller. A non-positive interval falls back to DefaultInterval.
func New(fetcher Fetcher, disp *display.Display, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		fetcher:  fetcher,
		display:  disp,
		interval: interval,
	}
}

// Interval returns the effective polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling. The first fetch is issued immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		if p.loopCtx.Err() == nil {
			return ErrAlreadyRunning
		}
		// The parent context ended the previous run.
		p.cancel()
		p.loopWg.Wait()
		p.tickWg.Wait()
		p.cancel = nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.loopCtx = loopCtx
	p.cancel = cancel

	p.tick(loopCtx)

	p.loopWg.Add(1)
	go p.loop(loopCtx)

	log.Info().
		Dur("interval", p.interval).
		Msg("Stats poller started")
	return nil
}

// Stop cancels in-flight fetches and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	p.loopWg.Wait()
	p.tickWg.Wait()
	log.Info().Msg("Stats poller stopped")
}

// Running reports whether the poller has been started and neither stopped
// nor ended by its parent context.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil && p.loopCtx.Err() == nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.loopWg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.tickWg.Add(1)
	go func() {
		defer p.tickWg.Done()
		p.refresh(ctx)
	}()
}

// refresh leaves the display untouched on failure.
func (p *Poller) refresh(ctx context.Context) {
	stats, err := p.fetcher.Counts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("Failed to fetch counts")
		return
	}

	if ctx.Err() != nil {
		return
	}
	p.display.Show(stats, display.SourcePoll)
}
