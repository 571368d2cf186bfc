package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"parkvision/pkg/client"
	"parkvision/pkg/display"
	"parkvision/pkg/models"

	"github.com/stretchr/testify/suite"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	results []fetchResult
	block   chan struct{}
}

type fetchResult struct {
	stats models.OccupancyStats
	err   error
}

func (f *scriptedFetcher) Counts(ctx context.Context) (models.OccupancyStats, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	block := f.block
	var res fetchResult
	if len(f.results) > 0 {
		if idx >= len(f.results) {
			idx = len(f.results) - 1
		}
		res = f.results[idx]
	}
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.OccupancyStats{}, ctx.Err()
		}
	}
	return res.stats, res.err
}

func (f *scriptedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// PollerTestSuite tests the polling loop
type PollerTestSuite struct {
	suite.Suite
	display *display.Display
}

func (s *PollerTestSuite) SetupTest() {
	s.display = display.New()
}

func (s *PollerTestSuite) TestDefaultInterval() {
	p := New(&scriptedFetcher{}, s.display, 0)
	s.Equal(DefaultInterval, p.Interval())
	s.Equal(time.Second, DefaultInterval)
}

func (s *PollerTestSuite) TestFiresImmediately() {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{stats: models.OccupancyStats{Empty: 3, Occupied: 7, Total: 10}},
	}}
	p := New(fetcher, s.display, time.Hour)

	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.Eventually(func() bool {
		return s.display.Snapshot().Stats.Total == 10
	}, time.Second, 5*time.Millisecond)

	state := s.display.Snapshot()
	s.Equal(display.SourcePoll, state.Source)
	s.Equal(30, state.View.BarWidth)
}

func (s *PollerTestSuite) TestKeepsPolling() {
	fetcher := &scriptedFetcher{}
	p := New(fetcher, s.display, 10*time.Millisecond)

	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.Eventually(func() bool {
		return fetcher.count() >= 4
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *PollerTestSuite) TestFailureLeavesPriorStats() {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{stats: models.OccupancyStats{Empty: 3, Occupied: 7, Total: 10}},
		{err: errors.New("connection refused")},
	}}
	p := New(fetcher, s.display, 10*time.Millisecond)

	s.Require().NoError(p.Start(context.Background()))
	s.Eventually(func() bool {
		return s.display.Snapshot().Stats.Total == 10
	}, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool {
		return fetcher.count() >= 4
	}, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	state := s.display.Snapshot()
	s.Equal(models.OccupancyStats{Empty: 3, Occupied: 7, Total: 10}, state.Stats)
}

func (s *PollerTestSuite) TestZeroTotalRendersEmptyBar() {
	fetcher := &scriptedFetcher{results: []fetchResult{{stats: models.OccupancyStats{}}}}
	s.display.Show(models.OccupancyStats{Empty: 3, Occupied: 7, Total: 10}, display.SourceUpload)

	p := New(fetcher, s.display, time.Hour)
	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.Eventually(func() bool {
		return s.display.Snapshot().Source == display.SourcePoll
	}, time.Second, 5*time.Millisecond)
	s.Equal(0, s.display.Snapshot().View.BarWidth)
}

func (s *PollerTestSuite) TestStartTwice() {
	p := New(&scriptedFetcher{}, s.display, time.Hour)
	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.ErrorIs(p.Start(context.Background()), ErrAlreadyRunning)
	s.True(p.Running())
}

func (s *PollerTestSuite) TestStopCancelsInFlight() {
	fetcher := &scriptedFetcher{block: make(chan struct{})}
	p := New(fetcher, s.display, time.Hour)

	s.Require().NoError(p.Start(context.Background()))
	s.Eventually(func() bool {
		return fetcher.count() == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Stop did not return")
	}
	s.False(p.Running())
	s.Equal(display.SourceInitial, s.display.Snapshot().Source)

	p.Stop()
}

func (s *PollerTestSuite) TestRestartAfterStop() {
	fetcher := &scriptedFetcher{}
	p := New(fetcher, s.display, time.Hour)

	s.Require().NoError(p.Start(context.Background()))
	p.Stop()
	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.Eventually(func() bool {
		return fetcher.count() == 2
	}, time.Second, 5*time.Millisecond)
}

func (s *PollerTestSuite) TestRestartAfterParentCanceled() {
	fetcher := &scriptedFetcher{}
	p := New(fetcher, s.display, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Require().NoError(p.Start(ctx))
	s.Eventually(func() bool {
		return fetcher.count() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Eventually(func() bool {
		return !p.Running()
	}, time.Second, 5*time.Millisecond)

	before := fetcher.count()
	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.True(p.Running())
	s.Eventually(func() bool {
		return fetcher.count() > before+1
	}, time.Second, 5*time.Millisecond)
}

func (s *PollerTestSuite) TestAgainstDetectorClient() {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"empty":4,"occupied":6,"total":10}`))
	}))
	defer server.Close()

	c, err := client.New(server.URL, client.Options{})
	s.Require().NoError(err)

	p := New(c, s.display, time.Hour)
	s.Require().NoError(p.Start(context.Background()))
	defer p.Stop()

	s.Eventually(func() bool {
		return s.display.Snapshot().View.Label == "40% Available"
	}, time.Second, 5*time.Millisecond)
	s.EqualValues(1, hits.Load())
}

// TestPollerSuite runs the poller test suite
func TestPollerSuite(t *testing.T) {
	suite.Run(t, new(PollerTestSuite))
}
