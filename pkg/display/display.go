// Package display holds the single on-screen state shared by the upload
// flow and the poller. Writers overwrite each other; the last write wins.
package display

import (
	"sync"
	"time"

	"parkvision/pkg/models"
	"parkvision/pkg/render"
)

// Source tells which flow produced the current stats.
type Source string

const (
	SourceInitial Source = "initial"
	SourceUpload  Source = "upload"
	SourcePoll    Source = "poll"
)

// State is an immutable snapshot of everything the dashboard shows.
type State struct {
	Stats     models.OccupancyStats `json:"stats"`
	View      render.View           `json:"view"`
	Status    string                `json:"status"`
	Source    Source                `json:"source"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Display is safe for concurrent use.
type Display struct {
	mu          sync.RWMutex
	state       State
	subscribers map[int]chan State
	nextID      int
	now         func() time.Time
}

// New returns a display showing zero counters.
func New() *Display {
	d := &Display{
		subscribers: make(map[int]chan State),
		now:         time.Now,
	}
	d.state = State{
		View:      render.Render(models.OccupancyStats{}),
		Status:    render.StatusIdle,
		Source:    SourceInitial,
		UpdatedAt: d.now(),
	}
	return d
}

// Snapshot returns the current state.
func (d *Display) Snapshot() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Show replaces the counters and view. The status line is left as is.
func (d *Display) Show(stats models.OccupancyStats, source Source) State {
	return d.update(func(s *State) {
		s.Stats = stats
		s.View = render.Render(stats)
		s.Source = source
	})
}

// ShowWithStatus replaces counters, view and status in one write.
func (d *Display) ShowWithStatus(stats models.OccupancyStats, source Source, status string) State {
	return d.update(func(s *State) {
		s.Stats = stats
		s.View = render.Render(stats)
		s.Source = source
		s.Status = status
	})
}

// SetStatus replaces the status line only.
func (d *Display) SetStatus(status string) State {
	return d.update(func(s *State) {
		s.Status = status
	})
}

// Fail shows the message and resets the counters to zero.
func (d *Display) Fail(status string) State {
	return d.ShowWithStatus(models.OccupancyStats{}, SourceUpload, status)
}

// Subscribe delivers every subsequent state. Slow receivers only get the
// newest one. The returned func unsubscribes and closes the channel.
func (d *Display) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subscribers[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, id)
			d.mu.Unlock()
			close(ch)
		})
	}
}

func (d *Display) update(apply func(*State)) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.state
	apply(&next)
	next.UpdatedAt = d.now()
	d.state = next

	for _, ch := range d.subscribers {
		publish(ch, next)
	}
	return next
}

// publish replaces a pending undelivered state with the newer one.
func publish(ch chan State, state State) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
