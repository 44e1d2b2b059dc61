package sync

import (
	"context"
	gosync "sync"
	"time"
)

// SyncState represents the current state of an account's receive.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single account.
type SyncStatus struct {
	Account  string
	State    SyncState
	LastSync time.Time
	Error    error
}

// PollResult is sent on the results channel after every poll.
type PollResult struct {
	Results  []*ReceiveResult
	NewCount int
}

// defaultPollInterval applies when the poller is given no interval.
const defaultPollInterval = 5 * time.Minute

// Poller receives mail for every account periodically and on demand.
type Poller struct {
	coordinator *Coordinator
	interval    time.Duration

	statuses  map[string]*SyncStatus
	resultCh  chan PollResult
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool

	pollOnStart bool

	// mu guards statuses and running; it is separate from the
	// coordinator's store lock.
	mu gosync.Mutex
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollOnStart controls whether Start polls right away or waits for
// the first tick or Refresh. It defaults to true.
func WithPollOnStart(on bool) PollerOption {
	return func(p *Poller) { p.pollOnStart = on }
}

// NewPoller creates a poller that receives every interval.
func NewPoller(c *Coordinator, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p := &Poller{
		coordinator: c,
		interval:    interval,
		statuses:    make(map[string]*SyncStatus),
		resultCh:    make(chan PollResult, 16),
		triggerCh:   make(chan struct{}, 1),
		pollOnStart: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling goroutine. It stops when Stop is called
// or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.loop(ctx, p.stopCh, p.doneCh)
}

// Stop halts polling and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

// Refresh asks for an immediate poll. It never blocks; a refresh
// requested while one is pending is merged with it.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Results delivers one PollResult per completed poll. Results are
// dropped when nobody reads them.
func (p *Poller) Results() <-chan PollResult {
	return p.resultCh
}

// Statuses returns the current sync status of all polled accounts.
func (p *Poller) Statuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	return statuses
}

func (p *Poller) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.pollOnStart {
		p.poll(ctx)
	}

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.triggerCh:
			p.poll(ctx)
		}
	}
}

// poll runs one ReceiveAll and records per-account statuses.
func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	for _, s := range p.statuses {
		s.State = SyncRunning
	}
	p.mu.Unlock()

	results := p.coordinator.ReceiveAll(ctx)

	newCount := 0
	p.mu.Lock()
	for _, r := range results {
		email := r.Account.Email
		status, ok := p.statuses[email]
		if !ok {
			status = &SyncStatus{Account: email}
			p.statuses[email] = status
		}
		status.Error = r.Err
		if r.Err != nil {
			status.State = SyncError
			continue
		}
		status.State = SyncIdle
		status.LastSync = time.Now()
		newCount += len(r.Received)
	}
	p.mu.Unlock()

	select {
	case p.resultCh <- PollResult{Results: results, NewCount: newCount}:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}
