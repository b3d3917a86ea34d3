package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inbox-summarizer/internal/inbox"
	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/store"
)

// PollState represents the current state of the background fetch loop.
type PollState int

const (
	PollIdle PollState = iota
	PollRunning
	PollError
)

// Status holds the state of the most recent fetch.
type Status struct {
	State     PollState
	LastFetch time.Time
	Error     error
}

// PollResultMsg is a tea.Msg sent when a background fetch completes.
type PollResultMsg struct {
	Fetched   int
	Failures  []inbox.FetchResult
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the mailbox rejects the stored
// credentials during a background fetch.
type AuthErrorMsg struct {
	Backend string
	Message string
}

// fetchTimeout is the maximum time allowed for a single fetch cycle.
const fetchTimeout = 2 * time.Minute

// Poller runs the unread fetch on a fixed interval in the background
// and reports each cycle to the Bubble Tea runtime.
type Poller struct {
	store    store.Store
	interval time.Duration

	mu      gosync.Mutex
	fetcher *inbox.Fetcher
	limit   int
	status  Status
	running bool

	resultCh  chan PollResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// New creates a new Poller writing fetched messages to the given store.
func New(s store.Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Poller{
		store:     s,
		interval:  interval,
		resultCh:  make(chan PollResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// SetFetcher installs or replaces the mailbox fetcher. The poller stays
// dormant until a fetcher is set.
func (p *Poller) SetFetcher(f *inbox.Fetcher, limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetcher = f
	p.limit = limit
}

// Start launches the polling goroutine and returns a command that
// waits for the first result. Calling Start twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate fetch cycle.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

// GetStatus returns the state of the most recent fetch cycle.
func (p *Poller) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// loop runs fetch cycles until stopped.
func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Do an initial fetch immediately.
	p.fetchAndUpsert()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetchAndUpsert()
		case <-p.triggerCh:
			p.fetchAndUpsert()
		}
	}
}

// fetchAndUpsert performs one fetch cycle: list and retrieve unread
// mail, persist the successfully normalized messages, and report the
// outcome on the result channel.
func (p *Poller) fetchAndUpsert() {
	p.mu.Lock()
	fetcher := p.fetcher
	limit := p.limit
	p.mu.Unlock()

	if fetcher == nil {
		return
	}

	p.setStatus(PollRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	results, err := fetcher.FetchUnread(ctx, limit)
	if err != nil {
		p.setStatus(PollError, err)

		if authErr, ok := mailbox.AsAuthError(err); ok {
			p.sendResult(PollResultMsg{
				Error: err,
				AuthError: &AuthErrorMsg{
					Backend: authErr.Backend,
					Message: fmt.Sprintf(
						"%s: authentication expired. Press 's' to reconfigure.",
						authErr.Backend,
					),
				},
			})
			return
		}

		p.sendResult(PollResultMsg{Error: err})
		return
	}

	var fetched []model.NormalizedMessage
	var failures []inbox.FetchResult
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, r)
			continue
		}
		fetched = append(fetched, r.Message)
	}

	if len(fetched) > 0 {
		if upsertErr := p.store.UpsertMessages(ctx, fetched); upsertErr != nil {
			p.setStatus(PollError, upsertErr)
			p.sendResult(PollResultMsg{Error: upsertErr})
			return
		}
	}

	p.setStatus(PollIdle, nil)
	p.sendResult(PollResultMsg{
		Fetched:  len(fetched),
		Failures: failures,
	})
}

// setStatus updates the poller status.
func (p *Poller) setStatus(state PollState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == PollIdle && err == nil {
		p.status.LastFetch = time.Now()
	}
}

// sendResult sends a PollResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg PollResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller.
	}
}

// waitForResult returns a tea.Cmd that waits for the next fetch result.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next fetch
// result. Call it after processing a PollResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
