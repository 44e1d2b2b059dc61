package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kilamea/internal/model"
	"github.com/nhle/kilamea/internal/transport"
)

func waitResult(t *testing.T, p *Poller) PollResult {
	t.Helper()
	select {
	case r := <-p.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll result")
		return PollResult{}
	}
}

func TestPollerPollsOnStartAndRefresh(t *testing.T) {
	f := newFixture(t)
	f.transport.inbox[f.account.Email] = []transport.NormalizedMessage{normalized("p1", "first")}

	p := NewPoller(f.coord, time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	first := waitResult(t, p)
	assert.Equal(t, 1, first.NewCount)
	require.Len(t, first.Results, 1)

	f.transport.mu.Lock()
	f.transport.inbox[f.account.Email] = append(f.transport.inbox[f.account.Email], normalized("p2", "second"))
	f.transport.mu.Unlock()

	p.Refresh()
	second := waitResult(t, p)
	assert.Equal(t, 1, second.NewCount)

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, SyncIdle, statuses[0].State)
	assert.False(t, statuses[0].LastSync.IsZero())
}

func TestPollerRecordsErrors(t *testing.T) {
	f := newFixture(t)
	f.transport.receiveErr[f.account.Email] = errors.New("unreachable")

	p := NewPoller(f.coord, time.Hour)
	p.Start(context.Background())

	res := waitResult(t, p)
	p.Stop()

	assert.Zero(t, res.NewCount)
	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, SyncError, statuses[0].State)
	assert.Error(t, statuses[0].Error)
	assert.Equal(t, "error", statuses[0].State.String())
}

func TestPollerStopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := NewPoller(f.coord, 0)
	assert.Equal(t, defaultPollInterval, p.interval)

	p.Stop()
	p.Start(context.Background())
	waitResult(t, p)
	p.Stop()
	p.Stop()
}

func TestPollerWithoutPollOnStartWaitsForRefresh(t *testing.T) {
	f := newFixture(t)
	f.transport.inbox[f.account.Email] = []transport.NormalizedMessage{normalized("late", "later")}

	p := NewPoller(f.coord, time.Hour, WithPollOnStart(false))
	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-p.Results():
		t.Fatal("poller polled before being asked")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, f.account.FolderByType(model.FolderInbox).Messages)

	p.Refresh()
	res := waitResult(t, p)
	assert.Equal(t, 1, res.NewCount)
}
