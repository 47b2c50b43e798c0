package progress

import (
	"sync"
	"time"

	"github.com/yungbote/transcoderd/internal/messages"
)

// Entry is the latest progress message for one job, stamped with the
// coordinator-side receive time. Liveness decisions use ReceivedAt rather
// than the worker's own timestamp so clock skew between hosts cannot mark a
// healthy job stalled.
type Entry struct {
	Message    messages.JobProgressMessage
	ReceivedAt time.Time
}

// Tracker holds the latest progress entry per job. The API consumer is the
// sole writer; the subscription endpoint replays entries to late subscribers
// and the stall detector reads them for liveness.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

func (t *Tracker) Set(msg messages.JobProgressMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[msg.JobID] = Entry{Message: msg, ReceivedAt: time.Now()}
}

func (t *Tracker) Get(jobID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[jobID]
	return e, ok
}

func (t *Tracker) Delete(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, jobID)
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
