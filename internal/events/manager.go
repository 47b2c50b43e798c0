package events

import (
	"sync"

	"github.com/yungbote/transcoderd/internal/platform/logger"
)

type EventType string

const (
	EventProgress   EventType = "progress"
	EventCompletion EventType = "completion"
)

// Subscriber is one attached progress listener. The websocket connection and
// test fakes both satisfy it.
type Subscriber interface {
	Send(v any) error
	Close() error
}

// Manager fans job events out to the subscribers registered under a job id.
// Broadcasts hold the registry lock end to end, so a completion is fully
// delivered and its subscribers deregistered before any later event for the
// same job can be observed.
type Manager struct {
	mu   sync.Mutex
	log  *logger.Logger
	subs map[string]map[Subscriber]bool
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		log:  log.With("component", "EventManager"),
		subs: make(map[string]map[Subscriber]bool),
	}
}

func (m *Manager) Add(jobID string, sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.subs[jobID]
	if !ok {
		set = make(map[Subscriber]bool)
		m.subs[jobID] = set
	}
	set[sub] = true
	m.log.Debug("Subscriber added", "jobID", jobID, "subscribers", len(set))
}

func (m *Manager) Remove(jobID string, sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(jobID, sub)
	m.log.Debug("Subscriber removed", "jobID", jobID)
}

func (m *Manager) removeLocked(jobID string, sub Subscriber) {
	set, ok := m.subs[jobID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(m.subs, jobID)
	}
}

// Broadcast sends payload to every subscriber of jobID. A completion event
// closes and deregisters each subscriber after the send. A subscriber whose
// send fails is dropped without affecting the rest.
func (m *Manager) Broadcast(jobID string, event EventType, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subs[jobID] {
		if err := sub.Send(payload); err != nil {
			m.log.Debug("Dropping dead subscriber", "jobID", jobID, "error", err)
			_ = sub.Close()
			m.removeLocked(jobID, sub)
			continue
		}
		if event == EventCompletion {
			_ = sub.Close()
			m.removeLocked(jobID, sub)
		}
	}
}
