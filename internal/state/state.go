// Package state provides thread-safe state shared across sessions: the
// loaded region catalog, an event log and visit counters.
package state

import (
	"sync"
	"time"

	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/session"
)

// EventType represents the type of session event.
type EventType string

const (
	EventEnter     EventType = "ENTER"
	EventLeave     EventType = "LEAVE"
	EventGameStart EventType = "GAME_START"
	EventGameEnd   EventType = "GAME_END"
)

// Event is one entry in the event log.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session"`
	Region    string    `json:"region,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Score     int       `json:"score,omitempty"`
}

// Manager handles all shared application state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Region catalog
	regions      *region.Set
	source       string
	loadedAt     time.Time
	loadDuration time.Duration
	lastError    error

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	// Derived counters
	visits      map[string]int
	active      int
	gamesPlayed int
	bestScore   int

	now func() time.Time
}

// Config holds configuration for the state manager.
type Config struct {
	MaxEvents int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents: 100,
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 100
	}
	return &Manager{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		visits:    make(map[string]int),
		now:       time.Now,
	}
}

// SetRegions records the outcome of a region load. A failed load keeps the
// previous catalog.
func (m *Manager) SetRegions(set *region.Set, source string, loadDuration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastError = err
	m.loadDuration = loadDuration
	if set == nil {
		return
	}
	m.regions = set
	m.source = source
	m.loadedAt = m.now()
}

// Regions returns the current region catalog, or nil before the first load.
func (m *Manager) Regions() *region.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regions
}

// SessionOpened counts a new live session.
func (m *Manager) SessionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
}

// SessionClosed counts a session going away.
func (m *Manager) SessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active > 0 {
		m.active--
	}
}

// GameStarted logs the start of a game.
func (m *Manager) GameStarted(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addEvent(Event{Type: EventGameStart, Timestamp: m.now(), Session: sessionID})
}

// Observe logs the events implied by a session update.
func (m *Manager) Observe(sessionID string, u session.Update, st *session.State) {
	if u.Entered == nil && u.Left == nil && u.Ended == session.EndNone {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if u.Left != nil {
		m.addEvent(Event{Type: EventLeave, Timestamp: now, Session: sessionID, Region: u.Left.Name})
	}
	if u.Entered != nil {
		m.visits[u.Entered.Name]++
		m.addEvent(Event{Type: EventEnter, Timestamp: now, Session: sessionID, Region: u.Entered.Name})
	}
	if u.Ended != session.EndNone {
		score := 0
		if st != nil {
			score = st.Score
		}
		m.gamesPlayed++
		if score > m.bestScore {
			m.bestScore = score
		}
		e := Event{Type: EventGameEnd, Timestamp: now, Session: sessionID, Outcome: u.Ended.String(), Score: score}
		if u.Entered != nil {
			e.Region = u.Entered.Name
		}
		m.addEvent(e)
	}
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Regions        *region.Set
	Source         string
	LoadedAt       time.Time
	LoadDuration   time.Duration
	LastError      error
	Events         []Event
	Visits         map[string]int
	ActiveSessions int
	GamesPlayed    int
	BestScore      int
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visits := make(map[string]int, len(m.visits))
	for k, v := range m.visits {
		visits[k] = v
	}

	return Snapshot{
		Regions:        m.regions,
		Source:         m.source,
		LoadedAt:       m.loadedAt,
		LoadDuration:   m.loadDuration,
		LastError:      m.lastError,
		Events:         m.getEventsOrdered(),
		Visits:         visits,
		ActiveSessions: m.active,
		GamesPlayed:    m.gamesPlayed,
		BestScore:      m.bestScore,
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if n < 0 || len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// HasRegions returns true once a region catalog has been loaded.
func (m *Manager) HasRegions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regions != nil
}
