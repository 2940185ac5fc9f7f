package detectsvc

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Threat statuses.
const (
	ThreatActive      = "Active"
	ThreatNeutralized = "Neutralized"
)

// DefaultThreatCapacity is how many events a store keeps before dropping the oldest.
const DefaultThreatCapacity = 500

var (
	ErrInvalidThreatID = errors.New("detectsvc: invalid threat id")
	ErrThreatNotFound  = errors.New("detectsvc: threat not found")
)

// ThreatEvent is one alert-class detection kept for review.
type ThreatEvent struct {
	ID            string     `json:"id"`
	Class         string     `json:"class"`
	Confidence    float64    `json:"confidence"`
	Camera        string     `json:"camera"`
	Status        string     `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	NeutralizedAt *time.Time `json:"neutralized_at,omitempty"`
	HasSnapshot   bool       `json:"has_snapshot"`
}

type threatRecord struct {
	ThreatEvent
	snapshot []byte
}

// ThreatStore keeps recent threat events in memory, oldest first.
type ThreatStore struct {
	mu       sync.RWMutex
	capacity int
	events   []*threatRecord
	byID     map[string]*threatRecord
}

// NewThreatStore creates a store. capacity <= 0 uses DefaultThreatCapacity.
func NewThreatStore(capacity int) *ThreatStore {
	if capacity <= 0 {
		capacity = DefaultThreatCapacity
	}
	return &ThreatStore{
		capacity: capacity,
		byID:     make(map[string]*threatRecord),
	}
}

// Record stores a new active event with its JPEG snapshot.
func (s *ThreatStore) Record(class string, confidence float64, cam string, snapshot []byte) ThreatEvent {
	rec := &threatRecord{
		ThreatEvent: ThreatEvent{
			ID:          uuid.NewString(),
			Class:       class,
			Confidence:  confidence,
			Camera:      cam,
			Status:      ThreatActive,
			Timestamp:   time.Now(),
			HasSnapshot: len(snapshot) > 0,
		},
		snapshot: append([]byte(nil), snapshot...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	s.byID[rec.ID] = rec
	if len(s.events) > s.capacity {
		delete(s.byID, s.events[0].ID)
		s.events[0] = nil
		s.events = s.events[1:]
	}
	return rec.ThreatEvent
}

// Active returns up to limit active events, newest first.
func (s *ThreatStore) Active(limit int) []ThreatEvent {
	return s.list(limit, ThreatActive)
}

// Neutralized returns up to limit neutralized events, newest first.
func (s *ThreatStore) Neutralized(limit int) []ThreatEvent {
	return s.list(limit, ThreatNeutralized)
}

func (s *ThreatStore) list(limit int, status string) []ThreatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ThreatEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if e := s.events[i]; e.Status == status {
			out = append(out, e.ThreatEvent)
		}
	}
	return out
}

// Neutralize marks the event handled and discards its snapshot.
// Neutralizing twice is not an error.
func (s *ThreatStore) Neutralize(id string) (ThreatEvent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ThreatEvent{}, ErrInvalidThreatID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return ThreatEvent{}, ErrThreatNotFound
	}
	if rec.Status != ThreatNeutralized {
		now := time.Now()
		rec.Status = ThreatNeutralized
		rec.NeutralizedAt = &now
		rec.snapshot = nil
		rec.HasSnapshot = false
	}
	return rec.ThreatEvent, nil
}

// Snapshot returns the JPEG kept for an active event.
func (s *ThreatStore) Snapshot(id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok || len(rec.snapshot) == 0 {
		return nil, false
	}
	return rec.snapshot, true
}

// Len returns the number of stored events.
func (s *ThreatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
