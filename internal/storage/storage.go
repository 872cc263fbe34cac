// Package storage keeps a bounded in-memory history of alerts for the REST
// and websocket API surfaces.
package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scanguard/internal/model"
)

const defaultMaxAlerts = 10000

// StoredAlert is the API-facing shape of an alert.
type StoredAlert struct {
	ID        string    `json:"id"`
	SourceIP  string    `json:"source_ip"`
	ScanType  string    `json:"scan_type"`
	Timestamp time.Time `json:"timestamp"`
	PortCount int       `json:"port_count"`
	Ports     []int     `json:"ports"`
}

type Subscriber struct {
	ID      string
	Channel chan StoredAlert
}

type Storage struct {
	mu        sync.RWMutex
	alerts    []StoredAlert
	maxAlerts int
	stats     model.Stats
	logger    *logrus.Logger

	subsMu sync.RWMutex
	subs   map[*Subscriber]bool
}

func NewStorage(logger *logrus.Logger) *Storage {
	return &Storage{
		maxAlerts: defaultMaxAlerts,
		logger:    logger,
		subs:      make(map[*Subscriber]bool),
	}
}

// SendAlert implements alert.Notifier so the store can sit directly on the
// dispatcher fan-out.
func (s *Storage) SendAlert(a *model.Alert) error {
	s.Add(a)
	return nil
}

func (s *Storage) Add(a *model.Alert) {
	stored := StoredAlert{
		ID:        uuid.NewString(),
		SourceIP:  a.SourceIP,
		ScanType:  a.ScanType.String(),
		Timestamp: a.Timestamp,
		PortCount: len(a.Ports),
		Ports:     a.Ports,
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, stored)
	if len(s.alerts) > s.maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-s.maxAlerts:]
	}
	s.mu.Unlock()

	s.notifySubscribers(stored)
}

// Recent returns one page of alerts, newest first, optionally filtered by
// scan type label, along with the total matching count.
func (s *Storage) Recent(page, limit int, scanType string) ([]StoredAlert, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 25
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]StoredAlert, 0, len(s.alerts))
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if scanType != "" && s.alerts[i].ScanType != scanType {
			continue
		}
		filtered = append(filtered, s.alerts[i])
	}

	total := len(filtered)
	start := (page - 1) * limit
	if start >= total {
		return []StoredAlert{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// SetStats records the latest cleanup snapshot for the stats endpoint.
func (s *Storage) SetStats(stats model.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

func (s *Storage) GetStats() (model.Stats, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, len(s.alerts)
}

// Subscribe registers a live alert feed. The channel is buffered; slow
// consumers lose alerts rather than block the detection path.
func (s *Storage) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:      uuid.NewString(),
		Channel: make(chan StoredAlert, 64),
	}

	s.subsMu.Lock()
	s.subs[sub] = true
	s.subsMu.Unlock()

	return sub
}

func (s *Storage) Unsubscribe(sub *Subscriber) {
	s.subsMu.Lock()
	if s.subs[sub] {
		delete(s.subs, sub)
		close(sub.Channel)
	}
	s.subsMu.Unlock()
}

func (s *Storage) notifySubscribers(a StoredAlert) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for sub := range s.subs {
		select {
		case sub.Channel <- a:
		default:
			s.logger.Warnf("alert subscriber %s is not keeping up, dropping alert", sub.ID)
		}
	}
}
