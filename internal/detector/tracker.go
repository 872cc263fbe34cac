// Package detector keeps per-source sliding windows of distinct destination
// ports and raises Fast/Slow scan alerts when the configured thresholds are
// exceeded.
package detector

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"scanguard/internal/config"
	"scanguard/internal/model"
)

type observation struct {
	port int
	seen time.Time
}

type sourceState struct {
	hits      []observation
	lastSeen  time.Time
	lastAlert time.Time
}

// Tracker is the stateful half of detection. All methods are safe for
// concurrent use; the listener feeds Observe from the datagram loop while
// the cleanup ticker calls Cleanup.
type Tracker struct {
	mu      sync.Mutex
	sources map[string]*sourceState

	fastWindow    time.Duration
	fastThreshold int
	slowWindow    time.Duration
	slowThreshold int
	cooldown      time.Duration
	maxIdle       time.Duration

	emit   func(*model.Alert)
	logger *logrus.Logger
	now    func() time.Time
}

// NewTracker builds a tracker from the detection config. emit is invoked
// synchronously for every alert, with ports already sorted ascending.
func NewTracker(cfg config.DetectionConfig, logger *logrus.Logger, emit func(*model.Alert)) *Tracker {
	return &Tracker{
		sources:       make(map[string]*sourceState),
		fastWindow:    time.Duration(cfg.FastScan.TimeWindowSecs) * time.Second,
		fastThreshold: cfg.FastScan.PortThreshold,
		slowWindow:    time.Duration(cfg.SlowScan.TimeWindowMins) * time.Minute,
		slowThreshold: cfg.SlowScan.PortThreshold,
		cooldown:      time.Duration(cfg.AlertCooldownSecs) * time.Second,
		maxIdle:       time.Duration(cfg.Cleanup.MaxIdleMins) * time.Minute,
		emit:          emit,
		logger:        logger,
		now:           time.Now,
	}
}

// Observe records one parsed firewall event. Only dropped packets count:
// accepted traffic is legitimate and must never trip a threshold.
func (t *Tracker) Observe(ev *model.Event) {
	if ev == nil || !ev.Dropped() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.sources[ev.SourceIP]
	if !ok {
		st = &sourceState{}
		t.sources[ev.SourceIP] = st
	}
	st.lastSeen = now
	st.hits = append(st.hits, observation{port: ev.DestPort, seen: now})
	st.prune(now.Add(-t.slowWindow))

	if ports := st.distinctSince(now.Add(-t.fastWindow)); len(ports) > t.fastThreshold {
		t.raise(st, ev.SourceIP, model.ScanFast, ports, now)
		return
	}
	if ports := st.distinctSince(now.Add(-t.slowWindow)); len(ports) > t.slowThreshold {
		t.raise(st, ev.SourceIP, model.ScanSlow, ports, now)
	}
}

// raise emits an alert unless the source alerted within the cooldown; a
// burst that already fired must not keep firing on every extra packet.
// Caller holds the mutex.
func (t *Tracker) raise(st *sourceState, sourceIP string, scanType model.ScanType, ports map[int]struct{}, now time.Time) {
	if !st.lastAlert.IsZero() && now.Sub(st.lastAlert) < t.cooldown {
		t.logger.Debugf("suppressing %s alert for %s, still in cooldown", scanType, sourceIP)
		return
	}
	st.lastAlert = now

	sorted := make([]int, 0, len(ports))
	for p := range ports {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	t.logger.Warnf("%s from %s: %d distinct ports", scanType, sourceIP, len(sorted))

	if t.emit != nil {
		t.emit(&model.Alert{
			SourceIP:  sourceIP,
			ScanType:  scanType,
			Timestamp: now,
			Ports:     sorted,
		})
	}
}

// Cleanup drops sources idle longer than the configured maximum and returns
// the snapshot for the periodic stats line.
func (t *Tracker) Cleanup() model.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cleaned := 0
	for ip, st := range t.sources {
		if now.Sub(st.lastSeen) > t.maxIdle {
			delete(t.sources, ip)
			cleaned++
		}
	}

	if cleaned > 0 {
		t.logger.Infof("cleanup removed %d idle sources, %d still tracked", cleaned, len(t.sources))
	}

	return model.Stats{TrackedIPs: len(t.sources), CleanedIPs: cleaned}
}

// TrackedIPs returns the number of sources currently under observation.
func (t *Tracker) TrackedIPs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sources)
}

func (s *sourceState) prune(cutoff time.Time) {
	keep := s.hits[:0]
	for _, h := range s.hits {
		if !h.seen.Before(cutoff) {
			keep = append(keep, h)
		}
	}
	s.hits = keep
}

func (s *sourceState) distinctSince(cutoff time.Time) map[int]struct{} {
	ports := make(map[int]struct{})
	for _, h := range s.hits {
		if !h.seen.Before(cutoff) {
			ports[h.port] = struct{}{}
		}
	}
	return ports
}
