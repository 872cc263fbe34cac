package detector

import (
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanguard/internal/config"
	"scanguard/internal/model"
)

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		FastScan:          config.FastScanConfig{PortThreshold: 5, TimeWindowSecs: 10},
		SlowScan:          config.SlowScanConfig{PortThreshold: 10, TimeWindowMins: 5},
		AlertCooldownSecs: 60,
		Cleanup:           config.CleanupConfig{IntervalSecs: 60, MaxIdleMins: 10},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(t *testing.T) (*Tracker, *clock, *[]*model.Alert) {
	t.Helper()
	alerts := &[]*model.Alert{}
	tracker := NewTracker(testDetectionConfig(), quietLogger(), func(a *model.Alert) {
		*alerts = append(*alerts, a)
	})
	c := &clock{t: time.Date(2024, 11, 20, 15, 0, 0, 0, time.UTC)}
	tracker.now = c.now
	return tracker, c, alerts
}

func dropEvent(ip string, port int, ts time.Time) *model.Event {
	return &model.Event{Timestamp: ts, SourceIP: ip, DestPort: port, Protocol: "tcp", Action: "drop"}
}

func TestFastScanDetection(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	// Threshold is 5, so the sixth distinct port inside the window fires.
	for port := 1; port <= 6; port++ {
		tracker.Observe(dropEvent("10.0.0.1", port, c.t))
		c.advance(time.Second)
	}

	require.Len(t, *alerts, 1)
	a := (*alerts)[0]
	assert.Equal(t, model.ScanFast, a.ScanType)
	assert.Equal(t, "10.0.0.1", a.SourceIP)
	assert.Len(t, a.Ports, 6)
	assert.True(t, sort.IntsAreSorted(a.Ports), "alert ports must be sorted ascending")
}

func TestBelowThresholdNoAlert(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	for port := 1; port <= 5; port++ {
		tracker.Observe(dropEvent("10.0.0.1", port, c.t))
	}
	c.advance(11 * time.Second)
	tracker.Observe(dropEvent("10.0.0.1", 6, c.t))

	assert.Empty(t, *alerts, "distinct ports never exceeded the fast threshold inside one window")
}

func TestRepeatedPortCountsOnce(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	for i := 0; i < 50; i++ {
		tracker.Observe(dropEvent("10.0.0.1", 443, c.t))
		c.advance(100 * time.Millisecond)
	}

	assert.Empty(t, *alerts, "hammering one port is not a port scan")
}

func TestSlowScanDetection(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	// One new port every 12s: never more than one distinct port per 10s
	// fast window, but 11 distinct ports within the 5min slow window.
	for port := 1; port <= 11; port++ {
		tracker.Observe(dropEvent("10.0.0.2", port, c.t))
		c.advance(12 * time.Second)
	}

	require.Len(t, *alerts, 1)
	assert.Equal(t, model.ScanSlow, (*alerts)[0].ScanType)
	assert.Len(t, (*alerts)[0].Ports, 11)
}

func TestAcceptedTrafficIgnored(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	for port := 1; port <= 20; port++ {
		ev := dropEvent("10.0.0.3", port, c.t)
		ev.Action = "accept"
		tracker.Observe(ev)
	}

	assert.Empty(t, *alerts)
	assert.Equal(t, 0, tracker.TrackedIPs(), "accepted traffic is never tracked")
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	for port := 1; port <= 8; port++ {
		tracker.Observe(dropEvent("10.0.0.4", port, c.t))
	}
	require.Len(t, *alerts, 1)

	// Still inside the 60s cooldown: more ports, no second alert.
	c.advance(30 * time.Second)
	for port := 9; port <= 14; port++ {
		tracker.Observe(dropEvent("10.0.0.4", port, c.t))
	}
	assert.Len(t, *alerts, 1)

	// Past the cooldown the same source may alert again.
	c.advance(61 * time.Second)
	for port := 20; port <= 26; port++ {
		tracker.Observe(dropEvent("10.0.0.4", port, c.t))
	}
	assert.Len(t, *alerts, 2)
}

func TestSourcesTrackedIndependently(t *testing.T) {
	tracker, c, alerts := newTestTracker(t)

	for port := 1; port <= 4; port++ {
		tracker.Observe(dropEvent("10.0.0.5", port, c.t))
		tracker.Observe(dropEvent("10.0.0.6", port+100, c.t))
	}

	assert.Empty(t, *alerts)
	assert.Equal(t, 2, tracker.TrackedIPs())
}

func TestCleanup(t *testing.T) {
	tracker, c, _ := newTestTracker(t)

	tracker.Observe(dropEvent("10.0.0.7", 80, c.t))
	c.advance(5 * time.Minute)
	tracker.Observe(dropEvent("10.0.0.8", 80, c.t))

	// 10.0.0.7 is now 11min idle, past the 10min max.
	c.advance(6 * time.Minute)
	stats := tracker.Cleanup()

	assert.Equal(t, 1, stats.CleanedIPs)
	assert.Equal(t, 1, stats.TrackedIPs)
}

func TestCleanupNothingToDo(t *testing.T) {
	tracker, c, _ := newTestTracker(t)

	tracker.Observe(dropEvent("10.0.0.9", 80, c.t))
	stats := tracker.Cleanup()

	assert.Equal(t, 0, stats.CleanedIPs)
	assert.Equal(t, 1, stats.TrackedIPs)
}

func TestNilEventIgnored(t *testing.T) {
	tracker, _, alerts := newTestTracker(t)
	tracker.Observe(nil)
	assert.Empty(t, *alerts)
}
