package storage

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanguard/internal/model"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func alertAt(ip string, t model.ScanType, ts time.Time) *model.Alert {
	return &model.Alert{SourceIP: ip, ScanType: t, Timestamp: ts, Ports: []int{1, 2, 3}}
}

func TestAddAndRecent(t *testing.T) {
	s := NewStorage(quietLogger())
	base := time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Add(alertAt(fmt.Sprintf("10.0.0.%d", i), model.ScanFast, base.Add(time.Duration(i)*time.Minute)))
	}

	alerts, total := s.Recent(1, 3, "")
	assert.Equal(t, 5, total)
	require.Len(t, alerts, 3)
	assert.Equal(t, "10.0.0.4", alerts[0].SourceIP, "newest first")
	assert.NotEmpty(t, alerts[0].ID)

	alerts, _ = s.Recent(2, 3, "")
	require.Len(t, alerts, 2)
	assert.Equal(t, "10.0.0.1", alerts[0].SourceIP)
}

func TestRecentScanTypeFilter(t *testing.T) {
	s := NewStorage(quietLogger())
	now := time.Now()

	s.Add(alertAt("10.0.0.1", model.ScanFast, now))
	s.Add(alertAt("10.0.0.2", model.ScanSlow, now))
	s.Add(alertAt("10.0.0.3", model.ScanFast, now))

	alerts, total := s.Recent(1, 10, "Slow Scan")
	assert.Equal(t, 1, total)
	require.Len(t, alerts, 1)
	assert.Equal(t, "10.0.0.2", alerts[0].SourceIP)
}

func TestRecentPageOutOfRange(t *testing.T) {
	s := NewStorage(quietLogger())
	s.Add(alertAt("10.0.0.1", model.ScanFast, time.Now()))

	alerts, total := s.Recent(5, 25, "")
	assert.Equal(t, 1, total)
	assert.Empty(t, alerts)
}

func TestMaxAlertsCap(t *testing.T) {
	s := NewStorage(quietLogger())
	s.maxAlerts = 10

	for i := 0; i < 25; i++ {
		s.Add(alertAt(fmt.Sprintf("10.0.%d.%d", i/250, i%250), model.ScanFast, time.Now()))
	}

	_, total := s.Recent(1, 100, "")
	assert.Equal(t, 10, total)
}

func TestStatsSnapshot(t *testing.T) {
	s := NewStorage(quietLogger())
	s.Add(alertAt("10.0.0.1", model.ScanFast, time.Now()))
	s.SetStats(model.Stats{TrackedIPs: 42, CleanedIPs: 5})

	stats, alertCount := s.GetStats()
	assert.Equal(t, 42, stats.TrackedIPs)
	assert.Equal(t, 5, stats.CleanedIPs)
	assert.Equal(t, 1, alertCount)
}

func TestSubscribeReceivesAlerts(t *testing.T) {
	s := NewStorage(quietLogger())
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	s.Add(alertAt("10.0.0.9", model.ScanSlow, time.Now()))

	select {
	case got := <-sub.Channel:
		assert.Equal(t, "10.0.0.9", got.SourceIP)
		assert.Equal(t, "Slow Scan", got.ScanType)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the alert")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewStorage(quietLogger())
	sub := s.Subscribe()
	s.Unsubscribe(sub)

	_, open := <-sub.Channel
	assert.False(t, open)

	// Double unsubscribe must not panic on a closed channel.
	s.Unsubscribe(sub)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewStorage(quietLogger())
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Add(alertAt("10.0.0.1", model.ScanFast, time.Now()))
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Add blocked on a slow subscriber")
	}
}
