package listener

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanguard/internal/config"
	"scanguard/internal/detector"
	"scanguard/internal/model"
	"scanguard/internal/parser"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func startServer(t *testing.T, emit func(*model.Alert)) (*Server, *net.UDPConn, context.CancelFunc) {
	t.Helper()

	cfg := config.DetectionConfig{
		FastScan:          config.FastScanConfig{PortThreshold: 5, TimeWindowSecs: 10},
		SlowScan:          config.SlowScanConfig{PortThreshold: 50, TimeWindowMins: 5},
		AlertCooldownSecs: 60,
		Cleanup:           config.CleanupConfig{IntervalSecs: 60, MaxIdleMins: 10},
	}
	tracker := detector.NewTracker(cfg, quietLogger(), emit)

	srv, err := New(0, parser.NewGaia(), tracker, nil, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Run(ctx) }()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: srv.LocalPort()})
	require.NoError(t, err)

	return srv, conn, cancel
}

func gaiaLine(ip string, port int) string {
	return fmt.Sprintf("Sep  3 15:12:41 192.168.99.1 Checkpoint: drop %s proto: tcp; service: %d; s_port: 51234", ip, port)
}

func TestListenerDetectsFastScan(t *testing.T) {
	alerts := make(chan *model.Alert, 1)
	_, conn, cancel := startServer(t, func(a *model.Alert) { alerts <- a })
	defer cancel()
	defer conn.Close()

	for port := 1; port <= 6; port++ {
		_, err := conn.Write([]byte(gaiaLine("10.66.0.1", port)))
		require.NoError(t, err)
	}

	select {
	case a := <-alerts:
		assert.Equal(t, "10.66.0.1", a.SourceIP)
		assert.Equal(t, model.ScanFast, a.ScanType)
	case <-time.After(3 * time.Second):
		t.Fatal("listener never produced an alert")
	}
}

func TestListenerHandlesCoalescedDatagram(t *testing.T) {
	alerts := make(chan *model.Alert, 1)
	_, conn, cancel := startServer(t, func(a *model.Alert) { alerts <- a })
	defer cancel()
	defer conn.Close()

	lines := make([]string, 0, 6)
	for port := 1; port <= 6; port++ {
		lines = append(lines, gaiaLine("10.66.0.9", port))
	}
	_, err := conn.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)

	select {
	case a := <-alerts:
		assert.Equal(t, "10.66.0.9", a.SourceIP)
		assert.Equal(t, model.ScanFast, a.ScanType)
		assert.Len(t, a.Ports, 6, "every line in the datagram must count")
	case <-time.After(3 * time.Second):
		t.Fatal("coalesced datagram never produced an alert")
	}
}

func TestListenerIgnoresGarbage(t *testing.T) {
	alerts := make(chan *model.Alert, 1)
	_, conn, cancel := startServer(t, func(a *model.Alert) { alerts <- a })
	defer cancel()
	defer conn.Close()

	for i := 0; i < 20; i++ {
		_, err := conn.Write([]byte("definitely not a firewall log"))
		require.NoError(t, err)
	}

	select {
	case <-alerts:
		t.Fatal("garbage datagrams must not produce alerts")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.DetectionConfig{
		FastScan: config.FastScanConfig{PortThreshold: 5, TimeWindowSecs: 10},
		SlowScan: config.SlowScanConfig{PortThreshold: 50, TimeWindowMins: 5},
	}
	tracker := detector.NewTracker(cfg, quietLogger(), nil)

	srv, err := New(0, parser.NewGaia(), tracker, nil, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
