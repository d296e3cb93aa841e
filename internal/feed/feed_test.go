package feed

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardhub/pkg/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestTCPFeedDeliversRunEvents(t *testing.T) {
	hub := NewHub()
	srv := NewServer("127.0.0.1:0", hub, testLogger())

	// bind before Run so the test knows the port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	t.Cleanup(func() { srv.Close() })

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("tcp", srv.Addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	rd := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// welcome line first
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"welcome"`)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	report := models.NewRunReport("run-1", models.ScrapeOrder)
	report.Types[models.EntityFaction].State = models.StateSucceeded
	NewPublisher(hub).PublishRun(report)

	line, err = rd.ReadString('\n')
	require.NoError(t, err)

	var ev RunEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, EventRunProgress, ev.Type)
	require.NotNil(t, ev.Report)
	assert.Equal(t, "run-1", ev.Report.RunID)
	assert.Equal(t, models.StateSucceeded, ev.Report.Types[models.EntityFaction].State)
}

func TestPublisherMarksFinishedRuns(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	defer client.Close()
	hub.Add(server)

	report := models.NewRunReport("run-2", models.ScrapeOrder)
	report.FinishedAt = time.Now().UTC()
	go NewPublisher(hub).PublishRun(report)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)

	var ev RunEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, EventRunFinished, ev.Type)
}

func TestBroadcastDropsDeadSubscribers(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	hub.Add(server)
	require.Equal(t, 1, hub.Count())

	// the peer is gone; the next broadcast must evict the subscriber
	require.NoError(t, client.Close())
	hub.Broadcast(RunEvent{Type: EventRunProgress, At: time.Now().UTC()})

	assert.Equal(t, 0, hub.Count())
}

func TestServerCloseStopsAccepting(t *testing.T) {
	hub := NewHub()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := NewServer(addr, hub, testLogger())
	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after Close")
	}
}
