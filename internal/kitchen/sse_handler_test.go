package kitchen

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent returns the next "event:" name from the stream, skipping
// comments and data lines.
func readEvent(t *testing.T, scanner *bufio.Scanner) string {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			return name
		}
	}
	t.Fatalf("stream ended: %v", scanner.Err())
	return ""
}

func TestSSEHandlerStreamsBoardThenEvents(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	defer engine.Close()
	server := httptest.NewServer(NewSSEHandler(engine, time.Minute, nil))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	assert.Equal(t, "board", readEvent(t, scanner))

	require.Eventually(t, func() bool { return engine.Feed().SubscriberCount() == 1 }, timeoutShort, tickShort)
	_, err = engine.Add(newTicket(baseTime, 10))
	require.NoError(t, err)

	assert.Equal(t, string(EventTicketCreated), readEvent(t, scanner))
	require.True(t, scanner.Scan())
	assert.True(t, strings.HasPrefix(scanner.Text(), "data: {"))
}

func TestSSEHandlerKeepalive(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	defer engine.Close()
	server := httptest.NewServer(NewSSEHandler(engine, 20*time.Millisecond, nil))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == ": keepalive" {
			return
		}
	}
	t.Fatal("no keepalive received")
}

func TestSSEHandlerEndsWhenFeedCloses(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	server := httptest.NewServer(NewSSEHandler(engine, time.Minute, nil))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	assert.Equal(t, "board", readEvent(t, scanner))

	engine.Close()
	for scanner.Scan() {
	}
	assert.NoError(t, ctx.Err(), "stream should end before the request deadline")
}

func TestSSEHandlerBoardIncludesTicketsAddedAfterLastTick(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	defer engine.Close()
	NewScheduler(engine, time.Second, nil, nil).Tick(baseTime)

	added, err := engine.Add(newTicket(baseTime, 10))
	require.NoError(t, err)

	server := httptest.NewServer(NewSSEHandler(engine, time.Minute, nil))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	require.Equal(t, "board", readEvent(t, scanner))
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), added.ID.String())
}
