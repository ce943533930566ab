package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const frame = `[
 {"e":"markPriceUpdate","E":1767254400000,"s":"BTCUSDT","p":"95000.10","i":"94990","P":"95001","r":"-0.00020000","T":1767254400000},
 {"e":"markPriceUpdate","E":1767254400000,"s":"ABCUSDT","p":"1.2345","r":"0.0001","T":1767254400000},
 {"e":"markPriceUpdate","E":1767254400000,"s":"BADUSDT","p":"x","r":"0","T":0}
]`

type connFlag struct{ v atomic.Bool }

func (c *connFlag) SetWSConnected(v bool) { c.v.Store(v) }

func newTestStream(t *testing.T, url string) (*Stream, *connFlag) {
	flag := &connFlag{}
	return &Stream{
		url:    url,
		dialer: websocket.DefaultDialer,
		cache:  NewMarkCache(),
		state:  flag,
		log:    zaptest.NewLogger(t),
		now:    time.Now,
	}, flag
}

func TestHandle_DecodesMarkArray(t *testing.T) {
	s, _ := newTestStream(t, "")
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	n, err := s.handle([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	px, ok := s.cache.Price("BTCUSDT", time.Second, now)
	require.True(t, ok)
	assert.InDelta(t, 95000.10, px, 1e-9)

	_, ok = s.cache.Price("BADUSDT", time.Second, now)
	assert.False(t, ok)

	// устаревшая цена не отдаётся
	_, ok = s.cache.Price("BTCUSDT", time.Second, now.Add(2*time.Second))
	assert.False(t, ok)
}

func TestHandle_BadFrame(t *testing.T) {
	s, _ := newTestStream(t, "")
	_, err := s.handle([]byte(`{"result":null,"id":1}`))
	require.Error(t, err)
	assert.Zero(t, s.cache.Len())
}

func TestRun_ReadsFromServer(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		// держим соединение, пока клиент не уйдёт
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s, flag := newTestStream(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.cache.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, flag.v.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
	assert.False(t, flag.v.Load())
}
