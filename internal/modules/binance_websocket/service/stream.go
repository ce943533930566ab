package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"funding_bot/internal/modules/config"
)

const (
	streamURL        = "wss://fstream.binance.com/ws/!markPrice@arr@1s"
	testnetStreamURL = "wss://stream.binancefuture.com/ws/!markPrice@arr@1s"

	readTimeout    = 30 * time.Second
	reconnectPause = time.Second
)

// ConnState - куда отмечать состояние соединения (health).
type ConnState interface {
	SetWSConnected(v bool)
}

// Stream держит одно соединение на весь рынок и пишет mark-цены в кэш.
type Stream struct {
	url    string
	dialer *websocket.Dialer
	cache  *MarkCache
	state  ConnState
	log    *zap.Logger
	now    func() time.Time
}

func NewStream(cfg *config.Config, cache *MarkCache, state ConnState, log *zap.Logger) *Stream {
	url := streamURL
	if cfg.Binance.Testnet {
		url = testnetStreamURL
	}
	return &Stream{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		cache:  cache,
		state:  state,
		log:    log.Named("ws"),
		now:    time.Now,
	}
}

// markFrame - элемент массива !markPrice@arr.
type markFrame struct {
	Event           string `json:"e"`
	Symbol          string `json:"s"`
	MarkPrice       string `json:"p"`
	FundingRate     string `json:"r"`
	NextFundingTime int64  `json:"T"`
}

// Run переподключается, пока жив ctx.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.session(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("[WS] соединение потеряно", zap.Error(err))
		}
		s.setConnected(false)

		select {
		case <-ctx.Done():
			s.log.Info("[WS] ⏹ остановлен")
			return
		case <-time.After(reconnectPause):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// закрываем соединение при остановке, чтобы разбудить ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	s.setConnected(true)
	s.log.Info("[WS] ▶️ подключено", zap.String("url", s.url))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if _, err := s.handle(msg); err != nil {
			s.log.Debug("[WS] кадр пропущен", zap.Error(err))
		}
	}
}

// handle разбирает кадр и возвращает число обновлённых символов.
func (s *Stream) handle(msg []byte) (int, error) {
	var frames []markFrame
	if err := sonic.Unmarshal(msg, &frames); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	now := s.now()
	n := 0
	for _, f := range frames {
		if f.Symbol == "" {
			continue
		}
		px, err := strconv.ParseFloat(f.MarkPrice, 64)
		if err != nil || px <= 0 {
			continue
		}
		rate, _ := strconv.ParseFloat(f.FundingRate, 64)
		m := Mark{Price: px, FundingRate: rate, At: now}
		if f.NextFundingTime > 0 {
			m.NextFundingTime = time.UnixMilli(f.NextFundingTime)
		}
		s.cache.Put(f.Symbol, m)
		n++
	}
	return n, nil
}

func (s *Stream) setConnected(v bool) {
	if s.state != nil {
		s.state.SetWSConnected(v)
	}
}
