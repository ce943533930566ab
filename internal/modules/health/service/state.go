package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickInfo - последний успешный тик раннера.
type TickInfo struct {
	At         time.Time `json:"at"`
	Candidates int       `json:"candidates"`
	Head       string    `json:"head,omitempty"`
	HeadRate   float64   `json:"headRate,omitempty"`
}

// Report - тело /healthz без данных слота.
type Report struct {
	Ready       bool     `json:"ready"`
	WSConnected bool     `json:"wsConnected"`
	UptimeSec   int64    `json:"uptimeSec"`
	LastTick    TickInfo `json:"lastTick"`
	TickAgeSec  int64    `json:"tickAgeSec"`
}

// State - то, что видно снаружи через admin HTTP.
// ready ставит bootstrap после загрузки таблицы точностей.
type State struct {
	now       func() time.Time
	startedAt time.Time

	ready       atomic.Bool
	wsConnected atomic.Bool

	mu   sync.Mutex
	tick TickInfo
}

func NewState() *State {
	return newState(time.Now)
}

func newState(now func() time.Time) *State {
	return &State{now: now, startedAt: now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

// ObserveTick вызывает раннер после ранжирования.
func (s *State) ObserveTick(t TickInfo) {
	s.mu.Lock()
	s.tick = t
	s.mu.Unlock()
}

func (s *State) LastTick() TickInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

func (s *State) Report() Report {
	now := s.now()
	tick := s.LastTick()
	r := Report{
		Ready:       s.Ready(),
		WSConnected: s.WSConnected(),
		UptimeSec:   int64(now.Sub(s.startedAt).Seconds()),
		LastTick:    tick,
		TickAgeSec:  -1,
	}
	if !tick.At.IsZero() {
		r.TickAgeSec = int64(now.Sub(tick.At).Seconds())
	}
	return r
}
