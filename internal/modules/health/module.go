package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"funding_bot/internal/models"
	"funding_bot/internal/modules/config"
	"funding_bot/internal/modules/health/service"
	"funding_bot/internal/runner/sessions"
)

const recentTrades = 5

type Config struct {
	Addr string
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: fmt.Sprintf(":%d", cfg.Service.AdminPort)}
}

// healthz - полный снимок бота для оператора.
type healthz struct {
	service.Report
	Slot   *models.SlotStatus   `json:"slot,omitempty"`
	Totals *sessions.Totals     `json:"totals,omitempty"`
	Recent []models.TradeRecord `json:"recent,omitempty"`
}

func NewMux(state *service.State, s *sessions.Session) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// без таблицы точностей бот не может считать ни одного кандидата
		if !state.Ready() {
			http.Error(w, "precision table not loaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := healthz{Report: state.Report()}
		if s != nil {
			st := s.Status()
			totals := s.History().Totals()
			body.Slot = &st
			body.Totals = &totals
			body.Recent = s.History().Snapshot(recentTrades)
		}
		out, err := sonic.Marshal(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("health: listen %s: %w", cfg.Addr, err)
			}
			log.Info("[HTTP] admin", zap.String("addr", cfg.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					log.Error("[HTTP] admin остановлен", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
