// Package api exposes the engine's observable surface over HTTP: status,
// trade history, the entry kill switch, mode switching, metrics, and a
// websocket status stream.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/executor"
	"github.com/GoPolymarket/updown-trader/pkg/ledger"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
)

// Controller is the slice of the trading client the API layer drives. It
// is passed in explicitly; the server never reaches for ambient state.
type Controller interface {
	Mode() string
	TradingEnabled() bool
	SetTradingEnabled(ctx context.Context, enabled bool)
	SwitchMode(ctx context.Context, mode string) error
	LastEntryStatus() trading.EntryStatus
	Balance(ctx context.Context) (*executor.BalanceSummary, error)
	DailyPnL() decimal.Decimal
	SessionPnL() decimal.Decimal
}

// Server serves the control API.
type Server struct {
	ctrl    Controller
	ledger  *ledger.Ledger
	log     zerolog.Logger
	upgrade websocket.Upgrader

	srv *http.Server
}

// New builds the API server bound to addr.
func New(addr string, ctrl Controller, l *ledger.Ledger, log zerolog.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		ledger: l,
		log:    log.With().Str("component", "api").Logger(),
		upgrade: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.HandleFunc("POST /trading/enable", s.handleEnable(true))
	mux.HandleFunc("POST /trading/disable", s.handleEnable(false))
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("api listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statusPayload struct {
	Mode           string              `json:"mode"`
	TradingEnabled bool                `json:"trading_enabled"`
	Balance        string              `json:"balance,omitempty"`
	Realized       string              `json:"realized,omitempty"`
	DailyPnL       string              `json:"daily_pnl"`
	SessionPnL     string              `json:"session_pnl"`
	LastEntry      trading.EntryStatus `json:"last_entry"`
	At             time.Time           `json:"at"`
}

func (s *Server) status(ctx context.Context) statusPayload {
	p := statusPayload{
		Mode:           s.ctrl.Mode(),
		TradingEnabled: s.ctrl.TradingEnabled(),
		DailyPnL:       s.ctrl.DailyPnL().StringFixed(2),
		SessionPnL:     s.ctrl.SessionPnL().StringFixed(2),
		LastEntry:      s.ctrl.LastEntryStatus(),
		At:             time.Now().UTC(),
	}
	if bal, err := s.ctrl.Balance(ctx); err == nil {
		p.Balance = bal.Balance.StringFixed(2)
		p.Realized = bal.Realized.StringFixed(2)
	}
	return p
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status(r.Context()))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	trades, err := s.ledger.RecentTrades(s.ctrl.Mode(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleEnable(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ctrl.SetTradingEnabled(r.Context(), enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"trading_enabled": enabled})
	}
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if err := s.ctrl.SwitchMode(r.Context(), body.Mode); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": body.Mode})
}

// handleWS streams the status payload until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s.status(r.Context())); err != nil {
				return
			}
		}
	}
}
