// Package statushttp exposes the bot's runtime state over a small
// read-only HTTP API.
package statushttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mako/internal/logger"
	"mako/internal/store/signallog"
	"mako/internal/trader"
)

// SignalReader serves recent scored signals.
type SignalReader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]signallog.Record, error)
}

// TradeReader serves recent closed trades from the journal.
type TradeReader interface {
	Recent(ctx context.Context, limit int) ([]trader.ClosedTrade, error)
}

type ServerConfig struct {
	Addr    string
	Manager *trader.Manager
	Signals SignalReader
	Trades  TradeReader
	Symbols []string
}

type Server struct {
	addr    string
	router  *gin.Engine
	manager *trader.Manager
	signals SignalReader
	trades  TradeReader
	symbols []string
	started time.Time
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("status http server requires a trade manager")
	}
	// An empty address means the server is disabled; the builder must not
	// construct one at all.
	if cfg.Addr == "" {
		return nil, errors.New("status http server requires a listen address")
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:    cfg.Addr,
		router:  router,
		manager: cfg.Manager,
		signals: cfg.Signals,
		trades:  cfg.Trades,
		symbols: cfg.Symbols,
		started: time.Now().UTC(),
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/positions", s.handlePositions)
	api.GET("/performance", s.handlePerformance)
	api.GET("/balances", s.handleBalances)
	api.GET("/signals", s.handleSignals)
	api.GET("/trades", s.handleTrades)
	return s, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	stats := s.manager.Stats()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"symbols":        s.symbols,
		"open_positions": len(s.manager.OpenPositions()),
		"balances":       s.manager.Balances(),
		"performance":    stats,
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"open":    s.manager.OpenPositions(),
		"history": s.manager.History(),
	})
}

func (s *Server) handlePerformance(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Stats())
}

func (s *Server) handleBalances(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Balances())
}

func (s *Server) handleSignals(c *gin.Context) {
	if s.signals == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal log not configured"})
		return
	}
	records, err := s.signals.Recent(c.Request.Context(), c.Query("symbol"), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": records})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.trades == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trade journal not configured"})
		return
	}
	trades, err := s.trades.Recent(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func queryLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
