package statushttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/internal/store/signallog"
	"mako/internal/trader"
)

type stubSignals struct {
	records []signallog.Record
	symbol  string
	limit   int
}

func (s *stubSignals) Recent(_ context.Context, symbol string, limit int) ([]signallog.Record, error) {
	s.symbol = symbol
	s.limit = limit
	return s.records, nil
}

func newTestServer(t *testing.T, signals SignalReader) *Server {
	t.Helper()
	m := trader.NewManager(
		trader.Config{InitialBalances: map[string]float64{"USDT": 1000}},
		trader.Deps{},
	)
	srv, err := NewServer(ServerConfig{
		Addr:    ":0",
		Manager: m,
		Signals: signals,
		Symbols: []string{"BNBUSDT"},
	})
	require.NoError(t, err)
	return srv
}

func TestNewServerRequiresManager(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
}

func TestNewServerRejectsEmptyAddr(t *testing.T) {
	m := trader.NewManager(
		trader.Config{InitialBalances: map[string]float64{"USDT": 1000}},
		trader.Deps{},
	)
	srv, err := NewServer(ServerConfig{Manager: m})
	require.Error(t, err)
	assert.Nil(t, srv)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbols       []string           `json:"symbols"`
		OpenPositions int                `json:"open_positions"`
		Balances      map[string]float64 `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"BNBUSDT"}, body.Symbols)
	assert.Zero(t, body.OpenPositions)
	assert.Equal(t, 1000.0, body.Balances["USDT"])
}

func TestSignalsEndpoint(t *testing.T) {
	stub := &stubSignals{records: []signallog.Record{{Symbol: "BNBUSDT", Decision: "HOLD"}}}
	srv := newTestServer(t, stub)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals?symbol=BNBUSDT&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BNBUSDT", stub.symbol)
	assert.Equal(t, 5, stub.limit)
}

func TestSignalsEndpointWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryLimitBounds(t *testing.T) {
	stub := &stubSignals{}
	srv := newTestServer(t, stub)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals?limit=9999", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, stub.limit, "oversized limit falls back to the default")
}
