package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/candlepulse/candle-pusher/candle/types"
	"github.com/candlepulse/candle-pusher/config"
	v1 "github.com/candlepulse/candle-pusher/router/v1"
)

var (
	_ v1.SymbolSource = (*mockSymbolSource)(nil)
	_ v1.Registry     = (*mockRegistry)(nil)
	_ v1.Gateway      = (*mockGateway)(nil)

	mockSymbols = map[string][]string{
		"binance": {"BTC-USDT", "ETH-USDT"},
		"okx":     {"BTC-USDT"},
	}
)

type mockSymbolSource struct{}

func (m mockSymbolSource) Symbols(_ context.Context, exchangeID string) ([]string, error) {
	symbols, ok := mockSymbols[exchangeID]
	if !ok {
		return nil, types.Validationf("invalid CEX exchange %s", exchangeID)
	}
	return symbols, nil
}

type mockRegistry struct{}

func (mockRegistry) StreamCount() int { return 3 }

type mockGateway struct{}

func (mockGateway) HandleWS(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (mockGateway) SessionCount() int { return 1 }

type RouterTestSuite struct {
	suite.Suite

	mux    *mux.Router
	router *v1.Router
}

// SetupSuite executes once before the suite's tests are executed.
func (rts *RouterTestSuite) SetupSuite() {
	mux := mux.NewRouter()
	cfg := config.Config{
		Server: config.Server{
			AllowedOrigins: []string{},
			VerboseCORS:    false,
		},
	}

	r := v1.New(zerolog.Nop(), cfg, mockSymbolSource{}, mockRegistry{}, mockGateway{})
	r.RegisterRoutes(mux, v1.APIPathPrefix)

	rts.mux = mux
	rts.router = r
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (rts *RouterTestSuite) executeRequest(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	rts.mux.ServeHTTP(rr, req)

	return rr
}

func (rts *RouterTestSuite) TestHealthz() {
	req, err := http.NewRequest("GET", "/api/v1/healthz", nil)
	rts.Require().NoError(err)

	response := rts.executeRequest(req)
	rts.Require().Equal(http.StatusOK, response.Code)

	var respBody v1.HealthZResponse
	rts.Require().NoError(json.Unmarshal(response.Body.Bytes(), &respBody))
	rts.Require().Equal(v1.StatusAvailable, respBody.Status)
	rts.Require().Equal(3, respBody.Streams)
	rts.Require().Equal(1, respBody.Sessions)
}

func (rts *RouterTestSuite) TestSymbols() {
	req, err := http.NewRequest("GET", "/api/v1/symbols/binance", nil)
	rts.Require().NoError(err)

	response := rts.executeRequest(req)
	rts.Require().Equal(http.StatusOK, response.Code)

	var respBody v1.SymbolsResponse
	rts.Require().NoError(json.Unmarshal(response.Body.Bytes(), &respBody))
	rts.Require().Equal("binance", respBody.Exchange)
	rts.Require().Equal(mockSymbols["binance"], respBody.Symbols)
}

func (rts *RouterTestSuite) TestSymbolsUnknownExchange() {
	req, err := http.NewRequest("GET", "/api/v1/symbols/hyperliquid", nil)
	rts.Require().NoError(err)

	response := rts.executeRequest(req)
	rts.Require().Equal(http.StatusBadRequest, response.Code)

	var respBody v1.ErrResponse
	rts.Require().NoError(json.Unmarshal(response.Body.Bytes(), &respBody))
	rts.Require().Contains(respBody.Error, "invalid CEX exchange")
}

func (rts *RouterTestSuite) TestMetrics() {
	req, err := http.NewRequest("GET", "/metrics", nil)
	rts.Require().NoError(err)

	response := rts.executeRequest(req)
	rts.Require().Equal(http.StatusOK, response.Code)
}

func (rts *RouterTestSuite) TestWS() {
	req, err := http.NewRequest("GET", "/ws", nil)
	rts.Require().NoError(err)

	response := rts.executeRequest(req)
	rts.Require().Equal(http.StatusSwitchingProtocols, response.Code)
}
