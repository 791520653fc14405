package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/application/services"
	"github.com/bimakw/wallet-api/internal/config"
	"github.com/bimakw/wallet-api/internal/presentation/handlers"
	"github.com/bimakw/wallet-api/internal/presentation/middleware"
	"github.com/bimakw/wallet-api/internal/testutil"
)

func newTestServer(t *testing.T, rps int) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	repo := testutil.NewMockWalletRepository()
	svc := services.NewWalletService(repo, nil, zap.NewNop(),
		services.WithMetrics(middleware.NewWalletMetrics(reg)),
	)
	require.NoError(t, svc.EnsureInitialized(context.Background()))

	h := New(Options{
		Logger: zap.NewNop(),
		API:    config.APIConfig{RateLimitRPS: rps},
		CORS: config.CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
			AllowCredentials: true,
		},
		Health:  handlers.NewHealthHandler(repo, config.DriverPostgres, nil),
		Wallet:  handlers.NewWalletHandler(svc, zap.NewNop(), false),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_WalletLifecycle(t *testing.T) {
	srv := newTestServer(t, 0)
	client := srv.Client()

	// Fresh store serves the seed
	resp, err := client.Get(srv.URL + "/api/wallet")
	require.NoError(t, err)
	var wallet services.WalletDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wallet))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, wallet.Assets, 1)
	assert.NotEmpty(t, wallet.ID)

	// Add an asset
	resp, err = client.Post(srv.URL+"/api/wallet/assets", "application/json", strings.NewReader(
		`{"symbol":"BTC","name":"Bitcoin","balance":0.5,"equivalent":30000,"equivalentCurrency":"USD"}`))
	require.NoError(t, err)
	var asset services.AssetDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "tether", asset.Icon)

	// Delete it again
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/wallet/assets/"+asset.ID, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deleting twice reports the missing asset
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, 0)

	for _, path := range []string{"/health", "/ready", "/live"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRouter_MetricsExposeMutations(t *testing.T) {
	srv := newTestServer(t, 0)

	resp, err := srv.Client().Post(srv.URL+"/api/wallet/assets", "application/json", strings.NewReader(
		`{"symbol":"ETH","name":"Ether","balance":1,"equivalent":2000,"equivalentCurrency":"USD"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wallet_mutations_total{operation="add_asset",result="ok"} 1`)
	assert.Contains(t, string(body), "wallet_assets 2")
}

func TestRouter_CORSHeaders(t *testing.T) {
	srv := newTestServer(t, 0)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/wallet", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRouter_RateLimitOnlyOnAPI(t *testing.T) {
	srv := newTestServer(t, 1)

	resp, err := srv.Client().Get(srv.URL + "/api/wallet")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/api/wallet")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
