package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/lobsim/config"
	"github.com/erain9/lobsim/pkg/api"
	"github.com/erain9/lobsim/pkg/core"
)

func TestSetupBackendMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Book.Backend = config.BackendMemory

	backend, closeFn, err := setupBackend(cfg)
	require.NoError(t, err)
	defer closeFn()

	require.NotNil(t, backend)
	assert.Equal(t, 0, backend.Len())
}

func TestServerServesRequests(t *testing.T) {
	cfg := &config.Config{}
	cfg.Book.Backend = config.BackendMemory

	backend, closeFn, err := setupBackend(cfg)
	require.NoError(t, err)
	defer closeFn()

	book := core.NewOrderBook(backend)
	server := api.NewServer(book)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := server.App().Test(req, 1000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSetupSimulatorStartsAndStops(t *testing.T) {
	cfg := &config.Config{}
	cfg.Book.Backend = config.BackendMemory

	backend, closeFn, err := setupBackend(cfg)
	require.NoError(t, err)
	defer closeFn()

	book := core.NewOrderBook(backend)
	sim, err := setupSimulator(context.Background(), book)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sim.Stop(ctx))
}
