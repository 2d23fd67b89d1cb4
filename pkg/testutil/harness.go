// Package testutil provides testing utilities for the Flair bridge.
// This file provides a TestEnv for end-to-end tests against MockFlairServer.
package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"flairbridge/internal/api"
	"flairbridge/internal/audit"
	"flairbridge/internal/clock"
	"flairbridge/internal/coordinator"
	"flairbridge/internal/entity"
	"flairbridge/internal/flair"
	"flairbridge/internal/model"
	"flairbridge/internal/platform"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EnvOptions tune the bridge under test.
type EnvOptions struct {
	Imperial   bool
	RoomPolicy entity.RoomPolicy
	ReadOnly   bool
	Debounce   time.Duration
}

// TestEnv runs the real client, coordinator, entities and HTTP API against
// a mock Flair server. Polling runs on a MockClock, so nothing refreshes
// unless the test advances it.
type TestEnv struct {
	Server      *MockFlairServer
	Client      *flair.Client
	Store       *model.Store
	Clock       *clock.MockClock
	Coordinator *coordinator.Coordinator
	Entities    *platform.Set
	Audit       *audit.Tracker
	Hub         *api.Hub
	API         *httptest.Server
	Logger      *zap.Logger

	patches model.Subscription
}

// NewTestEnv wires the bridge to server and runs the first refresh.
//
// Example usage:
//
//	server := testutil.NewMockFlairServer()
//	defer server.Close()
//	env, err := testutil.NewTestEnv(server, testutil.EnvOptions{})
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer env.Cleanup()
func NewTestEnv(server *MockFlairServer, opts EnvOptions) (*TestEnv, error) {
	logger, _ := zap.NewDevelopment()
	if opts.RoomPolicy == "" {
		opts.RoomPolicy = entity.RoomPolicyMirror
	}
	if opts.Debounce == 0 {
		opts.Debounce = coordinator.DefaultDebounce
	}

	client := flair.NewClient(flair.Options{
		BaseURL:      server.URL(),
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Timeout:      5 * time.Second,
	}, logger)

	store := model.NewStore(logger)
	clk := clock.NewMockClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	coord := coordinator.New(client, store, clk, coordinator.Options{
		PollInterval: coordinator.DefaultPollInterval,
		Debounce:     opts.Debounce,
	}, logger)

	tracker := audit.NewTracker(100)
	hub := api.NewHub(logger)
	notifier := platform.NewMulti(hub)
	entities := platform.NewSet()
	registry := platform.NewDefaultRegistry(logger)
	patches := entities.NotifyOnPatch(store, notifier)
	deps := entity.Deps{
		Store:     store,
		Gateway:   client,
		Refresher: coord,
		Notifier:  notifier,
		Recorder:  tracker,
		Logger:    logger,
		ReadOnly:  opts.ReadOnly,
	}

	coord.AddListener(func() {
		if _, err := entities.Sync(registry, platform.NewContext(deps, opts.Imperial, opts.RoomPolicy, logger)); err != nil {
			logger.Error("Failed to build entities", zap.Error(err))
		}
	})

	if err := coord.Start(context.Background()); err != nil {
		patches.Unsubscribe()
		return nil, fmt.Errorf("failed to start coordinator: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(coord.Metrics().Collectors()...)

	apiServer := api.NewServer(api.Options{
		Entities: entities,
		Audit:    tracker,
		Health:   coord,
		Hub:      hub,
		Gatherer: reg,
	}, logger)

	return &TestEnv{
		Server:      server,
		Client:      client,
		Store:       store,
		Clock:       clk,
		Coordinator: coord,
		Entities:    entities,
		Audit:       tracker,
		Hub:         hub,
		API:         httptest.NewServer(apiServer.Handler()),
		Logger:      logger,
		patches:     patches,
	}, nil
}

// Entity returns the entity with uniqueID or an error naming it.
func (e *TestEnv) Entity(uniqueID string) (entity.Entity, error) {
	ent, ok := e.Entities.Get(uniqueID)
	if !ok {
		return nil, fmt.Errorf("entity %s not found", uniqueID)
	}
	return ent, nil
}

// Poll advances the clock one poll interval. The refresh runs on the
// coordinator goroutine; wait on Server.Fetches to observe it.
func (e *TestEnv) Poll() {
	e.Clock.Advance(coordinator.DefaultPollInterval)
}

// Cleanup stops all components in the correct order.
// Always call this in a defer after creating the TestEnv.
func (e *TestEnv) Cleanup() {
	if e.Hub != nil {
		e.Hub.Close()
	}
	if e.API != nil {
		e.API.Close()
	}
	if e.Coordinator != nil {
		e.Coordinator.Stop()
	}
	if e.patches != nil {
		e.patches.Unsubscribe()
	}
}

// GetPatches returns all PATCH requests the mock server accepted.
func (e *TestEnv) GetPatches() []PatchCall {
	return e.Server.GetPatches()
}

// ClearPatches clears the recorded PATCH requests.
func (e *TestEnv) ClearPatches() {
	e.Server.ClearPatches()
}
